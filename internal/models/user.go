package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform user mirrored from the identity provider.
// ExternalID is the provider's stable id and is also the user's id on the chat/video providers.
type User struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPublic is User without provider identifiers for API responses.
type UserPublic struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}

// Caller is the authenticated identity of a request.
type Caller struct {
	UserID     uuid.UUID
	ExternalID string
	Name       string
}
