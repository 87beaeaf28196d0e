package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session. It only ever moves active -> completed.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Difficulty of an interview problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalises user input ("Easy", " hard ") to a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	default:
		return "", false
	}
}

// Session is one hosted interview rehearsal.
// CallID names both the video call and the chat channel.
type Session struct {
	ID              uuid.UUID     `json:"id"`
	Problem         string        `json:"problem"`
	Difficulty      Difficulty    `json:"difficulty"`
	CustomProblemID *uuid.UUID    `json:"custom_problem_id,omitempty"`
	HostID          uuid.UUID     `json:"host_id"`
	ParticipantID   *uuid.UUID    `json:"participant_id"`
	CallID          string        `json:"call_id"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsHost reports whether userID hosts the session.
func (s *Session) IsHost(userID uuid.UUID) bool {
	return s.HostID == userID
}

// IsMember reports whether userID is the host or the participant.
func (s *Session) IsMember(userID uuid.UUID) bool {
	if s.HostID == userID {
		return true
	}
	return s.ParticipantID != nil && *s.ParticipantID == userID
}

// SessionView is a session enriched with public profiles and the resolved custom problem.
type SessionView struct {
	Session
	Host          *UserPublic `json:"host,omitempty"`
	Participant   *UserPublic `json:"participant,omitempty"`
	CustomProblem *Problem    `json:"custom_problem,omitempty"`
}

// JoinCredentials lets a session member connect to the call and the chat channel.
type JoinCredentials struct {
	SessionID   uuid.UUID `json:"session_id"`
	CallID      string    `json:"call_id"`
	CallURL     string    `json:"call_url"`
	CallToken   string    `json:"call_token"`
	ChatAPIKey  string    `json:"chat_api_key"`
	ChannelType string    `json:"channel_type"`
	ChannelID   string    `json:"channel_id"`
	ChatUserID  string    `json:"chat_user_id"`
	ChatToken   string    `json:"chat_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
