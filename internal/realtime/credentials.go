package realtime

import (
	"time"

	"github.com/pairprep/backend/internal/models"
)

// Credentials signs join tokens for both providers.
type Credentials struct {
	calls *LiveKitCalls
	chat  *ChatClient
	ttl   time.Duration
}

// NewCredentials creates a credential issuer. Tokens live for ttl.
func NewCredentials(calls *LiveKitCalls, chat *ChatClient, ttl time.Duration) *Credentials {
	return &Credentials{calls: calls, chat: chat, ttl: ttl}
}

// Issue returns the call and chat tokens for caller on callID.
func (c *Credentials) Issue(callID string, caller models.Caller) (*models.JoinCredentials, error) {
	callToken, err := c.calls.CallToken(callID, caller.ExternalID, caller.Name)
	if err != nil {
		return nil, err
	}
	chatToken, err := c.chat.UserToken(caller.ExternalID, c.ttl)
	if err != nil {
		return nil, err
	}
	return &models.JoinCredentials{
		CallID:      callID,
		CallURL:     c.calls.URL(),
		CallToken:   callToken,
		ChatAPIKey:  c.chat.apiKey,
		ChannelType: c.chat.ChannelType(),
		ChannelID:   callID,
		ChatUserID:  caller.ExternalID,
		ChatToken:   chatToken,
		ExpiresAt:   time.Now().Add(c.ttl),
	}, nil
}
