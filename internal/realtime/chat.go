package realtime

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pairprep/backend/config"
)

// ChatUser is the chat provider's view of a user.
type ChatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// ChatClient talks to a Stream-compatible chat REST API with a server token.
type ChatClient struct {
	http        *resty.Client
	apiKey      string
	apiSecret   string
	channelType string
}

// NewChatClient creates a chat REST client.
func NewChatClient(cfg config.ChatConfig) *ChatClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "pairprep-backend/1.0").
		SetHeader("Content-Type", "application/json").
		SetQueryParam("api_key", cfg.APIKey)
	return &ChatClient{
		http:        client,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		channelType: cfg.ChannelType,
	}
}

// ChannelType is the channel type sessions are created under.
func (c *ChatClient) ChannelType() string {
	return c.channelType
}

func (c *ChatClient) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	return token.SignedString([]byte(c.apiSecret))
}

// UserToken issues a client token for the given chat user.
func (c *ChatClient) UserToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
}

func (c *ChatClient) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.serverToken()
	if err != nil {
		return nil, fmt.Errorf("sign chat server token: %w", err)
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", token).
		SetHeader("Stream-Auth-Type", "jwt"), nil
}

func channelPath(channelType, id string) string {
	return "/channels/" + url.PathEscape(channelType) + "/" + url.PathEscape(id)
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return &ProviderError{Op: op, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

type channelData struct {
	Name        string   `json:"name,omitempty"`
	CreatedByID string   `json:"created_by_id,omitempty"`
	Members     []string `json:"members,omitempty"`
}

// CreateChannel gets or creates the channel. Calling it again for the same id is a no-op
// on the provider side apart from member additions.
func (c *ChatClient) CreateChannel(ctx context.Context, channelType, id, name, creatorID string, members []string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{
		"data": channelData{Name: name, CreatedByID: creatorID, Members: members},
	}
	resp, err := req.SetBody(body).Post(channelPath(channelType, id) + "/query")
	return checkResponse("chat.create_channel", resp, err)
}

// AddMembers adds users to an existing channel.
func (c *ChatClient) AddMembers(ctx context.Context, channelType, id string, members []string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.SetBody(map[string]any{"add_members": members}).Post(channelPath(channelType, id))
	return checkResponse("chat.add_members", resp, err)
}

// DeleteChannel hard-deletes the channel and its messages.
func (c *ChatClient) DeleteChannel(ctx context.Context, channelType, id string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.SetQueryParam("hard_delete", "true").Delete(channelPath(channelType, id))
	return checkResponse("chat.delete_channel", resp, err)
}

// UpsertUser creates or updates the chat user.
func (c *ChatClient) UpsertUser(ctx context.Context, user ChatUser) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{"users": map[string]ChatUser{user.ID: user}}
	resp, err := req.SetBody(body).Post("/users")
	return checkResponse("chat.upsert_user", resp, err)
}

// DeleteUser hard-deletes the chat user.
func (c *ChatClient) DeleteUser(ctx context.Context, id string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetQueryParam("hard_delete", "true").
		SetQueryParam("mark_messages_deleted", "true").
		Delete("/users/" + url.PathEscape(id))
	return checkResponse("chat.delete_user", resp, err)
}
