package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pairprep/backend/pkg/queue"
	"github.com/pairprep/backend/pkg/response"
)

// SignatureHeader carries "sha256=<hex hmac of the raw body>".
const SignatureHeader = "X-Webhook-Signature"

const maxBodyBytes = 1 << 20

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is a user lifecycle notification from the identity provider.
type Event struct {
	Type string    `json:"type"`
	Data EventUser `json:"data"`
}

// EventUser is the user object carried by an Event.
type EventUser struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
}

// EmailAddress is one of a user's addresses; the first is primary.
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// Payload converts the event user into a sync job payload.
func (u EventUser) Payload() queue.UserPayload {
	p := queue.UserPayload{ExternalID: u.ID, ImageURL: u.ImageURL}
	if len(u.EmailAddresses) > 0 {
		p.Email = u.EmailAddresses[0].EmailAddress
	}
	p.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	if p.Name == "" {
		p.Name, _, _ = strings.Cut(p.Email, "@")
	}
	return p
}

// Enqueuer accepts identity sync jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload any) (*queue.Job, error)
}

// Handler receives identity provider webhooks.
type Handler struct {
	queue  Enqueuer
	secret []byte
	logger *zap.Logger
}

// NewHandler creates a webhook handler. With an empty secret every request is rejected.
func NewHandler(q Enqueuer, secret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{queue: q, secret: []byte(secret), logger: logger}
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (h *Handler) verify(body []byte, header string) bool {
	if len(h.secret) == 0 {
		return false
	}
	return hmac.Equal([]byte(Sign(h.secret, body)), []byte(strings.TrimSpace(header)))
}

// Receive handles POST /webhooks/identity.
func (h *Handler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}
	if !h.verify(body, c.GetHeader(SignatureHeader)) {
		response.Unauthorized(c, "invalid signature")
		return
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil || ev.Data.ID == "" {
		response.BadRequest(c, "invalid event")
		return
	}

	var jobType queue.JobType
	switch ev.Type {
	case EventUserCreated, EventUserUpdated:
		jobType = queue.JobTypeUserUpsert
	case EventUserDeleted:
		jobType = queue.JobTypeUserDelete
	default:
		response.OK(c, gin.H{"queued": false})
		return
	}

	job, err := h.queue.Enqueue(c.Request.Context(), jobType, ev.Data.Payload())
	if err != nil {
		h.logger.Error("enqueue identity job failed", zap.String("event", ev.Type), zap.String("external_id", ev.Data.ID), zap.Error(err))
		response.ServiceUnavailable(c, "could not queue event")
		return
	}
	h.logger.Info("identity event queued", zap.String("event", ev.Type), zap.String("job_id", job.ID))
	response.Accepted(c, gin.H{"queued": true, "job_id": job.ID})
}
