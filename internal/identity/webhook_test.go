package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pairprep/backend/pkg/queue"
)

type recordingQueue struct {
	jobs []*queue.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, jobType queue.JobType, payload any) (*queue.Job, error) {
	if q.err != nil {
		return nil, q.err
	}
	job, err := queue.NewJob(jobType, payload)
	if err != nil {
		return nil, err
	}
	q.jobs = append(q.jobs, job)
	return job, nil
}

func send(t *testing.T, h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/identity", h.Receive)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userEvent(t *testing.T, typ string) []byte {
	t.Helper()
	b, err := json.Marshal(Event{Type: typ, Data: EventUser{
		ID:             "user_2abc",
		EmailAddresses: []EmailAddress{{EmailAddress: "ada@example.com"}, {EmailAddress: "alt@example.com"}},
		FirstName:      "Ada",
		LastName:       "Lovelace",
		ImageURL:       "https://img.example/ada.png",
	}})
	require.NoError(t, err)
	return b
}

func TestReceive_QueuesUpsert(t *testing.T) {
	q := &recordingQueue{}
	h := NewHandler(q, "whsec", zap.NewNop())
	body := userEvent(t, EventUserCreated)

	w := send(t, h, body, Sign([]byte("whsec"), body))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, queue.JobTypeUserUpsert, q.jobs[0].Type)

	var p queue.UserPayload
	require.NoError(t, json.Unmarshal(q.jobs[0].Payload, &p))
	assert.Equal(t, queue.UserPayload{
		ExternalID: "user_2abc",
		Email:      "ada@example.com",
		Name:       "Ada Lovelace",
		ImageURL:   "https://img.example/ada.png",
	}, p)
}

func TestReceive_Signature(t *testing.T) {
	q := &recordingQueue{}
	h := NewHandler(q, "whsec", zap.NewNop())
	body := userEvent(t, EventUserDeleted)

	assert.Equal(t, http.StatusUnauthorized, send(t, h, body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(t, h, body, Sign([]byte("other"), body)).Code)
	assert.Empty(t, q.jobs)

	assert.Equal(t, http.StatusAccepted, send(t, h, body, Sign([]byte("whsec"), body)).Code)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, queue.JobTypeUserDelete, q.jobs[0].Type)
}

func TestReceive_RejectsWithoutSecret(t *testing.T) {
	q := &recordingQueue{}
	h := NewHandler(q, "", zap.NewNop())
	body := userEvent(t, EventUserDeleted)

	assert.Equal(t, http.StatusUnauthorized, send(t, h, body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(t, h, body, Sign(nil, body)).Code)
	assert.Empty(t, q.jobs)
}

func TestReceive_IgnoresAndRejectsBadEvents(t *testing.T) {
	q := &recordingQueue{}
	h := NewHandler(q, "whsec", zap.NewNop())
	signed := func(body []byte) *httptest.ResponseRecorder {
		return send(t, h, body, Sign([]byte("whsec"), body))
	}

	assert.Equal(t, http.StatusAccepted, signed(userEvent(t, EventUserUpdated)).Code)
	assert.Equal(t, http.StatusOK, signed(userEvent(t, "session.created")).Code)
	assert.Len(t, q.jobs, 1)

	assert.Equal(t, http.StatusBadRequest, signed([]byte(`{"type":"user.created","data":{}}`)).Code)
	assert.Equal(t, http.StatusBadRequest, signed([]byte(`not json`)).Code)
}

func TestReceive_QueueDown(t *testing.T) {
	h := NewHandler(&recordingQueue{err: errors.New("redis down")}, "whsec", zap.NewNop())
	body := userEvent(t, EventUserCreated)
	w := send(t, h, body, Sign([]byte("whsec"), body))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventUser_NameFallsBackToEmail(t *testing.T) {
	p := EventUser{ID: "u", EmailAddresses: []EmailAddress{{EmailAddress: "grace@example.com"}}}.Payload()
	assert.Equal(t, "grace", p.Name)
}
