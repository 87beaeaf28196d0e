package sessions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/models"
	"github.com/pairprep/backend/internal/realtime"
)

// memStore mirrors the conditional updates of Repository under a mutex.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	callIDs  map[string]bool
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[uuid.UUID]models.Session),
		callIDs:  make(map[string]bool),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callIDs[s.CallID] {
		return ErrDuplicateCallID
	}
	s.ID = uuid.New()
	s.CreatedAt = m.tick()
	s.UpdatedAt = s.CreatedAt
	m.callIDs[s.CallID] = true
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) AssignParticipant(_ context.Context, id, participantID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusActive || s.ParticipantID != nil || s.HostID == participantID {
		return nil, ErrStaleState
	}
	p := participantID
	s.ParticipantID = &p
	s.UpdatedAt = m.tick()
	m.sessions[id] = s
	return &s, nil
}

func (m *memStore) Complete(_ context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.HostID != hostID || s.Status != models.SessionStatusActive {
		return nil, ErrStaleState
	}
	s.Status = models.SessionStatusCompleted
	s.UpdatedAt = m.tick()
	m.sessions[id] = s
	return &s, nil
}

func (m *memStore) ListByStatus(_ context.Context, status models.SessionStatus, limit int) ([]models.Session, error) {
	return m.filter(limit, func(s models.Session) bool { return s.Status == status }), nil
}

func (m *memStore) ListForUser(_ context.Context, userID uuid.UUID, status models.SessionStatus, limit int) ([]models.Session, error) {
	return m.filter(limit, func(s models.Session) bool { return s.Status == status && s.IsMember(userID) }), nil
}

func (m *memStore) filter(limit int, keep func(models.Session) bool) []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Session, 0)
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fakeRealtime records calls and fails the ones named in fail.
type fakeRealtime struct {
	mu      sync.Mutex
	fail    map[string]error
	calls   []string
	members map[string][]string
	specs   map[string]realtime.ChannelSpec
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{
		fail:    make(map[string]error),
		members: make(map[string][]string),
		specs:   make(map[string]realtime.ChannelSpec),
	}
}

func (f *fakeRealtime) failOn(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = apperr.External("realtime_unavailable", op+" failed", errors.New("provider down"))
}

func (f *fakeRealtime) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeRealtime) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeRealtime) CreateCall(context.Context, string, string, map[string]string) error {
	return f.record("create_call")
}

func (f *fakeRealtime) DeleteCall(context.Context, string) error {
	return f.record("delete_call")
}

func (f *fakeRealtime) CreateChannel(_ context.Context, id string, spec realtime.ChannelSpec) error {
	if err := f.record("create_channel"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs[id] = spec
	f.members[id] = append([]string(nil), spec.Members...)
	return nil
}

func (f *fakeRealtime) AddChannelMember(_ context.Context, id, externalID string) error {
	if err := f.record("add_channel_member"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id] = append(f.members[id], externalID)
	return nil
}

func (f *fakeRealtime) DeleteChannel(context.Context, string) error {
	return f.record("delete_channel")
}

type fakeUsers struct {
	byID map[uuid.UUID]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("user_not_found", "user not found")
	}
	return u, nil
}

func (f *fakeUsers) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	out := make(map[uuid.UUID]*models.User)
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeProblems map[uuid.UUID]*models.Problem

func (f fakeProblems) GetByID(_ context.Context, id uuid.UUID) (*models.Problem, error) {
	p, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("problem_not_found", "problem not found")
	}
	return p, nil
}

type recordedEvent struct {
	Event   string
	Payload any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) Publish(_ context.Context, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Event: event, Payload: payload})
	return nil
}

func (f *fakeEvents) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Event)
	}
	return out
}

type fakeCreds struct{}

func (fakeCreds) Issue(callID string, caller models.Caller) (*models.JoinCredentials, error) {
	return &models.JoinCredentials{CallID: callID, ChannelID: callID, ChatUserID: caller.ExternalID, CallToken: "call-token", ChatToken: "chat-token"}, nil
}

func newUser(ext, name string) *models.User {
	return &models.User{ID: uuid.New(), ExternalID: ext, Name: name, Email: ext + "@example.com"}
}

func callerOf(u *models.User) models.Caller {
	return models.Caller{UserID: u.ID, ExternalID: u.ExternalID, Name: u.Name}
}
