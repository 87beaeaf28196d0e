package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/metrics"
	"github.com/pairprep/backend/internal/models"
	"github.com/pairprep/backend/internal/realtime"
)

const (
	defaultPageSize = 20
	callKind        = "default"
	maxCallIDTries  = 3

	opCreate = "create"
	opJoin   = "join"
	opEnd    = "end"
)

// Realtime is the video/chat capability the service keeps in step with sessions.
type Realtime interface {
	CreateCall(ctx context.Context, kind, callID string, metadata map[string]string) error
	DeleteCall(ctx context.Context, callID string) error
	CreateChannel(ctx context.Context, channelID string, spec realtime.ChannelSpec) error
	AddChannelMember(ctx context.Context, channelID, externalID string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// UserDirectory resolves public profiles.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

// ProblemLookup resolves custom problem references.
type ProblemLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Problem, error)
}

// EventPublisher fans session events out to lobby clients.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// CredentialIssuer signs call and chat tokens for a session member.
type CredentialIssuer interface {
	Issue(callID string, caller models.Caller) (*models.JoinCredentials, error)
}

// CreateInput is a create request. CustomProblemID fills Problem and Difficulty when they are empty.
type CreateInput struct {
	Problem         string
	Difficulty      string
	CustomProblemID *uuid.UUID
}

// Service runs the session transitions against the store and the realtime providers.
//
// Create is write-first: the row is the durable record and the call and channel are
// provisioned best-effort afterwards. End is fail-closed: both provider deletes must
// succeed before the row moves to completed. Join assigns the participant atomically
// and then adds channel membership best-effort, recreating the channel if it is missing.
type Service struct {
	store    Store
	realtime Realtime
	users    UserDirectory
	problems ProblemLookup
	events   EventPublisher
	creds    CredentialIssuer
	logger   *zap.Logger
	pageSize int
	newID    func() string
}

// NewService creates a session service. events and creds may be nil.
func NewService(store Store, rt Realtime, users UserDirectory, problems ProblemLookup, events EventPublisher, creds CredentialIssuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		realtime: rt,
		users:    users,
		problems: problems,
		events:   events,
		creds:    creds,
		logger:   logger,
		pageSize: defaultPageSize,
		newID:    NewCallID,
	}
}

// SetPageSize lowers the listing limit. It never rises above 20.
func (s *Service) SetPageSize(n int) {
	if n > 0 && n <= defaultPageSize {
		s.pageSize = n
	}
}

// NewCallID returns session_<unix millis>_<random suffix>.
func NewCallID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}

// Create persists a new active session, then provisions its call and chat channel.
func (s *Service) Create(ctx context.Context, caller models.Caller, in CreateInput) (*models.Session, error) {
	sess, err := s.buildSession(ctx, caller, in)
	if err != nil {
		recordTransition(opCreate, err)
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		recordTransition(opCreate, err)
		return nil, err
	}

	s.provision(context.WithoutCancel(ctx), sess, caller)
	s.publish(ctx, realtime.EventSessionCreated, sess)
	recordTransition(opCreate, nil)
	s.logger.Info("session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("call_id", sess.CallID),
		zap.String("host_id", caller.UserID.String()),
	)
	return sess, nil
}

func (s *Service) buildSession(ctx context.Context, caller models.Caller, in CreateInput) (*models.Session, error) {
	problem := strings.TrimSpace(in.Problem)
	difficulty := strings.TrimSpace(in.Difficulty)
	if in.CustomProblemID != nil {
		p, err := s.problems.GetByID(ctx, *in.CustomProblemID)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, ErrUnknownProblem
			}
			return nil, fmt.Errorf("resolve custom problem: %w", err)
		}
		if problem == "" {
			problem = p.Title
		}
		if difficulty == "" {
			difficulty = string(p.Difficulty)
		}
	}
	if problem == "" || difficulty == "" {
		return nil, ErrMissingProblem
	}
	d, ok := models.ParseDifficulty(difficulty)
	if !ok {
		return nil, ErrInvalidDifficulty
	}
	return &models.Session{
		Problem:         problem,
		Difficulty:      d,
		CustomProblemID: in.CustomProblemID,
		HostID:          caller.UserID,
		Status:          models.SessionStatusActive,
	}, nil
}

// persist inserts the row, drawing a fresh call id on the rare collision.
// Sessions are only ever created active.
func (s *Service) persist(ctx context.Context, sess *models.Session) error {
	if sess.Status != models.SessionStatusActive {
		return apperr.Internal(fmt.Errorf("create session: initial status %q", sess.Status))
	}
	for try := 1; try <= maxCallIDTries; try++ {
		sess.CallID = s.newID()
		err := s.store.Create(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateCallID) {
			return apperr.Internal(fmt.Errorf("create session: %w", err))
		}
		s.logger.Warn("call id collision", zap.String("call_id", sess.CallID), zap.Int("try", try))
	}
	return ErrCallIDCollision
}

func (s *Service) provision(ctx context.Context, sess *models.Session, caller models.Caller) {
	var g errgroup.Group
	g.Go(func() error {
		err := s.realtime.CreateCall(ctx, callKind, sess.CallID, map[string]string{
			"problem":       sess.Problem,
			"difficulty":    string(sess.Difficulty),
			"session_id":    sess.ID.String(),
			"created_by_id": caller.ExternalID,
		})
		s.tolerate(opCreate, "create_call", sess, err)
		return nil
	})
	g.Go(func() error {
		err := s.realtime.CreateChannel(ctx, sess.CallID, realtime.ChannelSpec{
			Name:              sess.Problem + " Session",
			CreatorExternalID: caller.ExternalID,
			Members:           []string{caller.ExternalID},
		})
		s.tolerate(opCreate, "create_channel", sess, err)
		return nil
	})
	_ = g.Wait()
}

// tolerate logs and counts a provider failure that must not fail the transition.
func (s *Service) tolerate(op, step string, sess *models.Session, err error) {
	if err == nil {
		return
	}
	metrics.BestEffortFailures.WithLabelValues(op + "." + step).Inc()
	s.logger.Warn("realtime side effect failed",
		zap.String("operation", op),
		zap.String("step", step),
		zap.String("session_id", sess.ID.String()),
		zap.String("call_id", sess.CallID),
		zap.Error(err),
	)
}

// Join makes the caller the session's participant.
func (s *Service) Join(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.Session, error) {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		err = storeErr(err)
		recordTransition(opJoin, err)
		return nil, err
	}
	if err := checkJoin(sess, caller.UserID); err != nil {
		recordTransition(opJoin, err)
		return nil, err
	}

	updated, err := s.store.AssignParticipant(ctx, id, caller.UserID)
	if errors.Is(err, ErrStaleState) {
		// Lost a race: report why from the state that won.
		err = ErrSessionFull
		if current, gerr := s.store.GetByID(ctx, id); gerr == nil {
			if cerr := checkJoin(current, caller.UserID); cerr != nil {
				err = cerr
			}
		}
	}
	if err != nil {
		err = storeErr(err)
		recordTransition(opJoin, err)
		return nil, err
	}

	s.addMember(context.WithoutCancel(ctx), updated, caller)
	s.publish(ctx, realtime.EventSessionJoined, updated)
	recordTransition(opJoin, nil)
	s.logger.Info("session joined",
		zap.String("session_id", updated.ID.String()),
		zap.String("participant_id", caller.UserID.String()),
	)
	return updated, nil
}

// checkJoin applies the join preconditions in order.
func checkJoin(sess *models.Session, userID uuid.UUID) error {
	switch {
	case sess.Status != models.SessionStatusActive:
		return ErrSessionNotActive
	case sess.IsHost(userID):
		return ErrHostCannotJoin
	case sess.ParticipantID != nil:
		return ErrSessionFull
	}
	return nil
}

func (s *Service) addMember(ctx context.Context, sess *models.Session, caller models.Caller) {
	err := s.realtime.AddChannelMember(ctx, sess.CallID, caller.ExternalID)
	if err == nil {
		return
	}
	s.tolerate(opJoin, "add_channel_member", sess, err)

	spec := realtime.ChannelSpec{
		Name:              sess.Problem + " Session",
		CreatorExternalID: caller.ExternalID,
		Members:           []string{caller.ExternalID},
	}
	if host, herr := s.users.GetByID(ctx, sess.HostID); herr == nil {
		spec.CreatorExternalID = host.ExternalID
		spec.Members = []string{host.ExternalID, caller.ExternalID}
	}
	err = s.realtime.CreateChannel(ctx, sess.CallID, spec)
	s.tolerate(opJoin, "repair_channel", sess, err)
}

// End tears down the call and channel and then marks the session completed.
// If either delete fails the session stays active and the caller retries.
func (s *Service) End(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.Session, error) {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		err = storeErr(err)
		recordTransition(opEnd, err)
		return nil, err
	}
	if !sess.IsHost(caller.UserID) {
		recordTransition(opEnd, ErrNotHost)
		return nil, ErrNotHost
	}
	if sess.Status == models.SessionStatusCompleted {
		recordTransition(opEnd, ErrSessionAlreadyCompleted)
		return nil, ErrSessionAlreadyCompleted
	}

	if err := s.teardown(ctx, sess); err != nil {
		s.logger.Error("session teardown failed, session left active",
			zap.String("session_id", sess.ID.String()),
			zap.String("call_id", sess.CallID),
			zap.Error(err),
		)
		err = ErrRealtimeTeardown.Wrap(err)
		recordTransition(opEnd, err)
		return nil, err
	}

	updated, err := s.store.Complete(ctx, id, caller.UserID)
	if errors.Is(err, ErrStaleState) {
		err = ErrSessionAlreadyCompleted
	}
	if err != nil {
		err = storeErr(err)
		recordTransition(opEnd, err)
		return nil, err
	}

	s.publish(ctx, realtime.EventSessionEnded, updated)
	recordTransition(opEnd, nil)
	s.logger.Info("session ended", zap.String("session_id", updated.ID.String()))
	return updated, nil
}

// teardown attempts both deletes and reports every failure.
func (s *Service) teardown(ctx context.Context, sess *models.Session) error {
	var callErr, channelErr error
	var g errgroup.Group
	g.Go(func() error {
		callErr = s.realtime.DeleteCall(ctx, sess.CallID)
		return nil
	})
	g.Go(func() error {
		channelErr = s.realtime.DeleteChannel(ctx, sess.CallID)
		return nil
	})
	_ = g.Wait()
	return errors.Join(callErr, channelErr)
}

// ListActive returns the newest active sessions with their hosts.
func (s *Service) ListActive(ctx context.Context) ([]models.SessionView, error) {
	list, err := s.store.ListByStatus(ctx, models.SessionStatusActive, s.pageSize)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list active sessions: %w", err))
	}
	return s.enrich(ctx, list, false)
}

// ListRecent returns the caller's newest completed sessions.
func (s *Service) ListRecent(ctx context.Context, caller models.Caller) ([]models.SessionView, error) {
	list, err := s.store.ListForUser(ctx, caller.UserID, models.SessionStatusCompleted, s.pageSize)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list recent sessions: %w", err))
	}
	return s.enrich(ctx, list, true)
}

func (s *Service) enrich(ctx context.Context, list []models.Session, withParticipant bool) ([]models.SessionView, error) {
	ids := make([]uuid.UUID, 0, len(list)*2)
	for _, sess := range list {
		ids = append(ids, sess.HostID)
		if withParticipant && sess.ParticipantID != nil {
			ids = append(ids, *sess.ParticipantID)
		}
	}
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load session users: %w", err))
	}
	views := make([]models.SessionView, 0, len(list))
	for _, sess := range list {
		v := models.SessionView{Session: sess, Host: publicOf(users[sess.HostID])}
		if withParticipant && sess.ParticipantID != nil {
			v.Participant = publicOf(users[*sess.ParticipantID])
		}
		views = append(views, v)
	}
	return views, nil
}

// Get returns one session with host, participant and custom problem resolved.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.SessionView, error) {
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	view := &models.SessionView{Session: *sess}
	ids := []uuid.UUID{sess.HostID}
	if sess.ParticipantID != nil {
		ids = append(ids, *sess.ParticipantID)
	}
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load session users: %w", err))
	}
	view.Host = publicOf(users[sess.HostID])
	if sess.ParticipantID != nil {
		view.Participant = publicOf(users[*sess.ParticipantID])
	}
	if sess.CustomProblemID != nil {
		p, err := s.problems.GetByID(ctx, *sess.CustomProblemID)
		switch {
		case err == nil:
			view.CustomProblem = p
		case apperr.KindOf(err) == apperr.KindNotFound:
			// deleted since; the literal title is still on the session
		default:
			return nil, apperr.Internal(fmt.Errorf("resolve custom problem: %w", err))
		}
	}
	return view, nil
}

// Credentials issues call and chat tokens to the host or the participant of an active session.
func (s *Service) Credentials(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.JoinCredentials, error) {
	if s.creds == nil {
		return nil, ErrCredentials
	}
	sess, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if !sess.IsMember(caller.UserID) {
		return nil, ErrNotMember
	}
	if sess.Status == models.SessionStatusCompleted {
		return nil, ErrSessionAlreadyCompleted
	}
	creds, err := s.creds.Issue(sess.CallID, caller)
	if err != nil {
		return nil, ErrCredentials.Wrap(err)
	}
	creds.SessionID = sess.ID
	return creds, nil
}

func (s *Service) publish(ctx context.Context, event string, sess *models.Session) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), event, sess); err != nil {
		s.logger.Warn("publish session event failed",
			zap.String("event", event),
			zap.String("session_id", sess.ID.String()),
			zap.Error(err),
		)
	}
}

// storeErr passes taxonomy errors through and hides everything else as internal.
func storeErr(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}

func publicOf(u *models.User) *models.UserPublic {
	if u == nil {
		return nil
	}
	p := u.ToPublic()
	return &p
}

func recordTransition(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}
	metrics.SessionTransitions.WithLabelValues(op, result).Inc()
}
