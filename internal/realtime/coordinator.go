package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pairprep/backend/internal/apperr"
	"github.com/pairprep/backend/internal/metrics"
)

// CallProvider manages video calls.
type CallProvider interface {
	CreateCall(ctx context.Context, kind, callID string, metadata map[string]string) error
	DeleteCall(ctx context.Context, callID string) error
}

// ChannelProvider manages chat channels.
type ChannelProvider interface {
	CreateChannel(ctx context.Context, channelType, id, name, creatorID string, members []string) error
	AddMembers(ctx context.Context, channelType, id string, members []string) error
	DeleteChannel(ctx context.Context, channelType, id string) error
}

// ChannelSpec describes a chat channel to create.
type ChannelSpec struct {
	Type              string
	Name              string
	CreatorExternalID string
	Members           []string
}

const (
	opCreateCall       = "create_call"
	opDeleteCall       = "delete_call"
	opCreateChannel    = "create_channel"
	opAddChannelMember = "add_channel_member"
	opDeleteChannel    = "delete_channel"
)

// Coordinator is the session-facing facade over the call and chat providers.
// Every operation is bounded by RetryConfig and is safe to retry: creates are
// create-or-get and deletes treat a missing resource as already deleted.
type Coordinator struct {
	calls       CallProvider
	channels    ChannelProvider
	channelType string
	retry       RetryConfig
	logger      *zap.Logger
}

// NewCoordinator creates a realtime coordinator.
func NewCoordinator(calls CallProvider, channels ChannelProvider, channelType string, retry RetryConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channelType == "" {
		channelType = "messaging"
	}
	return &Coordinator{
		calls:       calls,
		channels:    channels,
		channelType: channelType,
		retry:       retry,
		logger:      logger,
	}
}

// CreateCall creates the video call or returns the existing one.
func (c *Coordinator) CreateCall(ctx context.Context, kind, callID string, metadata map[string]string) error {
	return c.do(ctx, opCreateCall, callID, false, func(ctx context.Context) error {
		return c.calls.CreateCall(ctx, kind, callID, metadata)
	})
}

// DeleteCall hard-deletes the video call.
func (c *Coordinator) DeleteCall(ctx context.Context, callID string) error {
	return c.do(ctx, opDeleteCall, callID, true, func(ctx context.Context) error {
		return c.calls.DeleteCall(ctx, callID)
	})
}

// CreateChannel gets or creates the chat channel.
func (c *Coordinator) CreateChannel(ctx context.Context, channelID string, spec ChannelSpec) error {
	channelType := spec.Type
	if channelType == "" {
		channelType = c.channelType
	}
	return c.do(ctx, opCreateChannel, channelID, false, func(ctx context.Context) error {
		return c.channels.CreateChannel(ctx, channelType, channelID, spec.Name, spec.CreatorExternalID, spec.Members)
	})
}

// AddChannelMember adds one user to the chat channel.
func (c *Coordinator) AddChannelMember(ctx context.Context, channelID, externalID string) error {
	return c.do(ctx, opAddChannelMember, channelID, false, func(ctx context.Context) error {
		return c.channels.AddMembers(ctx, c.channelType, channelID, []string{externalID})
	})
}

// DeleteChannel hard-deletes the chat channel.
func (c *Coordinator) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, opDeleteChannel, channelID, true, func(ctx context.Context) error {
		return c.channels.DeleteChannel(ctx, c.channelType, channelID)
	})
}

func (c *Coordinator) do(ctx context.Context, op, id string, missingOK bool, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := withRetry(ctx, c.retry, c.logger, op, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && missingOK && isNotFound(err) {
			c.logger.Debug("realtime resource already gone", zap.String("operation", op), zap.String("id", id))
			return nil
		}
		return err
	})
	metrics.RealtimeCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RealtimeCalls.WithLabelValues(op, metrics.OutcomeError).Inc()
		return apperr.External("realtime_unavailable", "realtime provider call failed: "+op, err)
	}
	metrics.RealtimeCalls.WithLabelValues(op, metrics.OutcomeOK).Inc()
	return nil
}
