package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/pairprep/backend/config"
)

// roomService is the subset of the LiveKit room API used for calls.
type roomService interface {
	CreateRoom(ctx context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error)
	DeleteRoom(ctx context.Context, req *livekit.DeleteRoomRequest) (*livekit.DeleteRoomResponse, error)
}

// LiveKitCalls implements CallProvider with one LiveKit room per call.
type LiveKitCalls struct {
	rooms        roomService
	url          string
	apiKey       string
	apiSecret    string
	emptyTimeout time.Duration
	tokenTTL     time.Duration
}

// NewLiveKitCalls creates a LiveKit-backed call provider.
func NewLiveKitCalls(cfg config.LiveKitConfig) *LiveKitCalls {
	return &LiveKitCalls{
		rooms:        lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret),
		url:          cfg.URL,
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		emptyTimeout: cfg.EmptyTimeout,
		tokenTTL:     cfg.TokenTTL,
	}
}

// callMetadata is stored as the room metadata so the call carries its session context.
type callMetadata struct {
	Kind   string            `json:"kind"`
	Custom map[string]string `json:"custom,omitempty"`
}

// CreateCall creates the room or returns the existing one with the same name.
// Capacity is host + one participant.
func (l *LiveKitCalls) CreateCall(ctx context.Context, kind, callID string, metadata map[string]string) error {
	meta, err := json.Marshal(callMetadata{Kind: kind, Custom: metadata})
	if err != nil {
		return fmt.Errorf("marshal call metadata: %w", err)
	}
	_, err = l.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:            callID,
		EmptyTimeout:    uint32(l.emptyTimeout / time.Second),
		MaxParticipants: 2,
		Metadata:        string(meta),
	})
	return err
}

// DeleteCall removes the room and disconnects everyone in it. LiveKit has no soft delete.
func (l *LiveKitCalls) DeleteCall(ctx context.Context, callID string) error {
	_, err := l.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: callID})
	return err
}

// CallToken issues a join token for the call's room.
func (l *LiveKitCalls) CallToken(callID, identity, name string) (string, error) {
	canPublish := true
	canSubscribe := true
	canPublishData := true
	at := auth.NewAccessToken(l.apiKey, l.apiSecret)
	at.AddGrant(&auth.VideoGrant{
		RoomJoin:       true,
		Room:           callID,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(l.tokenTTL)
	return at.ToJWT()
}

// URL is the endpoint clients connect to.
func (l *LiveKitCalls) URL() string {
	return l.url
}
