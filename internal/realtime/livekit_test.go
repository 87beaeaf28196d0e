package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairprep/backend/internal/models"
)

type fakeRooms struct {
	created *livekit.CreateRoomRequest
	deleted *livekit.DeleteRoomRequest
}

func (f *fakeRooms) CreateRoom(_ context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error) {
	f.created = req
	return &livekit.Room{Name: req.Name}, nil
}

func (f *fakeRooms) DeleteRoom(_ context.Context, req *livekit.DeleteRoomRequest) (*livekit.DeleteRoomResponse, error) {
	f.deleted = req
	return &livekit.DeleteRoomResponse{}, nil
}

func TestLiveKitCalls_CreateAndDelete(t *testing.T) {
	rooms := &fakeRooms{}
	calls := &LiveKitCalls{rooms: rooms, emptyTimeout: 10 * time.Minute}

	err := calls.CreateCall(context.Background(), "default", "session_1_abc", map[string]string{"difficulty": "easy"})
	require.NoError(t, err)
	require.NotNil(t, rooms.created)
	assert.Equal(t, "session_1_abc", rooms.created.Name)
	assert.Equal(t, uint32(600), rooms.created.EmptyTimeout)
	assert.Equal(t, uint32(2), rooms.created.MaxParticipants)

	var meta callMetadata
	require.NoError(t, json.Unmarshal([]byte(rooms.created.Metadata), &meta))
	assert.Equal(t, "default", meta.Kind)
	assert.Equal(t, "easy", meta.Custom["difficulty"])

	require.NoError(t, calls.DeleteCall(context.Background(), "session_1_abc"))
	assert.Equal(t, "session_1_abc", rooms.deleted.Room)
}

func TestLiveKitCalls_CallTokenGrantsRoom(t *testing.T) {
	calls := &LiveKitCalls{apiKey: "devkey", apiSecret: "devsecret-devsecret-devsecret-32", tokenTTL: time.Hour}

	token, err := calls.CallToken("session_1_abc", "ext_1", "Ada")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("devsecret-devsecret-devsecret-32"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "devkey", claims["iss"])
	assert.Equal(t, "ext_1", claims["sub"])
	video, ok := claims["video"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "session_1_abc", video["room"])
	assert.Equal(t, true, video["roomJoin"])
}

func TestCredentials_IssueSignsBothTokens(t *testing.T) {
	calls := &LiveKitCalls{url: "wss://calls.example", apiKey: "devkey", apiSecret: "devsecret-devsecret-devsecret-32", tokenTTL: time.Hour}
	chat := testChatClient("http://unused")
	creds := NewCredentials(calls, chat, time.Hour)

	got, err := creds.Issue("session_1_abc", models.Caller{ExternalID: "ext_1", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "session_1_abc", got.CallID)
	assert.Equal(t, "session_1_abc", got.ChannelID)
	assert.Equal(t, "wss://calls.example", got.CallURL)
	assert.Equal(t, "key", got.ChatAPIKey)
	assert.Equal(t, "messaging", got.ChannelType)
	assert.Equal(t, "ext_1", got.ChatUserID)
	assert.NotEmpty(t, got.CallToken)
	assert.NotEmpty(t, got.ChatToken)
}
