package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairprep/backend/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   map[string]any
}

func newChatServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Query: map[string]string{}}
		for k := range r.URL.Query() {
			rec.Query[k] = r.URL.Query().Get(k)
		}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		reqs = append(reqs, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func testChatClient(url string) *ChatClient {
	return NewChatClient(config.ChatConfig{BaseURL: url, APIKey: "key", APISecret: "secret", ChannelType: "messaging"})
}

func TestChatClient_CreateChannelUsesQueryEndpoint(t *testing.T) {
	srv, reqs := newChatServer(t, http.StatusCreated)
	client := testChatClient(srv.URL)

	err := client.CreateChannel(context.Background(), "messaging", "session_1_abc", "Two Sum Session", "host_ext", []string{"host_ext"})
	require.NoError(t, err)
	require.Len(t, *reqs, 1)

	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/channels/messaging/session_1_abc/query", req.Path)
	assert.Equal(t, "key", req.Query["api_key"])
	assert.Equal(t, "jwt", req.Header.Get("Stream-Auth-Type"))

	data := req.Body["data"].(map[string]any)
	assert.Equal(t, "Two Sum Session", data["name"])
	assert.Equal(t, "host_ext", data["created_by_id"])
	assert.Equal(t, []any{"host_ext"}, data["members"])

	token, err := jwt.Parse(req.Header.Get("Authorization"), func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, true, token.Claims.(jwt.MapClaims)["server"])
}

func TestChatClient_AddMembersAndDelete(t *testing.T) {
	srv, reqs := newChatServer(t, http.StatusOK)
	client := testChatClient(srv.URL)

	require.NoError(t, client.AddMembers(context.Background(), "messaging", "session_1_abc", []string{"p_ext"}))
	require.NoError(t, client.DeleteChannel(context.Background(), "messaging", "session_1_abc"))
	require.Len(t, *reqs, 2)

	add := (*reqs)[0]
	assert.Equal(t, "/channels/messaging/session_1_abc", add.Path)
	assert.Equal(t, []any{"p_ext"}, add.Body["add_members"])

	del := (*reqs)[1]
	assert.Equal(t, http.MethodDelete, del.Method)
	assert.Equal(t, "true", del.Query["hard_delete"])
}

func TestChatClient_UpsertUser(t *testing.T) {
	srv, reqs := newChatServer(t, http.StatusCreated)
	client := testChatClient(srv.URL)

	require.NoError(t, client.UpsertUser(context.Background(), ChatUser{ID: "ext_1", Name: "Ada", Image: "https://img"}))
	req := (*reqs)[0]
	assert.Equal(t, "/users", req.Path)
	users := req.Body["users"].(map[string]any)
	assert.Equal(t, "Ada", users["ext_1"].(map[string]any)["name"])
}

func TestChatClient_ErrorStatusBecomesProviderError(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusNotFound)
	client := testChatClient(srv.URL)

	err := client.DeleteChannel(context.Background(), "messaging", "gone")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusNotFound, perr.Status)
	assert.True(t, isNotFound(err))
}

func TestChatClient_UserToken(t *testing.T) {
	client := testChatClient("http://unused")
	signed, err := client.UserToken("ext_1", 0)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "ext_1", token.Claims.(jwt.MapClaims)["user_id"])
}
