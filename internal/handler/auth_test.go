package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chathub/internal/middleware"
	"github.com/chathub/internal/presence"
	"github.com/chathub/internal/session"
	sessionmemory "github.com/chathub/internal/session/memory"
	"github.com/chathub/internal/store"
	"github.com/chathub/internal/store/memory"
	"github.com/chathub/internal/ws"
)

type testEnv struct {
	store  *store.Store
	tokens session.TokenStore
	hub    *ws.Hub
	auth   *AuthHandler
	groups *GroupHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(context.Background(), memory.New())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens := sessionmemory.New()
	hub := ws.NewHub(st, presence.NewRegistry(), nil)
	return &testEnv{
		store:  st,
		tokens: tokens,
		hub:    hub,
		auth:   NewAuthHandler(st, tokens, hub),
		groups: NewGroupHandler(st, hub),
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func postJSONAs(t *testing.T, h http.HandlerFunc, path string, body any, username string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UsernameKey, username))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := postJSON(t, env.auth.Register, "/api/register", registerRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.User.ID)

	// Duplicate username.
	rec = postJSON(t, env.auth.Register, "/api/register", registerRequest{
		Username: "alice", Password: "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing password.
	rec = postJSON(t, env.auth.Register, "/api/register", registerRequest{Username: "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	postJSON(t, env.auth.Register, "/api/register", registerRequest{Username: "alice", Password: "secret"})

	rec := postJSON(t, env.auth.Login, "/api/login", loginRequest{Username: "alice", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)

	username, err := env.tokens.Get(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	postJSON(t, env.auth.Register, "/api/register", registerRequest{Username: "alice", Password: "secret"})

	rec := postJSON(t, env.auth.Login, "/api/login", loginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, env.auth.Login, "/api/login", loginRequest{Username: "nobody", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateUserRequiresMatchingSession(t *testing.T) {
	env := newTestEnv(t)
	postJSON(t, env.auth.Register, "/api/register", registerRequest{Username: "alice", Password: "secret"})

	avatar := "cat.png"
	var req updateRequest
	req.Username = "alice"
	req.Updates.Avatar = &avatar

	rec := postJSONAs(t, env.auth.UpdateUser, "/api/user/update", req, "mallory")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postJSONAs(t, env.auth.UpdateUser, "/api/user/update", req, "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cat.png", resp.User.Avatar)

	user, err := env.store.FindUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", user.Avatar)
}

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t)
	postJSON(t, env.auth.Register, "/api/register", registerRequest{Username: "alice", Password: "secret"})
	postJSON(t, env.auth.Register, "/api/register", registerRequest{Username: "bob", Password: "secret"})

	rec := postJSONAs(t, env.groups.Create, "/api/groups/create", createGroupRequest{
		Name: "team", Members: []string{"bob"}, CreatedBy: "alice",
	}, "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp createGroupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Group)
	assert.ElementsMatch(t, []string{"alice", "bob"}, resp.Group.Members)
	assert.Equal(t, "alice", resp.Group.CreatedBy)

	// Acting as someone else is rejected.
	rec = postJSONAs(t, env.groups.Create, "/api/groups/create", createGroupRequest{
		Name: "sneaky", CreatedBy: "alice",
	}, "bob")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
