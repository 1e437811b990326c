package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chathub/internal/session"
	sessionmemory "github.com/chathub/internal/session/memory"
)

func TestSessionAuth(t *testing.T) {
	tokens := sessionmemory.New()
	token := session.NewToken()
	require.NoError(t, tokens.Set(context.Background(), token, "alice"))

	var seenUsername string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUsername = GetUsername(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := SessionAuth(tokens)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/user/update", nil)
	req.Header.Set("X-Session-Token", token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", seenUsername)

	// Query parameter fallback.
	req = httptest.NewRequest(http.MethodPost, "/api/user/update?session_token="+token, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Missing token.
	req = httptest.NewRequest(http.MethodPost, "/api/user/update", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"unauthorized"}`, rec.Body.String())

	// Unknown token.
	req = httptest.NewRequest(http.MethodPost, "/api/user/update", nil)
	req.Header.Set("X-Session-Token", "bogus")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3, 50*time.Millisecond)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("ip"))
	}
	assert.False(t, rl.allow("ip"))
	// Another key is tracked independently.
	assert.True(t, rl.allow("other"))
}
