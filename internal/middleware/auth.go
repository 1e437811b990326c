package middleware

import (
	"context"
	"net/http"

	"github.com/chathub/internal/session"
)

// SessionAuth validates the X-Session-Token header (or session_token query
// parameter) against tokens and puts the resolved username on the context.
// Requests without a valid token get a JSON 401.
func SessionAuth(tokens session.TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Session-Token")
			if token == "" {
				token = r.URL.Query().Get("session_token")
			}
			if token == "" {
				unauthorized(w)
				return
			}
			username, err := tokens.Get(r.Context(), token)
			if err != nil || username == "" {
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), UsernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"unauthorized"}`))
}
