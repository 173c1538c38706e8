package middlewares

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/go-chi/render"

	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/log"
)

// MaxBodySize bounds the JSON bodies the API accepts.
const MaxBodySize = 1 << 20

// Authenticated admits requests carrying a valid session token, either as a
// bearer Authorization header or as the sessionToken field of the JSON body.
func Authenticated(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(SessionToken, oauth.Authorize(secret, nil), user).Handler(next)
	}
}

// SessionToken lifts the sessionToken body field into the Authorization
// header, leaving the body readable by the next handler.
func SessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "" || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}
		if len(body) > MaxBodySize {
			httpx.LogStatus(w, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.body_too_large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var peek struct {
			SessionToken string `json:"sessionToken"`
		}
		if render.DecodeJSON(bytes.NewReader(body), &peek) == nil && peek.SessionToken != "" {
			r.Header.Set("authorization", "Bearer "+peek.SessionToken)
		}

		next.ServeHTTP(w, r)
	})
}

func user(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if User(r) == "" {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "session.no_user")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// User is the username the request's session token was issued to.
func User(r *http.Request) string {
	username, _ := r.Context().Value(oauth.CredentialContext).(string)
	return username
}
