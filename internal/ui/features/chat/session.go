package chat

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// NewSessionStore returns the cookie store that remembers which
// conversations a browser started. secure marks the cookie Secure, which
// keeps browsers from returning it over plain HTTP.
func NewSessionStore(secret, path string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400) // 1 day
	if path == "" {
		path = "/"
	}
	store.Options.Path = path
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}
