// Package auth implements the signed session cookie used by the API.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/garage-invoices/httpx"
)

type ctxKey string

const (
	sessionCookieName = "session"
	userIDCtxKey      = ctxKey("userID")
	sessionTTL        = 14 * 24 * time.Hour
	defaultSecret     = "devsessionsecret"
)

// UserVerifier is an optional callback to validate that a session's user still exists.
// Set it during app bootstrap via SetUserVerifier. If nil, no extra verification is performed.
// An error means the check itself failed, not that the user is gone.
type UserVerifier func(ctx context.Context, uid uint) (bool, error)

var (
	mu       sync.RWMutex
	verifier UserVerifier
	secret   = defaultSecret
)

// SetUserVerifier configures the global verifier used by RequireAuth.
func SetUserVerifier(v UserVerifier) {
	mu.Lock()
	defer mu.Unlock()
	verifier = v
}

// SetSecret sets the HMAC key used to sign session cookies. An empty value
// restores the development default.
func SetSecret(s string) {
	mu.Lock()
	defer mu.Unlock()
	if s == "" {
		s = defaultSecret
	}
	secret = s
}

// Secret returns the current signing key.
func Secret() string {
	mu.RLock()
	defer mu.RUnlock()
	return secret
}

func sign(uidStr string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(uidStr))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie with the user id.
func CreateSession(w http.ResponseWriter, userID uint) {
	uidStr := strconv.FormatUint(uint64(userID), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    uidStr + "." + sign(uidStr),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates cookie and returns user id.
func ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	uidStr, sig, ok := strings.Cut(c.Value, ".")
	if !ok || strings.Contains(sig, ".") {
		return 0, false
	}
	if !hmac.Equal([]byte(sig), []byte(sign(uidStr))) {
		return 0, false
	}
	id64, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok
}

// Middleware attaches user id to request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := ParseSession(r); ok {
			r = r.WithContext(WithUserID(r.Context(), uid))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless the request carries a valid session for a
// user the verifier accepts.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		mu.RLock()
		v := verifier
		mu.RUnlock()
		if v != nil {
			exists, err := v(r.Context(), uid)
			if err != nil {
				// Keep the cookie: the session may still be valid.
				slog.ErrorContext(r.Context(), "session user lookup failed",
					slog.Uint64("user_id", uint64(uid)), slog.Any("error", err))
				httpx.JSONError(w, http.StatusServiceUnavailable, "service unavailable", nil)
				return
			}
			if !exists {
				ClearSession(w)
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
