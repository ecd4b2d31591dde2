// Package session keeps authentication state in memory. Tokens are opaque
// and server-revocable; a process restart deliberately invalidates every
// session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/pkg/auth"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/metrics"
)

// ErrNoSession is returned by Validate for unknown, expired, or revoked
// tokens. Callers must treat it as "re-authenticate".
var ErrNoSession = errors.New("session: no session")

// Session ties an opaque token to an authenticated user for a limited time.
type Session struct {
	Token     string
	User      models.PublicUser
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Registry is the in-memory token table.
type Registry struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// NewRegistry creates a registry whose sessions live for ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Create mints a token for user and registers the session.
func (r *Registry) Create(user models.PublicUser) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}

	now := r.now()
	r.mu.Lock()
	r.sessions[token] = Session{
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	return token, nil
}

// Validate returns the user bound to token. An expired entry is evicted on
// the spot; the periodic sweep is purely memory reclamation.
func (r *Registry) Validate(token string) (models.PublicUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[token]
	if !ok {
		return models.PublicUser{}, ErrNoSession
	}
	if !sess.ExpiresAt.After(r.now()) {
		delete(r.sessions, token)
		metrics.SessionsActive.Set(float64(len(r.sessions)))
		logger.Info("session: expired token evicted", "token", shorten(token))
		return models.PublicUser{}, ErrNoSession
	}
	return sess.User, nil
}

// Revoke removes token unconditionally. Idempotent.
func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()
}

// SweepExpired evicts every expired session and returns how many were
// removed. Scheduled once per minute.
func (r *Registry) SweepExpired() int {
	now := r.now()

	r.mu.Lock()
	removed := 0
	for token, sess := range r.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	if removed > 0 {
		logger.Info("session: sweep evicted expired sessions", "count", removed)
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// shorten truncates a token for logging; full tokens never hit the logs.
func shorten(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
