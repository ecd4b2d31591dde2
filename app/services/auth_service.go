// Package services holds the application logic between the HTTP controllers
// and the store.
package services

import (
	"errors"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/internal/ratelimit"
	"github.com/sesamoshop/tienda/internal/session"
	"github.com/sesamoshop/tienda/internal/store"
	"github.com/sesamoshop/tienda/pkg/auth"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/metrics"
)

// ErrBadCredentials is returned for an unknown username or wrong password.
// Both cases answer the same so usernames cannot be probed.
var ErrBadCredentials = errors.New("usuario o contraseña incorrectos")

// ErrRateLimited is returned when an IP exhausted its login attempts.
var ErrRateLimited = errors.New("demasiados intentos de inicio de sesión, inténtalo más tarde")

// AuthService authenticates admins against the store's user list and issues
// sessions.
type AuthService struct {
	st       *store.Store
	sessions *session.Registry
	limiter  *ratelimit.Limiter
}

func NewAuthService(st *store.Store, sessions *session.Registry, limiter *ratelimit.Limiter) *AuthService {
	return &AuthService{st: st, sessions: sessions, limiter: limiter}
}

// Login checks the credentials and, on success, creates a session. Attempts
// are rate limited per client IP before the password is even looked at.
func (s *AuthService) Login(ip, username, password string) (string, models.PublicUser, error) {
	if !s.limiter.Allow(ip) {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		logger.Warn("auth: login rate limited", "ip", ip)
		return "", models.PublicUser{}, ErrRateLimited
	}

	var found *models.User
	s.st.View(func(doc *models.Document) {
		for i := range doc.Users {
			if doc.Users[i].Username == username {
				u := doc.Users[i]
				found = &u
				return
			}
		}
	})

	if found == nil || !auth.CheckPassword(found.PasswordHash, password) {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		logger.Warn("auth: login failed", "username", username, "ip", ip)
		return "", models.PublicUser{}, ErrBadCredentials
	}

	user := found.Public()
	token, err := s.sessions.Create(user)
	if err != nil {
		return "", models.PublicUser{}, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	logger.Info("auth: login", "username", username, "user_id", user.ID)
	return token, user, nil
}

// Logout revokes the session. Revoking an unknown token is not an error.
func (s *AuthService) Logout(token string) {
	s.sessions.Revoke(token)
}
