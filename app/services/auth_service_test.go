package services_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/internal/ratelimit"
	"github.com/sesamoshop/tienda/internal/session"
	"github.com/sesamoshop/tienda/internal/store"
)

func newAuth(t *testing.T, maxAttempts int) (*services.AuthService, *session.Registry) {
	t.Helper()
	st := store.Open(filepath.Join(t.TempDir(), "database.json"))
	t.Cleanup(st.Close)

	sessions := session.NewRegistry(24 * time.Hour)
	limiter := ratelimit.New(maxAttempts, 15*time.Minute)
	return services.NewAuthService(st, sessions, limiter), sessions
}

func TestLoginWithSeededAdmin(t *testing.T) {
	auth, sessions := newAuth(t, 20)

	token, user, err := auth.Login("1.2.3.4", "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, "admin", user.Role)

	got, err := sessions.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestLoginWrongPassword(t *testing.T) {
	auth, _ := newAuth(t, 20)

	_, _, err := auth.Login("1.2.3.4", "admin", "nope")
	assert.ErrorIs(t, err, services.ErrBadCredentials)
}

func TestLoginUnknownUserAnswersLikeWrongPassword(t *testing.T) {
	auth, _ := newAuth(t, 20)

	_, _, err := auth.Login("1.2.3.4", "nadie", "admin123")
	assert.ErrorIs(t, err, services.ErrBadCredentials)
}

func TestLoginRateLimited(t *testing.T) {
	auth, _ := newAuth(t, 2)

	for i := 0; i < 2; i++ {
		_, _, err := auth.Login("1.2.3.4", "admin", "nope")
		require.ErrorIs(t, err, services.ErrBadCredentials)
	}

	// Third attempt from the same IP is cut off before the password check,
	// even with correct credentials.
	_, _, err := auth.Login("1.2.3.4", "admin", "admin123")
	assert.ErrorIs(t, err, services.ErrRateLimited)

	// A different IP is unaffected.
	_, _, err = auth.Login("5.6.7.8", "admin", "admin123")
	assert.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	auth, sessions := newAuth(t, 20)

	token, _, err := auth.Login("1.2.3.4", "admin", "admin123")
	require.NoError(t, err)

	auth.Logout(token)
	_, err = sessions.Validate(token)
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Unknown tokens are fine too.
	auth.Logout("deadbeef")
}
