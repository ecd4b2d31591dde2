package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamoshop/tienda/app/models"
)

var testUser = models.PublicUser{ID: 1, Username: "admin", Role: "admin"}

// newTestRegistry returns a registry with a controllable clock.
func newTestRegistry(ttl time.Duration) (*Registry, *time.Time) {
	r := NewRegistry(ttl)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }
	return r, &current
}

func TestValidateUntilExpiry(t *testing.T) {
	r, clock := newTestRegistry(24 * time.Hour)

	token, err := r.Create(testUser)
	require.NoError(t, err)
	require.Len(t, token, 64, "tokens are 32 random bytes hex encoded")

	got, err := r.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, testUser, got)

	// One second before expiry the session still validates.
	*clock = clock.Add(24*time.Hour - time.Second)
	_, err = r.Validate(token)
	assert.NoError(t, err)

	// At the expiry instant it does not, and the entry is evicted.
	*clock = clock.Add(time.Second)
	_, err = r.Validate(token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, r.Len())
}

func TestValidateUnknownToken(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)
	_, err := r.Validate("deadbeef")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRevoke(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)

	token, err := r.Create(testUser)
	require.NoError(t, err)

	r.Revoke(token)
	_, err = r.Validate(token)
	assert.ErrorIs(t, err, ErrNoSession)

	// Revoking again is a no-op.
	r.Revoke(token)
}

func TestTokensAreUnique(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := r.Create(testUser)
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}

func TestSweepExpired(t *testing.T) {
	r, clock := newTestRegistry(time.Hour)

	var fresh string
	for i := 0; i < 3; i++ {
		_, err := r.Create(testUser)
		require.NoError(t, err)
	}

	*clock = clock.Add(2 * time.Hour)
	var err error
	fresh, err = r.Create(testUser)
	require.NoError(t, err)

	assert.Equal(t, 3, r.SweepExpired())
	assert.Equal(t, 1, r.Len())

	_, err = r.Validate(fresh)
	assert.NoError(t, err)

	assert.Equal(t, 0, r.SweepExpired())
}
