package auth

import (
	"context"
	"testing"
	"time"

	"github.com/mkovacevic/shopfront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *MemorySessionStore) {
	t.Helper()

	users := store.New()
	require.NoError(t, users.Seed(context.Background(), store.SeedParams{
		AdminPassword: "test-admin-pass",
		BcryptCost:    4, // min cost, to keep tests fast
	}))

	sessions := NewMemorySessionStore(time.Hour)
	return NewService(users, sessions, 4), sessions
}

func TestNewService_decoyMatchesConfiguredCost(t *testing.T) {
	users := store.New()
	sessions := NewMemorySessionStore(time.Hour)

	// the decoy compared on a username miss must cost the same as the
	// stored hashes, otherwise the two failure paths differ in timing
	for _, bcryptCost := range []int{4, 10, 12} {
		service := NewService(users, sessions, bcryptCost)
		cost, err := bcrypt.Cost([]byte(service.decoyPasswordHash))
		require.NoError(t, err)
		assert.Equal(t, bcryptCost, cost)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	token, err := service.Login(ctx, "alice_wonder", "R@bbitH0le#1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := service.Authorize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 3, principal.ID)
	assert.Equal(t, "alice_wonder", principal.Username)
}

func TestLogin_invalidCredentials(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	// unknown username and wrong password fail with the very same error,
	// so nothing downstream can leak which one it was
	_, errUnknownUser := service.Login(ctx, "who_dis", "R@bbitH0le#1")
	require.ErrorIs(t, errUnknownUser, ErrInvalidCredentials)

	_, errWrongPass := service.Login(ctx, "alice_wonder", "wrong-password")
	require.ErrorIs(t, errWrongPass, ErrInvalidCredentials)

	assert.Equal(t, errUnknownUser.Error(), errWrongPass.Error())

	_, err := service.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	service, sessions := newTestService(t)

	_, err := service.Authorize(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = service.Authorize(ctx, "forged-token")
	assert.ErrorIs(t, err, ErrNoSession)

	now := time.Now()
	sessions.NowFunc = func() time.Time { return now }

	token, err := service.Login(ctx, "john_doe", "BlueSky$99!")
	require.NoError(t, err)

	principal, err := service.Authorize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "john_doe", principal.Username)

	// TTL elapsed, detected lazily on the next authorize call
	now = now.Add(61 * time.Minute)
	_, err = service.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	token, err := service.Login(ctx, "bob_builder", "FixIt!Fast2025")
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, token))

	_, err = service.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	// logging out an already destroyed session is not an error
	assert.NoError(t, service.Logout(ctx, token))
}
