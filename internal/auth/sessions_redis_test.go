package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStore_create(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()

	sessions := NewRedisSessionStore(time.Hour, db)
	testToken := "test_token"
	sessions.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	mock.ExpectSet(
		sessionKeyPrefix+testToken,
		`{"id":3,"username":"alice_wonder"}`,
		time.Hour,
	).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := sessions.Create(ctx, Principal{ID: 3, Username: "alice_wonder"})
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStore_get(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	sessions := NewRedisSessionStore(time.Hour, db)

	mock.ExpectGet(sessionKeyPrefix + "test_token").
		SetVal(`{"id":3,"username":"alice_wonder"}`)
	principal, err := sessions.Get(ctx, "test_token")
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: 3, Username: "alice_wonder"}, *principal)

	// missing or expired key reads as no session
	mock.ExpectGet(sessionKeyPrefix + "gone_token").RedisNil()
	_, err = sessions.Get(ctx, "gone_token")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStore_destroy(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	sessions := NewRedisSessionStore(time.Hour, db)

	mock.ExpectDel(sessionKeyPrefix + "test_token").SetVal(1)
	mock.ExpectSRem(tokensSetKey, "test_token").SetVal(1)

	require.NoError(t, sessions.Destroy(ctx, "test_token"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionStore_scanAndClean(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	sessions := NewRedisSessionStore(time.Hour, db)

	mock.ExpectSMembers(tokensSetKey).SetVal([]string{"live_token", "stale_token"})
	mock.ExpectExists(sessionKeyPrefix + "live_token").SetVal(1)
	mock.ExpectExists(sessionKeyPrefix + "stale_token").SetVal(0)
	mock.ExpectSRem(tokensSetKey, "stale_token").SetVal(1)

	sessions.ScanAndClean(ctx)
	assert.NoError(t, mock.ExpectationsWereMet())
}
