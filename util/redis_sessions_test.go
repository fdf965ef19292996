package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisMock(t *testing.T) redismock.ClientMock {
	t.Helper()
	db, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(db)
	t.Cleanup(func() {
		config.SetRedisClientForTest(nil)
		_ = db.Close()
	})
	return mock
}

func TestCacheSession(t *testing.T) {
	mock := setupRedisMock(t)
	ctx := context.Background()
	ttl := 24 * time.Hour

	mock.ExpectSet("session:tok-1", "12:student", ttl).SetVal("OK")
	mock.ExpectSAdd("user_sessions:12", "tok-1").SetVal(1)
	mock.ExpectExpire("user_sessions:12", ttl).SetVal(true)

	require.NoError(t, CacheSession(ctx, "tok-1", 12, "student", ttl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheSession_SetError(t *testing.T) {
	mock := setupRedisMock(t)
	mock.ExpectSet("session:tok-1", "12:student", time.Hour).SetErr(errors.New("redis down"))

	err := CacheSession(context.Background(), "tok-1", 12, "student", time.Hour)
	assert.EqualError(t, err, "redis down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupSession(t *testing.T) {
	mock := setupRedisMock(t)
	ctx := context.Background()

	mock.ExpectGet("session:good").SetVal("7:doctor")
	id, role, err := LookupSession(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, "doctor", role)

	mock.ExpectGet("session:missing").RedisNil()
	_, _, err = LookupSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotCached)

	mock.ExpectGet("session:broken").SetVal("nope")
	_, _, err = LookupSession(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotCached)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupSession_NoRedis(t *testing.T) {
	config.SetRedisClientForTest(nil)
	_, _, err := LookupSession(context.Background(), "any")
	assert.ErrorIs(t, err, ErrSessionNotCached)
}

func TestParseSessionValue(t *testing.T) {
	tests := []struct {
		val     string
		id      uint
		role    string
		wantErr bool
	}{
		{"1:admin", 1, "admin", false},
		{"42:university_admin", 42, "university_admin", false},
		{"0:admin", 0, "", true},
		{"x:admin", 0, "", true},
		{"5:", 0, "", true},
		{"5", 0, "", true},
	}
	for _, tt := range tests {
		id, role, err := parseSessionValue(tt.val)
		if tt.wantErr {
			assert.Error(t, err, tt.val)
			continue
		}
		assert.NoError(t, err, tt.val)
		assert.Equal(t, tt.id, id)
		assert.Equal(t, tt.role, role)
	}
}

func TestDropSession(t *testing.T) {
	mock := setupRedisMock(t)
	mock.ExpectDel("session:tok").SetVal(1)
	mock.ExpectSRem("user_sessions:3", "tok").SetVal(1)

	require.NoError(t, DropSession(context.Background(), 3, "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateUserSessions(t *testing.T) {
	mock := setupRedisMock(t)
	mock.ExpectSMembers("user_sessions:9").SetVal([]string{"a", "b"})
	mock.ExpectDel("session:a").SetVal(1)
	mock.ExpectDel("session:b").SetVal(1)
	mock.ExpectDel("user_sessions:9").SetVal(1)

	require.NoError(t, InvalidateUserSessions(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionHelpers_NoRedisAreNoops(t *testing.T) {
	config.SetRedisClientForTest(nil)
	ctx := context.Background()
	assert.NoError(t, CacheSession(ctx, "t", 1, "student", time.Minute))
	assert.NoError(t, DropSession(ctx, 1, "t"))
	assert.NoError(t, InvalidateUserSessions(ctx, 1))
}
