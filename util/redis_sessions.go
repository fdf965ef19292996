package util

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotCached is returned by LookupSession when redis holds no entry
// for the token. Callers fall back to the sessions table.
var ErrSessionNotCached = errors.New("session not cached")

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// CacheSession mirrors a session row into redis as session:<token> ->
// "userID:role" and records the token in the per-user set. Both keys expire
// with the session.
func CacheSession(ctx context.Context, token string, userID uint, role string, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Set(ctx, sessionKey(token), fmt.Sprintf("%d:%s", userID, role), ttl).Err(); err != nil {
		return err
	}
	return AddSessionToUserSet(ctx, userID, token, ttl)
}

// AddSessionToUserSet adds the token to user_sessions:<id> and extends the
// set's TTL to exp.
func AddSessionToUserSet(ctx context.Context, userID uint, token string, exp time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSessionsKey(userID)
	if err := rdb.SAdd(ctx, key, token).Err(); err != nil {
		return err
	}
	return rdb.Expire(ctx, key, exp).Err()
}

// LookupSession resolves a token through redis.
func LookupSession(ctx context.Context, token string) (uint, string, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, "", ErrSessionNotCached
	}
	val, err := rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, "", ErrSessionNotCached
	}
	if err != nil {
		return 0, "", err
	}
	return parseSessionValue(val)
}

func parseSessionValue(val string) (uint, string, error) {
	idPart, role, ok := strings.Cut(val, ":")
	if !ok || role == "" {
		return 0, "", fmt.Errorf("malformed session value %q", val)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("malformed session value %q", val)
	}
	return uint(id), role, nil
}

// DropSession removes one cached session, used on logout.
func DropSession(ctx context.Context, userID uint, token string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return err
	}
	return rdb.SRem(ctx, userSessionsKey(userID), token).Err()
}

// InvalidateUserSessions deletes every cached session of a user and the
// per-user set itself.
func InvalidateUserSessions(ctx context.Context, userID uint) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	key := userSessionsKey(userID)
	members, err := rdb.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, tok := range members {
		if err := rdb.Del(ctx, sessionKey(tok)).Err(); err != nil {
			return err
		}
	}
	return rdb.Del(ctx, key).Err()
}
