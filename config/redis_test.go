package config

import (
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

// withEnv sets environment variables for the duration of the test and resets
// the redis singleton so ConnectRedis re-reads them.
func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
	ResetRedisClientForTest()
	t.Cleanup(ResetRedisClientForTest)
}

func TestConnectRedis_Disabled(t *testing.T) {
	withEnv(t, map[string]string{"APPENV": "", "REDIS_ENABLED": "false"})
	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_DefaultIsDisabled(t *testing.T) {
	withEnv(t, map[string]string{"APPENV": "", "REDIS_ENABLED": ""})
	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_SkippedInTestEnv(t *testing.T) {
	withEnv(t, map[string]string{"APPENV": "test", "REDIS_ENABLED": "true"})
	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_UnreachableAddress(t *testing.T) {
	withEnv(t, map[string]string{"APPENV": "", "REDIS_ENABLED": "true", "REDIS_ADDR": "127.0.0.1:1"})
	rdb, err := ConnectRedis()
	assert.Error(t, err)
	assert.Nil(t, rdb)
	assert.Nil(t, GetRedisClient())
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("REDIS_DB", "5")
	opts := RedisOptions()
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 5, opts.DB)

	t.Setenv("REDIS_DB", "invalid")
	assert.Equal(t, 0, RedisOptions().DB)
}

func TestConnectRedis_ConcurrentCalls(t *testing.T) {
	withEnv(t, map[string]string{"APPENV": "", "REDIS_ENABLED": "false"})

	type callResult struct {
		isNil bool
		err   error
	}
	done := make(chan callResult, 5)
	for i := 0; i < 5; i++ {
		go func() {
			rdb, err := ConnectRedis()
			done <- callResult{isNil: rdb == nil, err: err}
		}()
	}
	for i := 0; i < 5; i++ {
		res := <-done
		assert.NoError(t, res.err)
		assert.True(t, res.isNil)
	}
}

func TestRedisTestHelpers_SetAndReset(t *testing.T) {
	original := GetRedisClient()
	defer SetRedisClientForTest(original)

	mock, _ := redismock.NewClientMock()
	SetRedisClientForTest(mock)
	assert.Same(t, mock, GetRedisClient())

	ResetRedisClientForTest()
	assert.Nil(t, GetRedisClient())
}
