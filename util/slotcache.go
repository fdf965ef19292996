package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/ariebrainware/mindery/slot"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// SlotCacheTTL bounds how long a doctor's stored schedule is served from redis.
const SlotCacheTTL = 10 * time.Minute

func doctorSlotsKey(doctorID uint) string {
	return fmt.Sprintf("doctor_slots:%d", doctorID)
}

// CachedDateSlots returns a doctor's stored schedule from redis. The second
// result is false on a miss, when redis is disabled, or on any redis error.
func CachedDateSlots(ctx context.Context, doctorID uint) (slot.DateSlots, bool) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil, false
	}
	raw, err := rdb.Get(ctx, doctorSlotsKey(doctorID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("slot cache read failed for doctor %d: %v", doctorID, err)
		}
		return nil, false
	}
	var ds slot.DateSlots
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, false
	}
	return ds, true
}

// CacheDateSlots stores a doctor's schedule. Failures are logged only.
func CacheDateSlots(ctx context.Context, doctorID uint, ds slot.DateSlots) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	raw, err := json.Marshal(ds)
	if err != nil {
		return
	}
	if err := rdb.Set(ctx, doctorSlotsKey(doctorID), string(raw), SlotCacheTTL).Err(); err != nil {
		log.Printf("slot cache write failed for doctor %d: %v", doctorID, err)
	}
}

// InvalidateDateSlots drops the cached schedule after it was replaced.
func InvalidateDateSlots(ctx context.Context, doctorID uint) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, doctorSlotsKey(doctorID)).Err(); err != nil {
		log.Printf("slot cache invalidation failed for doctor %d: %v", doctorID, err)
	}
}

// directory holds the public doctor and university listings.
var directory = cache.New(time.Minute, 5*time.Minute)

// CachedDirectory returns a listing stored under key.
func CachedDirectory(key string) (interface{}, bool) {
	return directory.Get(key)
}

// StoreDirectory caches a listing under key with the default expiry.
func StoreDirectory(key string, v interface{}) {
	directory.Set(key, v, cache.DefaultExpiration)
}

// FlushDirectory drops every cached listing, called after any doctor or
// university write.
func FlushDirectory() {
	directory.Flush()
}
