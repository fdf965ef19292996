package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"

	"gorm.io/gorm"
)

const defaultUserCacheSize = 1000

// lru is a mutex guarded least-recently-used map.
type lru[K comparable, V any] struct {
	mu       sync.Mutex
	ll       *list.List
	items    map[K]*list.Element
	capacity int
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRU[K comparable, V any](capacity int) *lru[K, V] {
	if capacity <= 0 {
		capacity = defaultUserCacheSize
	}
	return &lru[K, V]{ll: list.New(), items: make(map[K]*list.Element), capacity: capacity}
}

func (c *lru[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[key]; ok {
		c.ll.MoveToFront(ele)
		return ele.Value.(lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

func (c *lru[K, V]) set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[key]; ok {
		c.ll.MoveToFront(ele)
		ele.Value = lruEntry[K, V]{key: key, value: value}
		return
	}
	c.items[key] = c.ll.PushFront(lruEntry[K, V]{key: key, value: value})
	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		delete(c.items, tail.Value.(lruEntry[K, V]).key)
		c.ll.Remove(tail)
	}
}

func (c *lru[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Contact is the name and email used for log lines and notification mails.
type Contact struct {
	Name  string
	Email string
}

var (
	contactMu    sync.RWMutex
	contactCache *lru[uint, Contact]
)

// InitUserContactCache (re)creates the contact cache. Capacity <= 0 uses
// the default of 1000 entries.
func InitUserContactCache(capacity int) {
	contactMu.Lock()
	defer contactMu.Unlock()
	contactCache = newLRU[uint, Contact](capacity)
}

// InitUserContactCacheFromEnv sizes the cache from USER_CONTACT_CACHE_SIZE.
func InitUserContactCacheFromEnv() {
	n, _ := strconv.Atoi(os.Getenv("USER_CONTACT_CACHE_SIZE"))
	InitUserContactCache(n)
}

func currentContactCache() *lru[uint, Contact] {
	contactMu.RLock()
	defer contactMu.RUnlock()
	return contactCache
}

// ForgetUserContact drops a cached entry, used after a profile changes.
func ForgetUserContact(userID uint) {
	c := currentContactCache()
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[userID]; ok {
		c.ll.Remove(ele)
		delete(c.items, userID)
	}
}

// GetUserContact returns the contact for userID from the cache, falling back
// to the users table. Unknown users yield a zero Contact.
func GetUserContact(db *gorm.DB, userID uint) Contact {
	if userID == 0 {
		return Contact{}
	}
	cache := currentContactCache()
	if cache != nil {
		if contact, ok := cache.get(userID); ok {
			return contact
		}
	}
	if db == nil {
		return Contact{}
	}
	var row Contact
	if err := db.Table("users").Select("name, email").Where("id = ? AND deleted_at IS NULL", userID).Take(&row).Error; err != nil {
		return Contact{}
	}
	if cache != nil && row.Email != "" {
		cache.set(userID, row)
	}
	return row
}

// GetUserEmail returns only the email part of GetUserContact.
func GetUserEmail(db *gorm.DB, userID uint) string {
	return GetUserContact(db, userID).Email
}
