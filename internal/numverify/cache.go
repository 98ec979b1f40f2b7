package numverify

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Session is the reusable part of a handshake: steps one and two.
type Session struct {
	Credentials ClientCredentials
	Metadata    ProviderMetadata
}

// SessionCache keeps sessions for a short time. A nil *SessionCache is valid
// and caches nothing.
type SessionCache struct {
	cache *ttlcache.Cache[string, Session]
}

// NewSessionCache returns nil when ttl is not positive.
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		return nil
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, Session](ttl),
		ttlcache.WithDisableTouchOnHit[string, Session](),
	)
	return &SessionCache{cache: cache}
}

// Start runs the expiry loop until Stop is called.
func (c *SessionCache) Start() {
	if c != nil {
		c.cache.Start()
	}
}

// Stop ends the expiry loop.
func (c *SessionCache) Stop() {
	if c != nil {
		c.cache.Stop()
	}
}

func (c *SessionCache) Get(key string) (Session, bool) {
	if c == nil {
		return Session{}, false
	}
	item := c.cache.Get(key)
	if item == nil {
		return Session{}, false
	}
	return item.Value(), true
}

func (c *SessionCache) Set(key string, s Session) {
	if c != nil {
		c.cache.Set(key, s, ttlcache.DefaultTTL)
	}
}

// Invalidate drops key so the next request repeats the full handshake.
func (c *SessionCache) Invalidate(key string) {
	if c != nil {
		c.cache.Delete(key)
	}
}

func (c *SessionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
