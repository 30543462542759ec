package tumblr

import (
	"sync"
	"time"

	"github.com/deemkeen/reblog/domain"
)

type cachedPosts struct {
	posts   []domain.ExternalPost
	expires time.Time
}

// responseCache keeps successful upstream responses for ttl. A zero ttl
// disables it.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cachedPosts
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{ttl: ttl, entries: make(map[string]cachedPosts), now: time.Now}
}

func (c *responseCache) get(key string) ([]domain.ExternalPost, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]domain.ExternalPost(nil), e.posts...), true
}

func (c *responseCache) put(key string, posts []domain.ExternalPost) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cachedPosts{posts: append([]domain.ExternalPost(nil), posts...), expires: now.Add(c.ttl)}
}
