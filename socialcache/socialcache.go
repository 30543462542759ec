// Package socialcache holds optimistic, client-local likes, reposts and
// comments for external posts, which have no server-side social state.
//
// The whole mapping is persisted under a single key after every mutation.
// Stored state is a projection for display only and is never synchronised.
package socialcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/localstore"
	"github.com/samber/lo"
)

const (
	StorageKey = "reblog.socialSim"

	DefaultMaxEntries = 1000
	DefaultMaxAge     = 90 * 24 * time.Hour
)

var (
	ErrCorrupt       = errors.New("corrupt social cache")
	ErrUnknownAction = errors.New("unknown social action")
)

type Action string

const (
	ActionLike     Action = "like"
	ActionUnlike   Action = "unlike"
	ActionRepost   Action = "repost"
	ActionUnrepost Action = "unrepost"
	ActionComment  Action = "comment"
)

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionLike, ActionUnlike, ActionRepost, ActionUnrepost, ActionComment:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

type CommentPayload struct {
	AuthorName   string
	AuthorAvatar string
	Text         string
}

// Config bounds the cache. Zero disables the respective bound.
type Config struct {
	MaxEntries int
	MaxAge     time.Duration
}

func DefaultConfig() Config {
	return Config{MaxEntries: DefaultMaxEntries, MaxAge: DefaultMaxAge}
}

type Cache struct {
	mu      sync.Mutex
	storage localstore.Storage
	cfg     Config
	entries map[string]State
	now     func() time.Time
}

// New loads the cache from storage. Unreadable or corrupt data starts an
// empty cache, which the next mutation overwrites.
func New(storage localstore.Storage, cfg Config) *Cache {
	c := &Cache{storage: storage, cfg: cfg, entries: make(map[string]State), now: time.Now}
	if err := c.load(); err != nil {
		slog.Warn("social cache reset", slog.Any("error", err))
		c.entries = make(map[string]State)
	}
	return c
}

func (c *Cache) load() error {
	data, err := c.storage.Load(StorageKey)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var entries map[string]State
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	for id, s := range entries {
		if id != "" {
			c.entries[id] = s
		}
	}
	return nil
}

// Query returns the state of postId. Unknown posts yield the empty state.
func (c *Cache) Query(postId string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[postId]
	if !ok {
		return emptyState()
	}
	return s.clone()
}

// Len reports the number of posts with cached state.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Apply performs action by userId on postId and persists the whole cache.
// like and repost are idempotent; comment always appends. The returned
// state reflects the mutation even when persisting fails.
func (c *Cache) Apply(action Action, postId, userId string, payload *CommentPayload) (State, error) {
	if strings.TrimSpace(postId) == "" {
		return emptyState(), domain.NewValidationError(domain.ReasonInvalidInput, "post id is required")
	}
	if strings.TrimSpace(userId) == "" {
		return emptyState(), domain.NewValidationError(domain.ReasonInvalidInput, "user id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[postId]
	if !ok {
		s = emptyState()
	} else {
		s = s.clone()
	}

	switch action {
	case ActionLike:
		s.LikedBy = add(s.LikedBy, userId)
	case ActionUnlike:
		s.LikedBy = remove(s.LikedBy, userId)
	case ActionRepost:
		s.RepostedBy = add(s.RepostedBy, userId)
	case ActionUnrepost:
		s.RepostedBy = remove(s.RepostedBy, userId)
	case ActionComment:
		if payload == nil || strings.TrimSpace(payload.Text) == "" {
			return s, domain.NewValidationError(domain.ReasonInvalidInput, "comment text is required")
		}
		s.Comments = append(s.Comments, Comment{
			User:      CommentAuthor{Id: userId, Name: payload.AuthorName, Avatar: payload.AuthorAvatar},
			Text:      strings.TrimSpace(payload.Text),
			CreatedAt: c.now().UTC(),
		})
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	s.UpdatedAt = c.now().UTC()
	c.entries[postId] = s
	c.evict(postId)

	if err := c.save(); err != nil {
		slog.Warn("social cache not persisted", slog.String("post_id", postId), slog.Any("error", err))
		return s.clone(), err
	}
	return s.clone(), nil
}

func (c *Cache) save() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	return c.storage.Save(StorageKey, data)
}

// evict drops entries older than MaxAge, then the least recently updated
// entries beyond MaxEntries. The entry just written to is never evicted.
func (c *Cache) evict(written string) {
	if c.cfg.MaxAge > 0 {
		cutoff := c.now().Add(-c.cfg.MaxAge)
		for id, s := range c.entries {
			if id != written && s.UpdatedAt.Before(cutoff) {
				delete(c.entries, id)
			}
		}
	}

	if c.cfg.MaxEntries <= 0 || len(c.entries) <= c.cfg.MaxEntries {
		return
	}
	excess := len(c.entries) - c.cfg.MaxEntries
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		if id != written {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		if d := c.entries[a].UpdatedAt.Compare(c.entries[b].UpdatedAt); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	for _, id := range ids[:excess] {
		delete(c.entries, id)
	}
}

func add(set []string, id string) []string {
	if slices.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func remove(set []string, id string) []string {
	return lo.Without(set, id)
}
