// Package feed merges local posts and third-party posts into one feed,
// newest first.
//
// The local source is authoritative: its failure fails the feed. The
// external source is advisory: its failure is logged and counted, and the
// feed is served from local posts alone.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultExternalTimeout = 5 * time.Second

var (
	externalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reblog_feed_external_failures_total",
		Help: "Feed compositions that degraded to local posts only.",
	})
	composeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reblog_feed_compose_seconds",
		Help:    "Time spent composing a feed.",
		Buckets: prometheus.DefBuckets,
	})
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reblog_feed_items_total",
		Help: "Feed items served by provenance.",
	}, []string{"provenance"})
)

type LocalSource interface {
	AllPosts(ctx context.Context) ([]domain.Post, error)
	FollowingPosts(ctx context.Context, viewerId uuid.UUID) ([]domain.Post, error)
}

type ExternalSource interface {
	PostsByBlog(ctx context.Context, blog string, q tumblr.BlogQuery) ([]domain.ExternalPost, error)
	PostsByTag(ctx context.Context, tag string, q tumblr.TagQuery) ([]domain.ExternalPost, error)
}

type Request struct {
	ViewerId uuid.UUID
	// Tag selects tagged external posts, Blog a single blog. At most one
	// may be set.
	Tag  string
	Blog string
	// FollowingOnly restricts local posts to authors the viewer follows.
	FollowingOnly bool
	// Limit truncates the merged feed; 0 keeps everything.
	Limit int
}

func (r Request) Validate() error {
	if r.Tag != "" && r.Blog != "" {
		return domain.NewValidationError(domain.ReasonInvalidInput, "tag and blog can't be combined")
	}
	if r.Limit < 0 {
		return domain.NewValidationError(domain.ReasonInvalidInput, "limit must not be negative")
	}
	return nil
}

type Config struct {
	ExternalTimeout time.Duration
	// DefaultBlog is fetched when a request names neither tag nor blog.
	DefaultBlog string
}

type Composer struct {
	local    LocalSource
	external ExternalSource
	cfg      Config
}

// NewComposer returns a Composer. A nil external source yields local-only
// feeds.
func NewComposer(local LocalSource, external ExternalSource, cfg Config) *Composer {
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = DefaultExternalTimeout
	}
	return &Composer{local: local, external: external, cfg: cfg}
}

type localResult struct {
	posts []domain.Post
	err   error
}

type externalResult struct {
	posts []domain.ExternalPost
	err   error
}

// GetFeed fetches both sources concurrently and merges them. The result
// holds every fetched post exactly once unless Limit truncates it.
func (c *Composer) GetFeed(ctx context.Context, req Request) ([]domain.FeedItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		wg  sync.WaitGroup
		loc localResult
		ext externalResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		loc = c.fetchLocal(ctx, req)
	}()
	go func() {
		defer wg.Done()
		ext = c.fetchExternal(ctx, req)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if loc.err != nil {
		return nil, fmt.Errorf("compose feed: %w", domain.Authoritative("local posts", loc.err))
	}

	external := ext.posts
	if ext.err != nil {
		externalFailures.Inc()
		slog.Warn("external posts unavailable, serving local feed",
			slog.String("tag", req.Tag),
			slog.String("blog", req.Blog),
			slog.Any("error", ext.err))
		external = nil
	}

	items := Merge(loc.posts, external)
	if req.Limit > 0 && len(items) > req.Limit {
		items = items[:req.Limit]
	}

	composeSeconds.Observe(time.Since(start).Seconds())
	itemsTotal.WithLabelValues(string(domain.ProvenanceLocal)).Add(float64(len(loc.posts)))
	itemsTotal.WithLabelValues(string(domain.ProvenanceExternal)).Add(float64(len(external)))
	return items, nil
}

func (c *Composer) fetchLocal(ctx context.Context, req Request) localResult {
	if req.FollowingOnly {
		if req.ViewerId == uuid.Nil {
			return localResult{err: errors.New("following feed needs a viewer")}
		}
		posts, err := c.local.FollowingPosts(ctx, req.ViewerId)
		return localResult{posts: posts, err: err}
	}
	posts, err := c.local.AllPosts(ctx)
	return localResult{posts: posts, err: err}
}

func (c *Composer) fetchExternal(ctx context.Context, req Request) externalResult {
	if c.external == nil {
		return externalResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExternalTimeout)
	defer cancel()

	var (
		posts []domain.ExternalPost
		err   error
	)
	switch {
	case req.Tag != "":
		posts, err = c.external.PostsByTag(ctx, req.Tag, tumblr.TagQuery{})
	case req.Blog != "":
		posts, err = c.external.PostsByBlog(ctx, req.Blog, tumblr.BlogQuery{})
	case c.cfg.DefaultBlog != "":
		posts, err = c.external.PostsByBlog(ctx, c.cfg.DefaultBlog, tumblr.BlogQuery{})
	default:
		return externalResult{}
	}
	return externalResult{posts: posts, err: err}
}

// Merge normalises both slices into feed items sorted newest first. Items
// with equal timestamps keep local before external and otherwise keep their
// input order.
func Merge(local []domain.Post, external []domain.ExternalPost) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(local)+len(external))
	for _, p := range local {
		items = append(items, domain.LocalItem(p))
	}
	for _, e := range external {
		items = append(items, domain.ExternalItem(e))
	}

	slices.SortStableFunc(items, func(a, b domain.FeedItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return rank(a) - rank(b)
	})
	return items
}

func rank(i domain.FeedItem) int {
	if i.IsExternal() {
		return 1
	}
	return 0
}
