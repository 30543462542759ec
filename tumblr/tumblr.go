// Package tumblr fetches public posts from the Tumblr v2 API and normalises
// them into domain.ExternalPost values.
package tumblr

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"
)

const (
	DefaultBaseURL = "https://api.tumblr.com/v2"
	DefaultLimit   = 20
	MaxLimit       = 50

	blogPostsPath = "/blog/{blog}/posts"
	taggedPath    = "/tagged"
)

// ErrFetch marks every failure to obtain or decode upstream posts.
var ErrFetch = fmt.Errorf("tumblr fetch failed: %w", domain.ErrAdvisory)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reblog_tumblr_requests_total",
		Help: "Upstream Tumblr requests by result.",
	}, []string{"result"})

	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reblog_tumblr_request_seconds",
			Help:    "Histogram of Tumblr API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "status_code"},
	)
)

type BlogQuery struct {
	Limit  int
	Offset int
	Type   string
}

type TagQuery struct {
	Limit int
	// Before is a unix timestamp in seconds; 0 means now.
	Before int64
}

type Config struct {
	BaseURL  string
	ApiKey   string
	Timeout  time.Duration
	CacheTtl time.Duration
}

type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	cache   *responseCache
}

func New(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := resty.New().SetBaseURL(base)
	client.AddResponseMiddleware(metricMiddleware)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.ApiKey == "" {
		slog.Warn("no tumblr api key configured, upstream requests will be rejected")
	}
	return &Client{
		client:  client,
		baseURL: base,
		apiKey:  cfg.ApiKey,
		cache:   newResponseCache(cfg.CacheTtl),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// PostsByBlog returns the newest posts of blog.
func (c *Client) PostsByBlog(ctx context.Context, blog string, q BlogQuery) ([]domain.ExternalPost, error) {
	blog = strings.TrimSpace(blog)
	if blog == "" {
		return nil, fmt.Errorf("%w: blog identifier is required", ErrFetch)
	}
	params := url.Values{
		"api_key": {c.apiKey},
		"limit":   {strconv.Itoa(clampLimit(q.Limit))},
		"offset":  {strconv.Itoa(max(q.Offset, 0))},
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}

	key := "blog:" + blog + "?" + params.Encode()
	if posts, ok := c.cache.get(key); ok {
		return posts, nil
	}

	res, err := c.client.R().WithContext(ctx).
		SetPathParam("blog", blog).
		SetQueryParamsFromValues(params).
		SetResult(&blogEnvelope{}).
		SetError(&errorEnvelope{}).
		Get(blogPostsPath)
	if err := checkResponse(res, err); err != nil {
		return nil, c.failed(ctx, "blog", blog, err)
	}

	env := res.Result().(*blogEnvelope)
	if env.Response == nil {
		return nil, c.failed(ctx, "blog", blog, fmt.Errorf("%w: missing response", ErrFetch))
	}
	if env.Response.Posts == nil {
		return nil, c.failed(ctx, "blog", blog, fmt.Errorf("%w: missing response.posts", ErrFetch))
	}

	posts, err := c.normalize(env.Response.Posts, env.Response.Blog.avatar())
	if err != nil {
		return nil, c.failed(ctx, "blog", blog, err)
	}
	requestsTotal.WithLabelValues("ok").Inc()
	c.cache.put(key, posts)
	return posts, nil
}

// PostsByTag returns posts tagged with tag.
func (c *Client) PostsByTag(ctx context.Context, tag string, q TagQuery) ([]domain.ExternalPost, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is required", ErrFetch)
	}
	params := url.Values{
		"api_key": {c.apiKey},
		"tag":     {tag},
		"limit":   {strconv.Itoa(clampLimit(q.Limit))},
	}
	if q.Before > 0 {
		params.Set("before", strconv.FormatInt(q.Before, 10))
	}

	key := "tag:" + params.Encode()
	if posts, ok := c.cache.get(key); ok {
		return posts, nil
	}

	res, err := c.client.R().WithContext(ctx).
		SetQueryParamsFromValues(params).
		SetResult(&taggedEnvelope{}).
		SetError(&errorEnvelope{}).
		Get(taggedPath)
	if err := checkResponse(res, err); err != nil {
		return nil, c.failed(ctx, "tag", tag, err)
	}

	env := res.Result().(*taggedEnvelope)
	if env.Response == nil {
		return nil, c.failed(ctx, "tag", tag, fmt.Errorf("%w: missing response", ErrFetch))
	}

	posts, err := c.normalize(*env.Response, "")
	if err != nil {
		return nil, c.failed(ctx, "tag", tag, err)
	}
	requestsTotal.WithLabelValues("ok").Inc()
	c.cache.put(key, posts)
	return posts, nil
}

func metricMiddleware(_ *resty.Client, response *resty.Response) error {
	apiLatency.WithLabelValues(
		response.Request.Method,
		strconv.Itoa(response.StatusCode()),
	).Observe(response.Duration().Seconds())
	return nil
}

func checkResponse(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if res.IsError() {
		msg := ""
		if e, ok := res.Error().(*errorEnvelope); ok && e != nil {
			msg = e.Meta.Msg
		}
		return fmt.Errorf("%w: status %d %s", ErrFetch, res.StatusCode(), msg)
	}
	return nil
}

func (c *Client) failed(ctx context.Context, kind, target string, err error) error {
	requestsTotal.WithLabelValues("error").Inc()
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
	}
	slog.Warn("tumblr request failed", slog.String("kind", kind), slog.String("target", target), slog.Any("error", err))
	return err
}

func (c *Client) normalize(raw []rawPost, blogAvatar string) ([]domain.ExternalPost, error) {
	posts := make([]domain.ExternalPost, 0, len(raw))
	for i, r := range raw {
		p, err := r.normalize(c.baseURL, blogAvatar)
		if err != nil {
			return nil, fmt.Errorf("%w: post %d: %w", ErrFetch, i, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}
