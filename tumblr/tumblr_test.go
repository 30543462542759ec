package tumblr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deemkeen/reblog/domain"
)

const blogBody = `{
  "meta": {"status": 200, "msg": "OK"},
  "response": {
    "blog": {"name": "staff", "avatar": [{"url": "http://a/512.png", "width": 512}, {"url": "http://a/64.png", "width": 64}]},
    "posts": [
      {"id": 7001, "id_string": "7001", "blog_name": "staff", "type": "photo", "timestamp": 1700000200,
       "caption": "<p>Hello &amp; <b>welcome</b></p>", "post_url": "https://staff.tumblr.com/post/7001",
       "tags": ["news"], "photos": [{"original_size": {"url": "http://img/1.jpg"}}]},
      {"id": 7000, "blog_name": "staff", "type": "text", "timestamp": 1700000100,
       "summary": "Plain summary", "body": "<p>ignored</p>", "post_url": "https://staff.tumblr.com/post/7000"}
    ]
  }
}`

const taggedBody = `{
  "meta": {"status": 200, "msg": "OK"},
  "response": [
    {"id_string": "9", "blog_name": "artist", "type": "video", "timestamp": 1700000300,
     "body": "<div>clip</div>", "video_url": "http://vid/9.mp4", "tags": ["cats"]}
  ]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func jsonResponse(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func newTestClient(t *testing.T, url string, cacheTtl time.Duration) *Client {
	t.Helper()
	c := New(Config{BaseURL: url, ApiKey: "key", Timeout: 2 * time.Second, CacheTtl: cacheTtl})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPostsByBlog(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blog/staff/posts" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("limit") != "20" || q.Get("offset") != "0" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		jsonResponse(w, http.StatusOK, blogBody)
	})

	posts, err := newTestClient(t, srv.URL, 0).PostsByBlog(context.Background(), "staff", BlogQuery{})
	if err != nil {
		t.Fatalf("PostsByBlog failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.Id != "7001" || first.BlogName != "staff" || first.Timestamp != 1700000200 {
		t.Errorf("Unexpected first post %+v", first)
	}
	if first.Summary != "Hello & welcome" {
		t.Errorf("Expected stripped caption, got %q", first.Summary)
	}
	if first.MediaURL != "http://img/1.jpg" {
		t.Errorf("Expected photo url, got %s", first.MediaURL)
	}
	if first.AvatarURL != "http://a/64.png" {
		t.Errorf("Expected 64px blog avatar, got %s", first.AvatarURL)
	}
	if !first.CreatedAt().Equal(time.Unix(1700000200, 0)) {
		t.Errorf("Unexpected created at %v", first.CreatedAt())
	}

	if posts[1].Id != "7000" {
		t.Errorf("Expected id from numeric field, got %s", posts[1].Id)
	}
	if posts[1].Summary != "Plain summary" {
		t.Errorf("Expected summary field to win, got %q", posts[1].Summary)
	}
}

func TestPostsByTag(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tagged" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tag") != "cats" || q.Get("before") != "1700000400" || q.Get("limit") != "50" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		jsonResponse(w, http.StatusOK, taggedBody)
	})

	posts, err := newTestClient(t, srv.URL, 0).PostsByTag(context.Background(), "#cats", TagQuery{Limit: 500, Before: 1700000400})
	if err != nil {
		t.Fatalf("PostsByTag failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.Summary != "clip" || p.MediaURL != "http://vid/9.mp4" {
		t.Errorf("Unexpected post %+v", p)
	}
	if p.AvatarURL != srv.URL+"/blog/artist/avatar/64" {
		t.Errorf("Expected derived avatar url, got %s", p.AvatarURL)
	}
}

func TestFetchFailuresAreAdvisory(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"meta": {"status": 500, "msg": "Server Error"}}`},
		{"unauthorized", http.StatusUnauthorized, `{"meta": {"status": 401, "msg": "Unauthorized"}}`},
		{"missing response", http.StatusOK, `{"meta": {"status": 200}}`},
		{"missing posts", http.StatusOK, `{"meta": {"status": 200}, "response": {"blog": {"name": "x"}}}`},
		{"post without id", http.StatusOK, `{"response": {"posts": [{"timestamp": 5}]}}`},
		{"post without timestamp", http.StatusOK, `{"response": {"posts": [{"id": 5}]}}`},
		{"malformed json", http.StatusOK, `{"response": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				jsonResponse(w, tt.status, tt.body)
			})
			_, err := newTestClient(t, srv.URL, 0).PostsByBlog(context.Background(), "staff", BlogQuery{})
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("Expected ErrFetch, got %v", err)
			}
			if !errors.Is(err, domain.ErrAdvisory) {
				t.Errorf("Expected advisory failure, got %v", err)
			}
		})
	}
}

func TestTaggedMissingResponse(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, `{"meta": {"status": 200}}`)
	})
	_, err := newTestClient(t, srv.URL, 0).PostsByTag(context.Background(), "cats", TagQuery{})
	if !errors.Is(err, ErrFetch) {
		t.Errorf("Expected ErrFetch, got %v", err)
	}
}

func TestEmptyArgumentsRejected(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", 0)
	if _, err := c.PostsByBlog(context.Background(), " ", BlogQuery{}); !errors.Is(err, ErrFetch) {
		t.Errorf("Expected ErrFetch for empty blog, got %v", err)
	}
	if _, err := c.PostsByTag(context.Background(), "#", TagQuery{}); !errors.Is(err, ErrFetch) {
		t.Errorf("Expected ErrFetch for empty tag, got %v", err)
	}
}

func TestResponsesAreCached(t *testing.T) {
	var calls atomic.Int32
	fail := atomic.Bool{}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			jsonResponse(w, http.StatusInternalServerError, `{}`)
			return
		}
		jsonResponse(w, http.StatusOK, blogBody)
	})
	c := newTestClient(t, srv.URL, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := c.PostsByBlog(context.Background(), "staff", BlogQuery{}); err != nil {
			t.Fatalf("PostsByBlog failed: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single upstream call, got %d", calls.Load())
	}

	fail.Store(true)
	if _, err := c.PostsByBlog(context.Background(), "other", BlogQuery{}); err == nil {
		t.Fatal("Expected failure")
	}
	if _, err := c.PostsByBlog(context.Background(), "other", BlogQuery{}); err == nil {
		t.Fatal("Expected failures not to be cached")
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 upstream calls, got %d", calls.Load())
	}
}

func TestResponseCacheExpiry(t *testing.T) {
	c := newResponseCache(time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.put("k", []domain.ExternalPost{{Id: "1"}})
	if _, ok := c.get("k"); !ok {
		t.Fatal("Expected cached entry")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{0: 20, -3: 20, 1: 1, 50: 50, 51: 50}
	for in, want := range tests {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d): expected %d, got %d", in, want, got)
		}
	}
}
