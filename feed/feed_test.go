package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/google/uuid"
)

type fakeLocal struct {
	all       []domain.Post
	following map[uuid.UUID][]domain.Post
	err       error
	delay     time.Duration
}

func (f *fakeLocal) AllPosts(ctx context.Context) ([]domain.Post, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.all, f.err
}

func (f *fakeLocal) FollowingPosts(_ context.Context, viewerId uuid.UUID) ([]domain.Post, error) {
	return f.following[viewerId], f.err
}

type fakeExternal struct {
	byBlog map[string][]domain.ExternalPost
	byTag  map[string][]domain.ExternalPost
	err    error
	delay  time.Duration
	calls  atomic.Int32
	lastBy string
}

func (f *fakeExternal) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeExternal) PostsByBlog(ctx context.Context, blog string, _ tumblr.BlogQuery) ([]domain.ExternalPost, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.lastBy = "blog:" + blog
	return f.byBlog[blog], f.err
}

func (f *fakeExternal) PostsByTag(ctx context.Context, tag string, _ tumblr.TagQuery) ([]domain.ExternalPost, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.lastBy = "tag:" + tag
	return f.byTag[tag], f.err
}

func localAt(sec int64, content string) domain.Post {
	return domain.Post{Id: uuid.New(), Content: content, CreatedAt: time.UnixMilli(sec * 1000)}
}

func extAt(sec int64, id string) domain.ExternalPost {
	return domain.ExternalPost{Id: id, Timestamp: sec}
}

func ids(items []domain.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		if it.IsExternal() {
			out[i] = "ext:" + it.Id()
		} else {
			out[i] = "local:" + it.Local.Content
		}
	}
	return out
}

func assertOrder(t *testing.T, items []domain.FeedItem, want ...string) {
	t.Helper()
	got := ids(items)
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestMixedFeedOrdering(t *testing.T) {
	local := &fakeLocal{all: []domain.Post{localAt(150, "p150")}}
	external := &fakeExternal{byTag: map[string][]domain.ExternalPost{
		"art": {extAt(100, "e100"), extAt(200, "e200")},
	}}
	c := NewComposer(local, external, Config{})

	items, err := c.GetFeed(context.Background(), Request{Tag: "art"})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	assertOrder(t, items, "ext:e200", "local:p150", "ext:e100")

	if items[0].Provenance != domain.ProvenanceExternal || items[1].Provenance != domain.ProvenanceLocal {
		t.Errorf("Unexpected provenance flags %v %v", items[0].Provenance, items[1].Provenance)
	}
	if !items[0].CreatedAt.Equal(time.Unix(200, 0)) {
		t.Errorf("Expected external timestamp converted from seconds, got %v", items[0].CreatedAt)
	}
}

func TestMergeKeepsEveryItemSorted(t *testing.T) {
	local := []domain.Post{localAt(5, "a"), localAt(1, "b"), localAt(9, "c")}
	external := []domain.ExternalPost{extAt(3, "x"), extAt(7, "y"), extAt(9, "z")}

	items := Merge(local, external)
	if len(items) != len(local)+len(external) {
		t.Fatalf("Expected %d items, got %d", len(local)+len(external), len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CreatedAt.After(items[i-1].CreatedAt) {
			t.Errorf("Items not descending at %d: %v after %v", i, items[i].CreatedAt, items[i-1].CreatedAt)
		}
	}
	// local c and external z share a timestamp
	assertOrder(t, items, "local:c", "ext:z", "ext:y", "local:a", "ext:x", "local:b")
}

func TestMergeTieBreakIsStable(t *testing.T) {
	local := []domain.Post{localAt(10, "first"), localAt(10, "second")}
	external := []domain.ExternalPost{extAt(10, "e1"), extAt(10, "e2")}

	assertOrder(t, Merge(local, external), "local:first", "local:second", "ext:e1", "ext:e2")
}

func TestExternalFailureDegradesToLocal(t *testing.T) {
	local := &fakeLocal{all: []domain.Post{localAt(1, "old"), localAt(2, "new")}}
	external := &fakeExternal{err: tumblr.ErrFetch}
	c := NewComposer(local, external, Config{})

	items, err := c.GetFeed(context.Background(), Request{Blog: "staff"})
	if err != nil {
		t.Fatalf("Expected no error on external failure, got %v", err)
	}
	assertOrder(t, items, "local:new", "local:old")
}

func TestExternalTimeoutDegradesToLocal(t *testing.T) {
	local := &fakeLocal{all: []domain.Post{localAt(1, "only")}}
	external := &fakeExternal{delay: time.Second, byBlog: map[string][]domain.ExternalPost{"staff": {extAt(5, "late")}}}
	c := NewComposer(local, external, Config{ExternalTimeout: 20 * time.Millisecond})

	start := time.Now()
	items, err := c.GetFeed(context.Background(), Request{Blog: "staff"})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected the external wait to be bounded, took %v", elapsed)
	}
	assertOrder(t, items, "local:only")
}

func TestLocalFailureIsFatal(t *testing.T) {
	local := &fakeLocal{err: errors.New("disk on fire")}
	external := &fakeExternal{byTag: map[string][]domain.ExternalPost{"art": {extAt(1, "e")}}}
	c := NewComposer(local, external, Config{})

	_, err := c.GetFeed(context.Background(), Request{Tag: "art"})
	if !errors.Is(err, domain.ErrAuthoritative) {
		t.Errorf("Expected authoritative failure, got %v", err)
	}
}

func TestSourceSelection(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		defaultBlog string
		want        string
		calls       int32
	}{
		{"tag", Request{Tag: "art"}, "staff", "tag:art", 1},
		{"blog", Request{Blog: "staff"}, "", "blog:staff", 1},
		{"default blog", Request{}, "fallback", "blog:fallback", 1},
		{"no external target", Request{}, "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			external := &fakeExternal{}
			c := NewComposer(&fakeLocal{}, external, Config{DefaultBlog: tt.defaultBlog})
			if _, err := c.GetFeed(context.Background(), tt.req); err != nil {
				t.Fatalf("GetFeed failed: %v", err)
			}
			if external.lastBy != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, external.lastBy)
			}
			if external.calls.Load() != tt.calls {
				t.Errorf("Expected %d calls, got %d", tt.calls, external.calls.Load())
			}
		})
	}
}

func TestTagAndBlogAreExclusive(t *testing.T) {
	external := &fakeExternal{}
	local := &fakeLocal{all: []domain.Post{localAt(1, "mine")}}
	c := NewComposer(local, external, Config{})

	items, err := c.GetFeed(context.Background(), Request{Tag: "art", Blog: "staff"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Expected a validation error, got %v", err)
	}
	if items != nil {
		t.Errorf("Expected no items, got %d", len(items))
	}
	if external.calls.Load() != 0 {
		t.Errorf("Expected no external calls, got %d", external.calls.Load())
	}
}

func TestFollowingOnly(t *testing.T) {
	viewer := uuid.New()
	local := &fakeLocal{
		all:       []domain.Post{localAt(1, "everyone")},
		following: map[uuid.UUID][]domain.Post{viewer: {localAt(2, "followed")}},
	}
	c := NewComposer(local, nil, Config{})

	items, err := c.GetFeed(context.Background(), Request{ViewerId: viewer, FollowingOnly: true})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	assertOrder(t, items, "local:followed")

	if _, err := c.GetFeed(context.Background(), Request{FollowingOnly: true}); err == nil {
		t.Error("Expected an error for a following feed without viewer")
	}
}

func TestLimit(t *testing.T) {
	local := &fakeLocal{all: []domain.Post{localAt(1, "a"), localAt(2, "b"), localAt(3, "c")}}
	c := NewComposer(local, nil, Config{})

	items, err := c.GetFeed(context.Background(), Request{Limit: 2})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	assertOrder(t, items, "local:c", "local:b")
}

func TestCancelledRequestReturnsContextError(t *testing.T) {
	local := &fakeLocal{delay: time.Second}
	c := NewComposer(local, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := c.GetFeed(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
