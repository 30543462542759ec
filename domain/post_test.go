package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParsePostKind(t *testing.T) {
	tests := []struct {
		input   string
		want    PostKind
		wantErr bool
	}{
		{"", KindText, false},
		{"text", KindText, false},
		{"IMAGE", KindImage, false},
		{" video ", KindVideo, false},
		{"audio", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePostKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParsePostKind(%q) = %q, %v", tt.input, got, err)
			}
		})
	}
}

func TestNewPostValidate(t *testing.T) {
	author := uuid.New()
	tests := []struct {
		name    string
		post    NewPost
		wantErr bool
	}{
		{"text ok", NewPost{AuthorId: author, Kind: KindText, Content: "hello world"}, false},
		{"text empty", NewPost{AuthorId: author, Kind: KindText, Content: "  "}, true},
		{"image with media", NewPost{AuthorId: author, Kind: KindImage, MediaFiles: []MediaFile{{Url: "https://x/a.png", Kind: "image"}}}, false},
		{"image without media", NewPost{AuthorId: author, Kind: KindImage}, true},
		{"media without url", NewPost{AuthorId: author, Kind: KindVideo, MediaFiles: []MediaFile{{Kind: "video"}}}, true},
		{"bad kind", NewPost{AuthorId: author, Kind: "gif", Content: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && Reason(err) != ReasonInvalidInput {
				t.Errorf("Expected reason %s, got %s", ReasonInvalidInput, Reason(err))
			}
		})
	}
}

func TestPostCountsAreDerived(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := Post{Likes: []uuid.UUID{a, b}, Reposts: []uuid.UUID{b}}

	if p.LikeCount() != 2 || p.RepostCount() != 1 {
		t.Errorf("unexpected counts %d/%d", p.LikeCount(), p.RepostCount())
	}
	if !p.LikedBy(a) || p.RepostedBy(a) || !p.RepostedBy(b) {
		t.Error("membership checks are wrong")
	}
}

func TestFeedItemVariants(t *testing.T) {
	created := time.Unix(150, 0)
	local := LocalItem(Post{Id: uuid.New(), Content: "hello", CreatedAt: created, Author: UserSummary{Name: "Alice"}})
	if local.Provenance != ProvenanceLocal || local.IsExternal() || local.External != nil {
		t.Errorf("bad local item %+v", local)
	}
	if local.AuthorName() != "Alice" || local.Body() != "hello" {
		t.Errorf("bad local accessors: %s / %s", local.AuthorName(), local.Body())
	}

	ext := ExternalItem(ExternalPost{Id: "tumblr123", BlogName: "staff", Summary: "hi", Timestamp: 200})
	if !ext.IsExternal() || ext.Local != nil {
		t.Errorf("bad external item %+v", ext)
	}
	if !ext.CreatedAt.Equal(time.Unix(200, 0)) {
		t.Errorf("external timestamp should be converted from seconds, got %v", ext.CreatedAt)
	}
	if ext.Id() != "tumblr123" {
		t.Errorf("Expected id tumblr123, got %s", ext.Id())
	}
}

func TestValidationErrors(t *testing.T) {
	if !errors.Is(ErrSelfRepost, ErrValidation) {
		t.Error("self-repost should be a validation error")
	}
	if Reason(ErrSelfRepost) != "self-repost" {
		t.Errorf("unexpected reason %s", Reason(ErrSelfRepost))
	}
	if ErrInvalidCredentials.Error() != "Invalid credentials" {
		t.Errorf("unexpected message %s", ErrInvalidCredentials.Error())
	}

	infra := errors.New("disk full")
	wrapped := Authoritative("create post", infra)
	if !errors.Is(wrapped, ErrAuthoritative) || !errors.Is(wrapped, infra) {
		t.Errorf("Authoritative should wrap both, got %v", wrapped)
	}
	if Authoritative("x", ErrSelfRepost) != error(ErrSelfRepost) {
		t.Error("validation errors must pass through unchanged")
	}
	if Authoritative("x", nil) != nil {
		t.Error("nil stays nil")
	}
}
