package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PostKind string

const (
	KindText  PostKind = "text"
	KindImage PostKind = "image"
	KindVideo PostKind = "video"
)

func ParsePostKind(s string) (PostKind, error) {
	switch PostKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindText:
		return KindText, nil
	case KindImage:
		return KindImage, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", NewValidationError(ReasonInvalidInput, "unknown post type %q", s)
}

type MediaFile struct {
	Url          string `json:"url"`
	Kind         string `json:"type"`
	OriginalName string `json:"originalName,omitempty"`
}

type Comment struct {
	Id        uuid.UUID   `json:"id"`
	Author    UserSummary `json:"user"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Post struct {
	Id         uuid.UUID   `json:"id"`
	Author     UserSummary `json:"user"`
	Kind       PostKind    `json:"type"`
	Content    string      `json:"content"`
	MediaFiles []MediaFile `json:"mediaFiles"`
	Tags       []string    `json:"tags"`
	Likes      []uuid.UUID `json:"likes"`
	Comments   []Comment   `json:"comments"`
	Reposts    []uuid.UUID `json:"reposts"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func (p *Post) LikeCount() int {
	return len(p.Likes)
}

func (p *Post) RepostCount() int {
	return len(p.Reposts)
}

func (p *Post) LikedBy(id uuid.UUID) bool {
	return containsId(p.Likes, id)
}

func (p *Post) RepostedBy(id uuid.UUID) bool {
	return containsId(p.Reposts, id)
}

// NewPost is the input for creating a post.
type NewPost struct {
	AuthorId   uuid.UUID
	Kind       PostKind
	Content    string
	MediaFiles []MediaFile
	Tags       []string
}

func (n NewPost) Validate() error {
	switch n.Kind {
	case KindText:
		if strings.TrimSpace(n.Content) == "" {
			return NewValidationError(ReasonInvalidInput, "text posts need content")
		}
	case KindImage, KindVideo:
		if len(n.MediaFiles) == 0 && strings.TrimSpace(n.Content) == "" {
			return NewValidationError(ReasonInvalidInput, "%s posts need a media file", n.Kind)
		}
	default:
		return NewValidationError(ReasonInvalidInput, "unknown post type %q", n.Kind)
	}
	for _, m := range n.MediaFiles {
		if m.Url == "" {
			return NewValidationError(ReasonInvalidInput, "media file without url")
		}
	}
	return nil
}

func containsId(ids []uuid.UUID, id uuid.UUID) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
