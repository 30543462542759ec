package db

import (
	"context"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
)

// Store is the authoritative persistence layer for users and posts.
// Implementations return domain.ErrNotFound for missing records,
// domain validation errors for rejected operations and wrap everything else
// with domain.ErrAuthoritative.
type Store interface {
	UserStore
	PostStore
	FollowStore
	ExternalActionStore
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UserById(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	ListUsersExcept(ctx context.Context, id uuid.UUID) ([]domain.User, error)
	UsersByIds(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, p domain.NewPost) (*domain.Post, error)
	PostById(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	AllPosts(ctx context.Context) ([]domain.Post, error)
	PostsByAuthors(ctx context.Context, authorIds []uuid.UUID) ([]domain.Post, error)
	PostsByAuthor(ctx context.Context, authorId uuid.UUID) ([]domain.Post, error)
	UpdatePost(ctx context.Context, id, editorId uuid.UUID, content string, tags []string) (*domain.Post, error)
	DeletePost(ctx context.Context, id, editorId uuid.UUID) error
	// ToggleLike adds the like if absent and removes it otherwise.
	ToggleLike(ctx context.Context, postId, userId uuid.UUID) (liked bool, likes []uuid.UUID, err error)
	AddComment(ctx context.Context, postId, userId uuid.UUID, text string) ([]domain.Comment, error)
	// Repost is idempotent and rejects the post's own author.
	Repost(ctx context.Context, postId, userId uuid.UUID) ([]uuid.UUID, error)
}

type FollowStore interface {
	Follow(ctx context.Context, userId, targetId uuid.UUID) error
	Unfollow(ctx context.Context, userId, targetId uuid.UUID) error
	FollowingIds(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error)
}

type ExternalAction string

const (
	ExternalLike   ExternalAction = "like"
	ExternalRepost ExternalAction = "repost"
)

// ExternalActionStore tracks which third-party posts a user liked or
// reposted. There is no record of the post itself.
type ExternalActionStore interface {
	AddExternalAction(ctx context.Context, userId uuid.UUID, externalId string, action ExternalAction) error
	RemoveExternalAction(ctx context.Context, userId uuid.UUID, externalId string, action ExternalAction) error
	ExternalActions(ctx context.Context, userId uuid.UUID) (liked []string, reposted []string, err error)
}
