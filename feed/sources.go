package feed

import (
	"context"

	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
)

// StoreSource reads local posts from the content store.
type StoreSource struct {
	Posts   db.PostStore
	Follows db.FollowStore
}

func (s StoreSource) AllPosts(ctx context.Context) ([]domain.Post, error) {
	return s.Posts.AllPosts(ctx)
}

// FollowingPosts returns posts by the users viewerId follows.
func (s StoreSource) FollowingPosts(ctx context.Context, viewerId uuid.UUID) ([]domain.Post, error) {
	ids, err := s.Follows.FollowingIds(ctx, viewerId)
	if err != nil {
		return nil, err
	}
	return s.Posts.PostsByAuthors(ctx, ids)
}
