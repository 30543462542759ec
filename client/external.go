package client

import (
	"context"
	"net/http"
)

// ExternalActions are the third-party post ids the current user liked or
// reposted, as mirrored on the server.
type ExternalActions struct {
	Liked    []string `json:"likedTumblrPosts"`
	Reposted []string `json:"repostedTumblrPosts"`
}

func (c *Client) externalAction(ctx context.Context, path, postId string) (*ExternalActions, error) {
	var out ExternalActions
	body := map[string]string{"tumblrPostId": postId}
	if err := c.call(ctx, http.MethodPost, "/api/auth/"+path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LikeExternal(ctx context.Context, postId string) (*ExternalActions, error) {
	return c.externalAction(ctx, "like-tumblr", postId)
}

func (c *Client) UnlikeExternal(ctx context.Context, postId string) (*ExternalActions, error) {
	return c.externalAction(ctx, "unlike-tumblr", postId)
}

func (c *Client) RepostExternal(ctx context.Context, postId string) (*ExternalActions, error) {
	return c.externalAction(ctx, "repost-tumblr", postId)
}

func (c *Client) UnrepostExternal(ctx context.Context, postId string) (*ExternalActions, error) {
	return c.externalAction(ctx, "unrepost-tumblr", postId)
}

func (c *Client) ExternalActions(ctx context.Context) (*ExternalActions, error) {
	var out ExternalActions
	if err := c.call(ctx, http.MethodGet, "/api/auth/tumblr-actions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
