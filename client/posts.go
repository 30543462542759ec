package client

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/google/uuid"
)

type LikeResult struct {
	Liked      bool        `json:"liked"`
	Likes      []uuid.UUID `json:"likes"`
	LikesCount int         `json:"likesCount"`
}

type RepostResult struct {
	Reposts      []uuid.UUID `json:"reposts"`
	RepostsCount int         `json:"repostsCount"`
}

type createPostRequest struct {
	Kind       domain.PostKind    `json:"type"`
	Content    string             `json:"content"`
	MediaFiles []domain.MediaFile `json:"mediaFiles"`
	Tags       []string           `json:"tags"`
}

// AllPosts lists every local post, newest first.
func (c *Client) AllPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.call(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FollowingPosts lists posts of users the token's owner follows. viewerId is
// implied by the token.
func (c *Client) FollowingPosts(ctx context.Context, _ uuid.UUID) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.call(ctx, http.MethodGet, "/api/auth/following/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Post(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	var p domain.Post
	if err := c.call(ctx, http.MethodGet, "/api/posts/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePost(ctx context.Context, np domain.NewPost) (*domain.Post, error) {
	body := createPostRequest{Kind: np.Kind, Content: np.Content, MediaFiles: np.MediaFiles, Tags: np.Tags}
	var p domain.Post
	if err := c.call(ctx, http.MethodPost, "/api/posts", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) EditPost(ctx context.Context, id uuid.UUID, content string, tags []string) (*domain.Post, error) {
	body := map[string]any{"content": content}
	if tags != nil {
		body["tags"] = tags
	}
	var p domain.Post
	if err := c.call(ctx, http.MethodPut, "/api/posts/"+id.String(), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePost(ctx context.Context, id uuid.UUID) error {
	return c.call(ctx, http.MethodDelete, "/api/posts/"+id.String(), nil, nil)
}

// LikePost toggles the current user's like.
func (c *Client) LikePost(ctx context.Context, id uuid.UUID) (*LikeResult, error) {
	var out LikeResult
	if err := c.call(ctx, http.MethodPut, "/api/posts/"+id.String()+"/like", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CommentPost(ctx context.Context, id uuid.UUID, text string) ([]domain.Comment, error) {
	var comments []domain.Comment
	body := map[string]string{"text": text}
	if err := c.call(ctx, http.MethodPost, "/api/posts/"+id.String()+"/comment", body, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) RepostPost(ctx context.Context, id uuid.UUID) (*RepostResult, error) {
	var out RepostResult
	if err := c.call(ctx, http.MethodPost, "/api/posts/"+id.String()+"/repost", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadMedia uploads one file and returns its stored description.
func (c *Client) UploadMedia(ctx context.Context, name string, data []byte) ([]domain.MediaFile, error) {
	var files []domain.MediaFile
	res, err := c.r(ctx).
		SetFileReader("file", name, bytes.NewReader(data)).
		SetResult(&files).
		Post("/api/posts/upload")
	if err := check(http.MethodPost, "/api/posts/upload", res, err); err != nil {
		return nil, err
	}
	return files, nil
}

// Feed fetches the server-composed feed.
func (c *Client) Feed(ctx context.Context, tag, blog string, followingOnly bool, limit int) ([]domain.FeedItem, error) {
	params := url.Values{}
	if tag != "" {
		params.Set("tag", tag)
	}
	if blog != "" {
		params.Set("blog", blog)
	}
	if followingOnly {
		params.Set("following", "true")
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var items []domain.FeedItem
	res, err := c.r(ctx).SetQueryParamsFromValues(params).SetResult(&items).Get("/api/feed")
	if err := check(http.MethodGet, "/api/feed", res, err); err != nil {
		return nil, err
	}
	return items, nil
}

// PostsByBlog reads a blog through the server's proxy.
func (c *Client) PostsByBlog(ctx context.Context, blog string, q tumblr.BlogQuery) ([]domain.ExternalPost, error) {
	var out struct {
		Posts []domain.ExternalPost `json:"posts"`
	}
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	res, err := c.r(ctx).
		SetPathParam("blog", blog).
		SetQueryParamsFromValues(params).
		SetResult(&out).
		Get("/api/tumblr/blog/{blog}/posts")
	if err := check(http.MethodGet, "/api/tumblr/blog", res, err); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// PostsByTag reads tagged posts through the server's proxy.
func (c *Client) PostsByTag(ctx context.Context, tag string, q tumblr.TagQuery) ([]domain.ExternalPost, error) {
	var posts []domain.ExternalPost
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Before > 0 {
		params.Set("before", strconv.FormatInt(q.Before, 10))
	}
	res, err := c.r(ctx).
		SetPathParam("tag", tag).
		SetQueryParamsFromValues(params).
		SetResult(&posts).
		Get("/api/tumblr/tag/{tag}")
	if err := check(http.MethodGet, "/api/tumblr/tag", res, err); err != nil {
		return nil, err
	}
	return posts, nil
}
