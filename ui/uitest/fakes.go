// Package uitest holds in-memory backends for the terminal client's tests.
package uitest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deemkeen/reblog/client"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/localstore"
	"github.com/deemkeen/reblog/session"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/deemkeen/reblog/ui/common"
	"github.com/google/uuid"
)

var ErrOffline = errors.New("server unreachable")

var (
	_ common.API     = (*API)(nil)
	_ session.Remote = (*Remote)(nil)
)

// API is a scripted stand-in for the REST client. Calls are recorded as
// "method:arg" strings.
type API struct {
	mu sync.Mutex

	Posts     []domain.Post
	Tagged    []domain.ExternalPost
	Blog      []domain.ExternalPost
	People    []domain.User
	Following []uuid.UUID
	Viewer    uuid.UUID
	Media     []domain.MediaFile
	Err       error

	Created []domain.NewPost
	calls   []string
}

func (a *API) record(format string, args ...any) {
	a.calls = append(a.calls, fmt.Sprintf(format, args...))
}

func (a *API) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *API) SetPosts(posts []domain.Post) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Posts = posts
}

func (a *API) AllPosts(ctx context.Context) ([]domain.Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("all")
	if a.Err != nil {
		return nil, a.Err
	}
	return append([]domain.Post(nil), a.Posts...), nil
}

func (a *API) FollowingPosts(ctx context.Context, viewer uuid.UUID) ([]domain.Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("following:%s", viewer)
	if a.Err != nil {
		return nil, a.Err
	}
	var out []domain.Post
	for _, p := range a.Posts {
		for _, id := range a.Following {
			if p.Author.Id == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (a *API) PostsByBlog(ctx context.Context, blog string, q tumblr.BlogQuery) ([]domain.ExternalPost, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("blog:%s", blog)
	return a.Blog, nil
}

func (a *API) PostsByTag(ctx context.Context, tag string, q tumblr.TagQuery) ([]domain.ExternalPost, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("tag:%s", tag)
	return a.Tagged, nil
}

func (a *API) CreatePost(ctx context.Context, np domain.NewPost) (*domain.Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("create")
	if a.Err != nil {
		return nil, a.Err
	}
	a.Created = append(a.Created, np)
	now := time.Now().UTC()
	return &domain.Post{
		Id:         uuid.New(),
		Author:     domain.UserSummary{Id: a.Viewer},
		Kind:       np.Kind,
		Content:    np.Content,
		MediaFiles: np.MediaFiles,
		Tags:       np.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (a *API) post(id uuid.UUID) *domain.Post {
	for i := range a.Posts {
		if a.Posts[i].Id == id {
			return &a.Posts[i]
		}
	}
	return nil
}

func (a *API) LikePost(ctx context.Context, id uuid.UUID) (*client.LikeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("like:%s", id)
	p := a.post(id)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	liked := !p.LikedBy(a.Viewer)
	if liked {
		p.Likes = append(p.Likes, a.Viewer)
	} else {
		var kept []uuid.UUID
		for _, l := range p.Likes {
			if l != a.Viewer {
				kept = append(kept, l)
			}
		}
		p.Likes = kept
	}
	return &client.LikeResult{Liked: liked, Likes: append([]uuid.UUID(nil), p.Likes...), LikesCount: len(p.Likes)}, nil
}

func (a *API) RepostPost(ctx context.Context, id uuid.UUID) (*client.RepostResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("repost:%s", id)
	p := a.post(id)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if !p.RepostedBy(a.Viewer) {
		p.Reposts = append(p.Reposts, a.Viewer)
	}
	return &client.RepostResult{Reposts: append([]uuid.UUID(nil), p.Reposts...), RepostsCount: len(p.Reposts)}, nil
}

func (a *API) CommentPost(ctx context.Context, id uuid.UUID, text string) ([]domain.Comment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("comment:%s", id)
	p := a.post(id)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	p.Comments = append(p.Comments, domain.Comment{
		Id:        uuid.New(),
		Author:    domain.UserSummary{Id: a.Viewer},
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	return append([]domain.Comment(nil), p.Comments...), nil
}

func (a *API) UploadMedia(ctx context.Context, name string, data []byte) ([]domain.MediaFile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("upload:%s", name)
	return a.Media, nil
}

func (a *API) external(action, postId string) (*client.ExternalActions, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("%s:%s", action, postId)
	if a.Err != nil {
		return nil, a.Err
	}
	return &client.ExternalActions{}, nil
}

func (a *API) LikeExternal(ctx context.Context, postId string) (*client.ExternalActions, error) {
	return a.external("like-external", postId)
}

func (a *API) UnlikeExternal(ctx context.Context, postId string) (*client.ExternalActions, error) {
	return a.external("unlike-external", postId)
}

func (a *API) RepostExternal(ctx context.Context, postId string) (*client.ExternalActions, error) {
	return a.external("repost-external", postId)
}

func (a *API) UnrepostExternal(ctx context.Context, postId string) (*client.ExternalActions, error) {
	return a.external("unrepost-external", postId)
}

func (a *API) Users(ctx context.Context) ([]domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("users")
	if a.Err != nil {
		return nil, a.Err
	}
	return a.People, nil
}

func (a *API) FollowingUsers(ctx context.Context) ([]domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.User
	for _, u := range a.People {
		for _, id := range a.Following {
			if u.Id == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (a *API) Follow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("follow:%s", id)
	if id == a.Viewer {
		return nil, domain.ErrSelfFollow
	}
	for _, f := range a.Following {
		if f == id {
			return append([]uuid.UUID(nil), a.Following...), nil
		}
	}
	a.Following = append(a.Following, id)
	return append([]uuid.UUID(nil), a.Following...), nil
}

func (a *API) Unfollow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("unfollow:%s", id)
	var kept []uuid.UUID
	for _, f := range a.Following {
		if f != id {
			kept = append(kept, f)
		}
	}
	a.Following = kept
	return append([]uuid.UUID{}, kept...), nil
}

// Remote is a session backend with a single known account.
type Remote struct {
	mu      sync.Mutex
	User    *domain.User
	Offline bool
	token   string
}

func NewRemote(name string) *Remote {
	return &Remote{User: domain.NewUser(name, name+"@example.org", "hash")}
}

func (r *Remote) Register(ctx context.Context, name, email, password string) (string, *domain.User, error) {
	return r.Login(ctx, email, password)
}

func (r *Remote) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Offline {
		return "", nil, ErrOffline
	}
	if password != "secret" {
		return "", nil, domain.ErrInvalidCredentials
	}
	u := *r.User
	return "token-" + u.Id.String(), &u, nil
}

func (r *Remote) Me(ctx context.Context) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Offline {
		return nil, ErrOffline
	}
	u := *r.User
	return &u, nil
}

func (r *Remote) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Offline {
		return nil, ErrOffline
	}
	update.Apply(r.User)
	u := *r.User
	return &u, nil
}

func (r *Remote) SetToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token
}

func (r *Remote) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// LoggedIn returns a session manager already logged in as name.
func LoggedIn(name string) (*session.Manager, *Remote, error) {
	remote := NewRemote(name)
	m := session.NewManager(localstore.NewMemoryStorage(), remote)
	if err := m.Login(context.Background(), remote.User.Email, "secret"); err != nil {
		return nil, nil, err
	}
	return m, remote, nil
}
