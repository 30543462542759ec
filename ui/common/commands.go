package common

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/reblog/client"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/feed"
	"github.com/google/uuid"
)

type SessionState uint

const (
	LoginView SessionState = iota
	FeedView
	ComposeView
	ProfileView
	PeopleView
)

// Views lists the views reachable once logged in, in navigation order.
var Views = []SessionState{FeedView, ComposeView, ProfileView, PeopleView}

func (s SessionState) String() string {
	switch s {
	case LoginView:
		return "login"
	case FeedView:
		return "feed"
	case ComposeView:
		return "new post"
	case ProfileView:
		return "profile"
	case PeopleView:
		return "people"
	}
	return "unknown"
}

// SyncStatus tells whether the profile shown matches the server.
type SyncStatus uint

const (
	SyncPending SyncStatus = iota
	SyncOK
	SyncLocalOnly
)

func (s SyncStatus) String() string {
	switch s {
	case SyncOK:
		return "synced"
	case SyncLocalOnly:
		return "local only"
	}
	return "syncing"
}

// RequestTimeout bounds every call a view makes to the server.
const RequestTimeout = 15 * time.Second

// API is the part of the REST client the views use.
type API interface {
	feed.LocalSource
	feed.ExternalSource

	CreatePost(ctx context.Context, np domain.NewPost) (*domain.Post, error)
	LikePost(ctx context.Context, id uuid.UUID) (*client.LikeResult, error)
	RepostPost(ctx context.Context, id uuid.UUID) (*client.RepostResult, error)
	CommentPost(ctx context.Context, id uuid.UUID, text string) ([]domain.Comment, error)
	UploadMedia(ctx context.Context, name string, data []byte) ([]domain.MediaFile, error)

	LikeExternal(ctx context.Context, postId string) (*client.ExternalActions, error)
	UnlikeExternal(ctx context.Context, postId string) (*client.ExternalActions, error)
	RepostExternal(ctx context.Context, postId string) (*client.ExternalActions, error)
	UnrepostExternal(ctx context.Context, postId string) (*client.ExternalActions, error)

	Users(ctx context.Context) ([]domain.User, error)
	FollowingUsers(ctx context.Context) ([]domain.User, error)
	Follow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	Unfollow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// AuthMsg reports the end of a login or register attempt.
type AuthMsg struct {
	Err error
}

// PostCreatedMsg is sent after the compose view published a post.
type PostCreatedMsg struct {
	Post *domain.Post
}

type ClearStatusMsg struct{}

func ClearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// Timeout returns a context bounded by RequestTimeout.
func Timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), RequestTimeout)
}

// LogoutMsg asks the main model to end the session.
type LogoutMsg struct{}
