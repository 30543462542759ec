package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deemkeen/reblog/auth"
	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/media"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/deemkeen/reblog/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.subjects...)
}

type fakeTumblr struct{}

func (fakeTumblr) PostsByBlog(_ context.Context, blog string, _ tumblr.BlogQuery) ([]domain.ExternalPost, error) {
	if blog == "down" {
		return nil, tumblr.ErrFetch
	}
	return []domain.ExternalPost{
		{Id: "e100", BlogName: blog, Timestamp: 100},
		{Id: "e200", BlogName: blog, Timestamp: 200},
	}, nil
}

func (fakeTumblr) PostsByTag(_ context.Context, tag string, _ tumblr.TagQuery) ([]domain.ExternalPost, error) {
	return []domain.ExternalPost{{Id: "t1", BlogName: "tagger", Tags: []string{tag}, Timestamp: 300}}, nil
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	store  *db.DB
	events *recordingPublisher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := db.Open(filepath.Join(t.TempDir(), "reblog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	uploadDir := t.TempDir()
	disk, err := media.NewDiskStorage(uploadDir, "")
	if err != nil {
		t.Fatalf("Failed to create upload storage: %v", err)
	}

	conf := &util.AppConfig{}
	conf.Conf.Host = "127.0.0.1"
	conf.Conf.HttpPort = 4000
	conf.Conf.PublicUrl = "http://reblog.test"
	conf.Conf.ExternalTimeout = time.Second

	rec := &recordingPublisher{}
	srv := NewServer(conf, Deps{
		Store:     store,
		Auth:      auth.New(store, "test-secret", time.Hour),
		Tumblr:    fakeTumblr{},
		Media:     disk,
		UploadDir: uploadDir,
		Events:    rec,
	})
	return &testApp{t: t, router: srv.Router(), store: store, events: rec}
}

func (a *testApp) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

type authBody struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (a *testApp) register(name, email string) authBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", map[string]string{"name": name, "email": email, "password": "secret1"}, "")
	if w.Code != http.StatusCreated {
		a.t.Fatalf("Register %s failed: %d %s", email, w.Code, w.Body.String())
	}
	return decode[authBody](a.t, w)
}

func (a *testApp) createPost(token, content string, tags ...string) domain.Post {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/posts", map[string]any{"type": "text", "content": content, "tags": tags}, token)
	if w.Code != http.StatusCreated {
		a.t.Fatalf("Create post failed: %d %s", w.Code, w.Body.String())
	}
	return decode[domain.Post](a.t, w)
}

func TestPing(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/api/ping", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Errorf("Expected pong, got %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	reg := app.register("Alice", "alice@x.com")
	if reg.Token == "" || reg.User.Name != "Alice" || reg.User.Email != "alice@x.com" {
		t.Errorf("Unexpected register response %+v", reg)
	}

	w := app.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@x.com", "password": "secret1"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", w.Code, w.Body.String())
	}
	login := decode[authBody](t, w)
	if login.User.Id != reg.User.Id || login.Token == "" {
		t.Errorf("Unexpected login response %+v", login)
	}

	w = app.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@x.com", "password": "wrong"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a wrong password, got %d", w.Code)
	}
	if body := decode[errorBody](t, w); body.Error != "Invalid credentials" {
		t.Errorf("Expected Invalid credentials, got %q", body.Error)
	}

	w = app.do(http.MethodPost, "/api/auth/register", map[string]string{"name": "Alice", "email": "ALICE@x.com", "password": "secret1"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a duplicate email, got %d", w.Code)
	}
	if body := decode[errorBody](t, w); body.Error != "User already exists" || body.Reason != domain.ReasonDuplicateEmail {
		t.Errorf("Unexpected duplicate response %+v", body)
	}

	w = app.do(http.MethodGet, "/api/auth/me", nil, login.Token)
	if w.Code != http.StatusOK || decode[domain.User](t, w).Email != "alice@x.com" {
		t.Errorf("Expected me to return alice, got %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodPost, "/api/auth/register", map[string]string{"name": "Bob", "email": "bob@x.com", "password": "123"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a short password, got %d", w.Code)
	}
	if body := decode[errorBody](t, w); body.Reason != domain.ReasonInvalidInput {
		t.Errorf("Expected invalid-input reason, got %+v", body)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/auth/me", nil, "")
	if w.Code != http.StatusUnauthorized || decode[errorBody](t, w).Error != "Not authorized, no token" {
		t.Errorf("Unexpected response %d %s", w.Code, w.Body.String())
	}
	w = app.do(http.MethodPost, "/api/posts", map[string]string{"content": "x"}, "not-a-token")
	if w.Code != http.StatusUnauthorized || decode[errorBody](t, w).Error != "Not authorized, token failed" {
		t.Errorf("Unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestFollowingFeed(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")
	bob := app.register("Bob", "bob@x.com")

	post := app.createPost(alice.Token, "hello world", "art")
	if post.Author.Id != alice.User.Id || len(post.Tags) != 1 || post.Tags[0] != "art" {
		t.Errorf("Unexpected post %+v", post)
	}

	w := app.do(http.MethodPost, "/api/auth/follow/"+alice.User.Id.String(), nil, bob.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("Follow failed: %d %s", w.Code, w.Body.String())
	}
	following := decode[map[string][]uuid.UUID](t, w)["following"]
	if len(following) != 1 || following[0] != alice.User.Id {
		t.Errorf("Expected bob to follow only alice, got %v", following)
	}

	w = app.do(http.MethodGet, "/api/auth/following/posts", nil, bob.Token)
	posts := decode[[]domain.Post](t, w)
	if len(posts) != 1 || posts[0].Id != post.Id || posts[0].Content != "hello world" {
		t.Errorf("Expected exactly alice's post, got %+v", posts)
	}

	w = app.do(http.MethodGet, "/api/auth/me", nil, bob.Token)
	if me := decode[domain.User](t, w); len(me.Following) != 1 || me.Following[0] != alice.User.Id {
		t.Errorf("Expected follow set {alice}, got %v", me.Following)
	}

	w = app.do(http.MethodGet, "/api/auth/following/posts", nil, alice.Token)
	if posts := decode[[]domain.Post](t, w); len(posts) != 0 {
		t.Errorf("Expected alice's following feed to be empty, got %d posts", len(posts))
	}

	w = app.do(http.MethodGet, "/api/auth/following/users", nil, bob.Token)
	if users := decode[[]domain.User](t, w); len(users) != 1 || users[0].Name != "Alice" {
		t.Errorf("Expected alice in followed users, got %+v", users)
	}

	w = app.do(http.MethodPost, "/api/auth/follow/"+bob.User.Id.String(), nil, bob.Token)
	if w.Code != http.StatusBadRequest || decode[errorBody](t, w).Reason != domain.ReasonSelfFollow {
		t.Errorf("Expected self-follow rejection, got %d %s", w.Code, w.Body.String())
	}

	w = app.do(http.MethodPost, "/api/auth/unfollow/"+alice.User.Id.String(), nil, bob.Token)
	if got := decode[map[string][]uuid.UUID](t, w)["following"]; len(got) != 0 {
		t.Errorf("Expected empty follow set after unfollow, got %v", got)
	}

	subjects := strings.Join(app.events.published(), ",")
	if !strings.Contains(subjects, "reblog.post.created") || !strings.Contains(subjects, "reblog.user.followed") {
		t.Errorf("Expected post and follow events, got %s", subjects)
	}
}

func TestUserListing(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")
	app.register("Bob", "bob@x.com")

	w := app.do(http.MethodGet, "/api/auth/users", nil, alice.Token)
	users := decode[[]domain.User](t, w)
	if len(users) != 1 || users[0].Name != "Bob" {
		t.Errorf("Expected only bob, got %+v", users)
	}

	w = app.do(http.MethodGet, "/api/auth/users/"+users[0].Id.String(), nil, alice.Token)
	if w.Code != http.StatusOK || decode[domain.User](t, w).Name != "Bob" {
		t.Errorf("Expected bob, got %d %s", w.Code, w.Body.String())
	}

	w = app.do(http.MethodGet, "/api/auth/users/"+uuid.NewString(), nil, alice.Token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	w = app.do(http.MethodGet, "/api/auth/users/not-an-id", nil, alice.Token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a malformed id, got %d", w.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")

	w := app.do(http.MethodPut, "/api/auth/profile", map[string]string{"bio": "painter", "themeColor": "#ffffff"}, alice.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("Update failed: %d %s", w.Code, w.Body.String())
	}
	u := decode[domain.User](t, w)
	if u.Bio != "painter" || u.ThemeColor != "#ffffff" || u.Avatar != domain.DefaultAvatar {
		t.Errorf("Unexpected profile %+v", u.Profile)
	}
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")
	bob := app.register("Bob", "bob@x.com")
	post := app.createPost(alice.Token, "first", "a", "b")
	path := "/api/posts/" + post.Id.String()

	w := app.do(http.MethodPut, path, map[string]string{"content": "hijacked"}, bob.Token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 editing someone else's post, got %d", w.Code)
	}

	w = app.do(http.MethodPut, path, map[string]any{"content": "edited", "tags": "x, y"}, alice.Token)
	edited := decode[domain.Post](t, w)
	if edited.Content != "edited" || len(edited.Tags) != 2 || edited.Tags[0] != "x" {
		t.Errorf("Unexpected edit result %+v", edited)
	}

	w = app.do(http.MethodGet, path, nil, "")
	if w.Code != http.StatusOK || decode[domain.Post](t, w).Content != "edited" {
		t.Errorf("Expected the edited post, got %d %s", w.Code, w.Body.String())
	}

	w = app.do(http.MethodDelete, path, nil, bob.Token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 deleting someone else's post, got %d", w.Code)
	}
	w = app.do(http.MethodDelete, path, nil, alice.Token)
	if w.Code != http.StatusOK {
		t.Errorf("Expected delete to succeed, got %d", w.Code)
	}
	w = app.do(http.MethodGet, path, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")

	w := app.do(http.MethodPost, "/api/posts", map[string]string{"type": "text", "content": "  "}, alice.Token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty text, got %d", w.Code)
	}
	w = app.do(http.MethodPost, "/api/posts", map[string]string{"type": "poll", "content": "x"}, alice.Token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown type, got %d", w.Code)
	}
}

func TestSocialActions(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")
	bob := app.register("Bob", "bob@x.com")
	post := app.createPost(alice.Token, "like me")
	path := "/api/posts/" + post.Id.String()

	type likeBody struct {
		Liked      bool        `json:"liked"`
		Likes      []uuid.UUID `json:"likes"`
		LikesCount int         `json:"likesCount"`
	}
	liked := decode[likeBody](t, app.do(http.MethodPut, path+"/like", nil, bob.Token))
	if !liked.Liked || liked.LikesCount != 1 || liked.Likes[0] != bob.User.Id {
		t.Errorf("Unexpected like result %+v", liked)
	}
	unliked := decode[likeBody](t, app.do(http.MethodPut, path+"/like", nil, bob.Token))
	if unliked.Liked || unliked.LikesCount != 0 || unliked.Likes == nil {
		t.Errorf("Unexpected unlike result %+v", unliked)
	}

	w := app.do(http.MethodPost, path+"/comment", map[string]string{"text": "nice"}, bob.Token)
	comments := decode[[]domain.Comment](t, w)
	if len(comments) != 1 || comments[0].Text != "nice" || comments[0].Author.Name != "Bob" {
		t.Errorf("Unexpected comments %+v", comments)
	}

	w = app.do(http.MethodPost, path+"/repost", nil, alice.Token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 reposting own post, got %d", w.Code)
	}
	if body := decode[errorBody](t, w); body.Error != "You cannot repost your own post." || body.Reason != "self-repost" {
		t.Errorf("Unexpected self-repost response %+v", body)
	}

	type repostBody struct {
		Reposts      []uuid.UUID `json:"reposts"`
		RepostsCount int         `json:"repostsCount"`
	}
	app.do(http.MethodPost, path+"/repost", nil, bob.Token)
	reposted := decode[repostBody](t, app.do(http.MethodPost, path+"/repost", nil, bob.Token))
	if reposted.RepostsCount != 1 {
		t.Errorf("Expected reposting to be idempotent, got %+v", reposted)
	}

	w = app.do(http.MethodPut, "/api/posts/"+uuid.NewString()+"/like", nil, bob.Token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 liking a missing post, got %d", w.Code)
	}
}

func TestExternalActionEndpoints(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")

	type actions struct {
		Liked    []string `json:"likedTumblrPosts"`
		Reposted []string `json:"repostedTumblrPosts"`
	}
	got := decode[actions](t, app.do(http.MethodPost, "/api/auth/like-tumblr", map[string]string{"tumblrPostId": "tumblr123"}, alice.Token))
	if len(got.Liked) != 1 || got.Liked[0] != "tumblr123" || got.Reposted == nil {
		t.Errorf("Unexpected actions %+v", got)
	}
	app.do(http.MethodPost, "/api/auth/repost-tumblr", map[string]string{"tumblrPostId": "tumblr123"}, alice.Token)
	app.do(http.MethodPost, "/api/auth/unlike-tumblr", map[string]string{"tumblrPostId": "tumblr123"}, alice.Token)

	got = decode[actions](t, app.do(http.MethodGet, "/api/auth/tumblr-actions", nil, alice.Token))
	if len(got.Liked) != 0 || len(got.Reposted) != 1 {
		t.Errorf("Unexpected actions %+v", got)
	}

	w := app.do(http.MethodPost, "/api/auth/like-tumblr", map[string]string{}, alice.Token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without an id, got %d", w.Code)
	}
}

func TestComposedFeed(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")
	app.createPost(alice.Token, "local now")

	w := app.do(http.MethodGet, "/api/feed?blog=staff", nil, "")
	items := decode[[]domain.FeedItem](t, w)
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Provenance != domain.ProvenanceLocal || items[1].Id() != "e200" || items[2].Id() != "e100" {
		t.Errorf("Unexpected order %s, %s, %s", items[0].Id(), items[1].Id(), items[2].Id())
	}

	w = app.do(http.MethodGet, "/api/feed?blog=down", nil, "")
	if items := decode[[]domain.FeedItem](t, w); w.Code != http.StatusOK || len(items) != 1 {
		t.Errorf("Expected a local-only feed when upstream fails, got %d with %d items", w.Code, len(items))
	}

	w = app.do(http.MethodGet, "/api/feed?blog=staff&tag=cats", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for tag and blog together, got %d", w.Code)
	}

	w = app.do(http.MethodGet, "/api/feed?following=true", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for an anonymous following feed, got %d", w.Code)
	}

	w = app.do(http.MethodGet, "/api/feed?following=true&tag=cats", nil, alice.Token)
	items = decode[[]domain.FeedItem](t, w)
	if len(items) != 1 || items[0].Id() != "t1" {
		t.Errorf("Expected only the tagged post, got %d items", len(items))
	}
}

func TestTumblrProxy(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/tumblr/blog/staff/posts", nil, "")
	body := decode[map[string][]domain.ExternalPost](t, w)
	if len(body["posts"]) != 2 {
		t.Errorf("Expected 2 proxied posts, got %v", body)
	}

	w = app.do(http.MethodGet, "/api/tumblr/tag/cats", nil, "")
	if tagged := decode[[]domain.ExternalPost](t, w); len(tagged) != 1 || tagged[0].Tags[0] != "cats" {
		t.Errorf("Unexpected tagged posts %+v", tagged)
	}

	w = app.do(http.MethodGet, "/api/tumblr/blog/down/posts", nil, "")
	if w.Code != http.StatusBadGateway || decode[errorBody](t, w).Error == "" {
		t.Errorf("Expected 502 with an error, got %d %s", w.Code, w.Body.String())
	}
}

var gifData = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func multipartRequest(t *testing.T, path, field, name string, data []byte, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadAndServe(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")

	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, multipartRequest(t, "/api/posts/upload", "file", "cat.gif", gifData, alice.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("Upload failed: %d %s", w.Code, w.Body.String())
	}
	files := decode[[]domain.MediaFile](t, w)
	if len(files) != 1 || files[0].Kind != "image" || files[0].OriginalName != "cat.gif" {
		t.Fatalf("Unexpected files %+v", files)
	}
	if !strings.HasPrefix(files[0].Url, "/uploads/") {
		t.Errorf("Expected a stored upload, got %s", files[0].Url)
	}

	w = app.do(http.MethodGet, files[0].Url, nil, "")
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), gifData) {
		t.Errorf("Expected the upload to be served, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	app.router.ServeHTTP(w, multipartRequest(t, "/api/posts/upload", "file", "notes.txt", []byte("plain text"), alice.Token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for text upload, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	app.router.ServeHTTP(w, multipartRequest(t, "/api/auth/avatar", "avatar", "me.gif", gifData, alice.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("Avatar upload failed: %d %s", w.Code, w.Body.String())
	}
	url := decode[map[string]string](t, w)["url"]
	me := decode[domain.User](t, app.do(http.MethodGet, "/api/auth/me", nil, alice.Token))
	if me.Avatar != url {
		t.Errorf("Expected avatar %s, got %s", url, me.Avatar)
	}
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidCredentials, http.StatusBadRequest},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrSelfRepost, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{tumblr.ErrFetch, http.StatusBadGateway},
		{domain.Authoritative("op", errors.New("disk")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}
