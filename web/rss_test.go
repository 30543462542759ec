package web

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/util"
	"github.com/google/uuid"
)

func TestGetRSS(t *testing.T) {
	conf := &util.AppConfig{}
	conf.Conf.PublicUrl = "https://reblog.example/"

	user := domain.NewUser("Alice", "alice@x.com", "")
	user.Bio = "painter"
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := []domain.Post{
		{
			Id:         uuid.New(),
			Author:     user.Summary(),
			Kind:       domain.KindImage,
			Content:    "sunset\nover the sea",
			MediaFiles: []domain.MediaFile{{Url: "https://reblog.example/uploads/a.png", Kind: "image"}},
			CreatedAt:  created,
		},
		{Id: uuid.New(), Author: user.Summary(), Kind: domain.KindText, Content: "", CreatedAt: created.Add(-time.Hour)},
	}

	rss, err := GetRSS(conf, user, posts)
	if err != nil {
		t.Fatalf("GetRSS failed: %v", err)
	}

	expected := []string{
		"<rss",
		"<title>reblog - Alice</title>",
		"https://reblog.example/feed/" + user.Id.String() + ".rss",
		"<title>sunset over the sea</title>",
		"https://reblog.example/api/posts/" + posts[0].Id.String(),
		`<enclosure url="https://reblog.example/uploads/a.png"`,
		"Posts by Alice. painter",
	}
	for _, want := range expected {
		if !strings.Contains(rss, want) {
			t.Errorf("Expected RSS to contain %q", want)
		}
	}
	// untitled posts fall back to their creation time
	if !strings.Contains(rss, created.Add(-time.Hour).Format(util.DateTimeFormat())) {
		t.Error("Expected a date title for the empty post")
	}
}

func TestGetRSSDefaultLink(t *testing.T) {
	conf := &util.AppConfig{}
	conf.Conf.Host = "localhost"
	conf.Conf.HttpPort = 9999
	user := domain.NewUser("Bob", "bob@x.com", "")

	rss, err := GetRSS(conf, user, nil)
	if err != nil {
		t.Fatalf("GetRSS failed: %v", err)
	}
	if !strings.Contains(rss, "http://localhost:9999/feed/"+user.Id.String()+".rss") {
		t.Errorf("Expected link from host and port, got %s", rss)
	}
}

func TestRSSEndpoint(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("Alice", "alice@x.com")
	app.createPost(alice.Token, "hello rss")

	w := app.do(http.MethodGet, "/feed/"+alice.User.Id.String()+".rss", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/rss+xml") {
		t.Errorf("Unexpected content type %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "hello rss") {
		t.Error("Expected the post in the feed")
	}

	tests := []string{
		"/feed/" + uuid.NewString() + ".rss",
		"/feed/" + alice.User.Id.String(),
		"/feed/nobody.rss",
	}
	for _, path := range tests {
		if w := app.do(http.MethodGet, path, nil, ""); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for %s, got %d", path, w.Code)
		}
	}
}
