package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/feeds"
)

// GetRSS renders the posts of user as an RSS 2.0 document.
func GetRSS(conf *util.AppConfig, user *domain.User, posts []domain.Post) (string, error) {
	base := strings.TrimSuffix(conf.Conf.PublicUrl, "/")
	if base == "" {
		base = fmt.Sprintf("http://%s", conf.Addr())
	}
	link := fmt.Sprintf("%s/feed/%s.rss", base, user.Id)

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("reblog - %s", user.Name),
		Link:        &feeds.Link{Href: link},
		Description: strings.TrimSpace(fmt.Sprintf("Posts by %s. %s", user.Name, user.Bio)),
		Author:      &feeds.Author{Name: user.Name},
		Created:     time.Now(),
	}
	if len(posts) > 0 {
		feed.Updated = posts[0].CreatedAt
	}

	for _, post := range posts {
		title := util.Truncate(util.NormalizeInput(post.Content), 80)
		if title == "" {
			title = post.CreatedAt.Format(util.DateTimeFormat())
		}
		item := &feeds.Item{
			Id:          post.Id.String(),
			Title:       title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/posts/%s", base, post.Id)},
			Description: post.Content,
			Author:      &feeds.Author{Name: post.Author.Name},
			Created:     post.CreatedAt,
		}
		if len(post.MediaFiles) > 0 && !strings.HasPrefix(post.MediaFiles[0].Url, "data:") {
			item.Enclosure = &feeds.Enclosure{Url: post.MediaFiles[0].Url, Type: post.MediaFiles[0].Kind, Length: "0"}
		}
		feed.Items = append(feed.Items, item)
	}

	return feed.ToRss()
}

// handleRSS serves /feed/<userId>.rss.
func (s *Server) handleRSS(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("file"), ".rss")
	id, err := uuid.Parse(name)
	if !ok || err != nil {
		c.String(http.StatusNotFound, "")
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.UserById(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.String(http.StatusNotFound, "")
			return
		}
		respondError(c, err)
		return
	}
	posts, err := s.store.PostsByAuthor(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	rss, err := GetRSS(s.conf, user, posts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
