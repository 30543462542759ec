package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/feed"
	"github.com/deemkeen/reblog/tumblr"
	"github.com/gin-gonic/gin"
)

var errNoUpstream = errors.New("tumblr is not configured")

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// handleFeed serves the composed feed. following=true needs a token.
func (s *Server) handleFeed(c *gin.Context) {
	req := feed.Request{
		Tag:   c.Query("tag"),
		Blog:  c.Query("blog"),
		Limit: queryInt(c, "limit"),
	}
	viewer, authenticated := currentUser(c)
	req.ViewerId = viewer
	if following, _ := strconv.ParseBool(c.Query("following")); following {
		if !authenticated {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}
		req.FollowingOnly = true
	}

	items, err := s.composer.GetFeed(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

func (s *Server) handleTumblrBlog(c *gin.Context) {
	if s.tumblr == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errNoUpstream.Error()})
		return
	}
	posts, err := s.tumblr.PostsByBlog(c.Request.Context(), c.Param("id"), tumblr.BlogQuery{
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
		Type:   c.Query("type"),
	})
	if err != nil {
		respondUpstream(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": nonNil(posts)})
}

func (s *Server) handleTumblrTag(c *gin.Context) {
	if s.tumblr == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errNoUpstream.Error()})
		return
	}
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	posts, err := s.tumblr.PostsByTag(c.Request.Context(), c.Param("tag"), tumblr.TagQuery{
		Limit:  queryInt(c, "limit"),
		Before: before,
	})
	if err != nil {
		respondUpstream(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(posts))
}

// respondUpstream reports any proxy failure as 502.
func respondUpstream(c *gin.Context, err error) {
	if !errors.Is(err, domain.ErrAdvisory) {
		err = errors.Join(domain.ErrAdvisory, err)
	}
	respondError(c, err)
}
