package web

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/events"
	"github.com/deemkeen/reblog/feed"
	"github.com/deemkeen/reblog/media"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type externalActionRequest struct {
	PostId string `json:"tumblrPostId"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	token, user, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	token, user, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.store.UserById(c.Request.Context(), mustUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var update domain.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := s.store.UpdateProfile(c.Request.Context(), mustUser(c), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, "No file uploaded")
		return
	}
	data, err := readUpload(file)
	if err != nil {
		badRequest(c, "Could not read upload")
		return
	}

	up, err := media.UploadWithFallback(c.Request.Context(), s.media, file.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := s.store.UpdateProfile(c.Request.Context(), mustUser(c), domain.ProfileUpdate{Avatar: &up.File.Url}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": up.File.Url})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) follow(c *gin.Context, following bool) {
	target, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	me := mustUser(c)

	var err error
	if following {
		err = s.store.Follow(ctx, me, target)
	} else {
		err = s.store.Unfollow(ctx, me, target)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	ids, err := s.store.FollowingIds(ctx, me)
	if err != nil {
		respondError(c, err)
		return
	}

	events.Notify(ctx, s.events, events.SubjectUserFollowed, events.UserFollowed{UserId: me, TargetId: target, Following: following})
	c.JSON(http.StatusOK, gin.H{"following": nonNil(ids)})
}

func (s *Server) handleFollow(c *gin.Context) {
	s.follow(c, true)
}

func (s *Server) handleUnfollow(c *gin.Context) {
	s.follow(c, false)
}

func (s *Server) handleFollowingPosts(c *gin.Context) {
	posts, err := feed.StoreSource{Posts: s.store, Follows: s.store}.FollowingPosts(c.Request.Context(), mustUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(posts))
}

func (s *Server) handleFollowingUsers(c *gin.Context) {
	ctx := c.Request.Context()
	ids, err := s.store.FollowingIds(ctx, mustUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	users, err := s.store.UsersByIds(ctx, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(users))
}

func (s *Server) handleUsers(c *gin.Context) {
	users, err := s.store.ListUsersExcept(c.Request.Context(), mustUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(users))
}

func (s *Server) handleUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := s.store.UserById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleExternalAction(action db.ExternalAction, add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req externalActionRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PostId) == "" {
			badRequest(c, "tumblrPostId is required")
			return
		}
		ctx := c.Request.Context()
		me := mustUser(c)

		var err error
		if add {
			err = s.store.AddExternalAction(ctx, me, strings.TrimSpace(req.PostId), action)
		} else {
			err = s.store.RemoveExternalAction(ctx, me, strings.TrimSpace(req.PostId), action)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		s.writeExternalActions(c, me)
	}
}

func (s *Server) handleExternalActions(c *gin.Context) {
	s.writeExternalActions(c, mustUser(c))
}

func (s *Server) writeExternalActions(c *gin.Context, userId uuid.UUID) {
	liked, reposted, err := s.store.ExternalActions(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"likedTumblrPosts":    nonNil(liked),
		"repostedTumblrPosts": nonNil(reposted),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
