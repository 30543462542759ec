package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/deemkeen/reblog/domain"
	"github.com/deemkeen/reblog/events"
	"github.com/deemkeen/reblog/media"
	"github.com/deemkeen/reblog/util"
	"github.com/gin-gonic/gin"
)

// tagList accepts either a JSON array of tags or a single string of comma
// or space separated tags.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = util.NormalizeTags(strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		}))
		return nil
	}
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return err
	}
	*t = util.NormalizeTags(tags)
	return nil
}

type createPostRequest struct {
	Kind       string             `json:"type"`
	Content    string             `json:"content"`
	MediaFiles []domain.MediaFile `json:"mediaFiles"`
	Tags       tagList            `json:"tags"`
}

type updatePostRequest struct {
	Content string   `json:"content"`
	Tags    *tagList `json:"tags"`
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAllPosts(c *gin.Context) {
	posts, err := s.store.AllPosts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(posts))
}

func (s *Server) handlePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	post, err := s.store.PostById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	kind, err := domain.ParsePostKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	post, err := s.store.CreatePost(ctx, domain.NewPost{
		AuthorId:   mustUser(c),
		Kind:       kind,
		Content:    strings.TrimSpace(req.Content),
		MediaFiles: req.MediaFiles,
		Tags:       nonNil([]string(req.Tags)),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	events.Notify(ctx, s.events, events.SubjectPostCreated, events.PostCreated{
		PostId:    post.Id,
		AuthorId:  post.Author.Id,
		Kind:      post.Kind,
		Tags:      post.Tags,
		CreatedAt: post.CreatedAt,
	})
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	var tags []string
	if req.Tags != nil {
		tags = nonNil([]string(*req.Tags))
	}

	post, err := s.store.UpdatePost(c.Request.Context(), id, mustUser(c), strings.TrimSpace(req.Content), tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleDeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeletePost(c.Request.Context(), id, mustUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post removed"})
}

func (s *Server) handleLike(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	me := mustUser(c)

	liked, likes, err := s.store.ToggleLike(ctx, id, me)
	if err != nil {
		respondError(c, err)
		return
	}

	events.Notify(ctx, s.events, events.SubjectPostLiked, events.PostLiked{PostId: id, UserId: me, Liked: liked, Likes: len(likes)})
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": nonNil(likes), "likesCount": len(likes)})
}

func (s *Server) handleComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	ctx := c.Request.Context()
	me := mustUser(c)

	comments, err := s.store.AddComment(ctx, id, me, strings.TrimSpace(req.Text))
	if err != nil {
		respondError(c, err)
		return
	}

	events.Notify(ctx, s.events, events.SubjectPostCommented, events.PostCommented{PostId: id, UserId: me, Text: req.Text})
	c.JSON(http.StatusOK, nonNil(comments))
}

func (s *Server) handleRepost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	me := mustUser(c)

	reposts, err := s.store.Repost(ctx, id, me)
	if err != nil {
		respondError(c, err)
		return
	}

	events.Notify(ctx, s.events, events.SubjectPostReposted, events.PostReposted{PostId: id, UserId: me, Reposts: len(reposts)})
	c.JSON(http.StatusOK, gin.H{"reposts": nonNil(reposts), "repostsCount": len(reposts)})
}

// handleUpload stores every "file" part and describes the results.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "No files uploaded")
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		badRequest(c, "No files uploaded")
		return
	}

	files := make([]domain.MediaFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			badRequest(c, "Could not read upload")
			return
		}
		up, err := media.UploadWithFallback(c.Request.Context(), s.media, fh.Filename, data)
		if err != nil {
			respondError(c, err)
			return
		}
		files = append(files, up.File)
	}
	c.JSON(http.StatusOK, files)
}
