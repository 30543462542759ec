// Package web serves the reblog REST API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/deemkeen/reblog/auth"
	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/events"
	"github.com/deemkeen/reblog/feed"
	"github.com/deemkeen/reblog/media"
	"github.com/deemkeen/reblog/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	shutdownTimeout       = 30 * time.Second
)

type Deps struct {
	Store db.Store
	Auth  *auth.Service
	// Tumblr may be nil, which disables the proxy and external feed items.
	Tumblr feed.ExternalSource
	Media  media.Storage
	// UploadDir is served under /uploads when set.
	UploadDir string
	Events    events.Publisher
}

type Server struct {
	conf     *util.AppConfig
	store    db.Store
	auth     *auth.Service
	tumblr   feed.ExternalSource
	composer *feed.Composer
	media    media.Storage
	events   events.Publisher
	uploads  string
}

func NewServer(conf *util.AppConfig, d Deps) *Server {
	publisher := d.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	local := feed.StoreSource{Posts: d.Store, Follows: d.Store}
	return &Server{
		conf:   conf,
		store:  d.Store,
		auth:   d.Auth,
		tumblr: d.Tumblr,
		composer: feed.NewComposer(local, d.Tumblr, feed.Config{
			ExternalTimeout: conf.Conf.ExternalTimeout,
			DefaultBlog:     conf.Conf.TumblrDefaultBlog,
		}),
		media:   d.Media,
		events:  publisher,
		uploads: d.UploadDir,
	}
}

func (s *Server) maxUploadBytes() int64 {
	if s.conf.Conf.MaxUploadBytes > 0 {
		return s.conf.Conf.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (s *Server) Router() *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery(), RequestLogger(), Metrics())
	g.Use(gzip.Gzip(gzip.DefaultCompression))
	g.Use(Cors(s.conf.Conf.CorsOrigins))

	if s.conf.Conf.RateLimit > 0 {
		g.Use(RateLimitMiddleware(NewRateLimiter(rate.Limit(s.conf.Conf.RateLimit), max(s.conf.Conf.RateBurst, 1))))
	}
	// stricter limit for login and register
	authLimiter := RateLimitMiddleware(NewRateLimiter(rate.Every(time.Second), 10))
	maxUpload := MaxBytesMiddleware(s.maxUploadBytes())

	g.GET("/metrics", gin.WrapH(promhttp.Handler()))
	g.GET("/feed/:file", s.handleRSS)
	if s.uploads != "" {
		g.Static(media.UploadsPath, s.uploads)
	}

	api := g.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	api.GET("/feed", s.OptionalAuth(), s.handleFeed)
	api.GET("/tumblr/blog/:id/posts", s.handleTumblrBlog)
	api.GET("/tumblr/tag/:tag", s.handleTumblrTag)

	users := api.Group("/auth")
	users.POST("/register", authLimiter, s.handleRegister)
	users.POST("/login", authLimiter, s.handleLogin)

	me := users.Group("", s.RequireAuth())
	me.GET("/me", s.handleMe)
	me.GET("/profile", s.handleMe)
	me.PUT("/profile", s.handleUpdateProfile)
	me.POST("/avatar", maxUpload, s.handleAvatar)
	me.POST("/follow/:id", s.handleFollow)
	me.POST("/unfollow/:id", s.handleUnfollow)
	me.GET("/following/posts", s.handleFollowingPosts)
	me.GET("/following/users", s.handleFollowingUsers)
	me.GET("/users", s.handleUsers)
	me.GET("/users/:id", s.handleUser)
	me.POST("/like-tumblr", s.handleExternalAction(db.ExternalLike, true))
	me.POST("/unlike-tumblr", s.handleExternalAction(db.ExternalLike, false))
	me.POST("/repost-tumblr", s.handleExternalAction(db.ExternalRepost, true))
	me.POST("/unrepost-tumblr", s.handleExternalAction(db.ExternalRepost, false))
	me.GET("/tumblr-actions", s.handleExternalActions)

	posts := api.Group("/posts")
	posts.GET("", s.handleAllPosts)
	posts.GET("/:id", s.handlePost)

	authored := posts.Group("", s.RequireAuth())
	authored.POST("", s.handleCreatePost)
	authored.POST("/upload", maxUpload, s.handleUpload)
	authored.PUT("/:id", s.handleUpdatePost)
	authored.DELETE("/:id", s.handleDeletePost)
	authored.PUT("/:id/like", s.handleLike)
	authored.POST("/:id/comment", s.handleComment)
	authored.POST("/:id/repost", s.handleRepost)

	return g
}

// Serve runs the API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, conf *util.AppConfig, d Deps) error {
	srv := &http.Server{
		Addr:              conf.Addr(),
		Handler:           NewServer(conf, d).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
