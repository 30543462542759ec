// Package events announces domain changes on a message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SubjectPostCreated   = "reblog.post.created"
	SubjectPostLiked     = "reblog.post.liked"
	SubjectPostCommented = "reblog.post.commented"
	SubjectPostReposted  = "reblog.post.reposted"
	SubjectUserFollowed  = "reblog.user.followed"
)

var publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reblog_events_published_total",
	Help: "Events published, by subject and result",
}, []string{"subject", "result"})

type PostCreated struct {
	PostId    uuid.UUID       `json:"postId"`
	AuthorId  uuid.UUID       `json:"authorId"`
	Kind      domain.PostKind `json:"type"`
	Tags      []string        `json:"tags"`
	CreatedAt time.Time       `json:"createdAt"`
}

type PostLiked struct {
	PostId uuid.UUID `json:"postId"`
	UserId uuid.UUID `json:"userId"`
	Liked  bool      `json:"liked"`
	Likes  int       `json:"likes"`
}

type PostCommented struct {
	PostId uuid.UUID `json:"postId"`
	UserId uuid.UUID `json:"userId"`
	Text   string    `json:"text"`
}

type PostReposted struct {
	PostId  uuid.UUID `json:"postId"`
	UserId  uuid.UUID `json:"userId"`
	Reposts int       `json:"reposts"`
}

type UserFollowed struct {
	UserId    uuid.UUID `json:"userId"`
	TargetId  uuid.UUID `json:"targetId"`
	Following bool      `json:"following"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NatsPublisher struct {
	conn conn
}

func Connect(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("reblog"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", subject, err)
	}
	return p.conn.Publish(subject, data)
}

// Close flushes pending messages before closing the connection.
func (p *NatsPublisher) Close() error {
	return p.conn.Drain()
}

// Notify publishes v and only logs failures; events never fail a request.
func Notify(ctx context.Context, p Publisher, subject string, v any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, v); err != nil {
		publishedTotal.WithLabelValues(subject, "error").Inc()
		slog.Warn("event not published", slog.String("subject", subject), slog.Any("error", err))
		return
	}
	publishedTotal.WithLabelValues(subject, "ok").Inc()
}
