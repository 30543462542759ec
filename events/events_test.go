package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNatsPublisherEncodesJSON(t *testing.T) {
	c := &fakeConn{}
	p := &NatsPublisher{conn: c}

	ev := PostLiked{PostId: uuid.New(), UserId: uuid.New(), Liked: true, Likes: 3}
	if err := p.Publish(context.Background(), SubjectPostLiked, ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(c.subjects) != 1 || c.subjects[0] != SubjectPostLiked {
		t.Fatalf("Expected one message on %s, got %v", SubjectPostLiked, c.subjects)
	}
	var got PostLiked
	if err := json.Unmarshal(c.payloads[0], &got); err != nil {
		t.Fatalf("Payload is not JSON: %v", err)
	}
	if got != ev {
		t.Errorf("Expected %+v, got %+v", ev, got)
	}

	p.Close()
	if !c.drained {
		t.Error("Expected Close to drain the connection")
	}
}

func TestPublishCancelled(t *testing.T) {
	c := &fakeConn{}
	p := &NatsPublisher{conn: c}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Publish(ctx, SubjectPostCreated, PostCreated{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(c.subjects) != 0 {
		t.Errorf("Expected nothing published, got %v", c.subjects)
	}
}

func TestNotifySwallowsErrors(t *testing.T) {
	c := &fakeConn{err: errors.New("nats down")}

	// must not panic or block
	Notify(context.Background(), &NatsPublisher{conn: c}, SubjectUserFollowed, UserFollowed{})
	Notify(context.Background(), nil, SubjectUserFollowed, UserFollowed{})
	Notify(context.Background(), Nop{}, SubjectUserFollowed, UserFollowed{})
}

func TestConnectFailsWithoutServer(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1"); err == nil {
		t.Error("Expected an error connecting to a closed port")
	}
}
