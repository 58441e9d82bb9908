package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/pkg/jobs"
)

func TestMuxSendsInlineWithoutQueue(t *testing.T) {
	var got []Message
	mux := NewMux(nil)
	mux.Register(ChannelEmail, DispatcherFunc(func(ctx context.Context, msg Message) error {
		got = append(got, msg)
		return nil
	}))

	mux.Send(context.Background(), ChannelEmail, Message{UserID: "u1", Title: "Approved"})
	mux.Send(context.Background(), ChannelPush, Message{UserID: "u1"})

	require.Len(t, got, 1)
	require.Equal(t, "Approved", got[0].Title)
	require.False(t, mux.Has(ChannelPush))
}

func TestMuxSwallowsDispatchErrors(t *testing.T) {
	mux := NewMux(nil)
	mux.Register(ChannelPush, DispatcherFunc(func(ctx context.Context, msg Message) error {
		return errors.New("redis down")
	}))
	require.NotPanics(t, func() {
		mux.Send(context.Background(), ChannelPush, Message{UserID: "u1"})
	})
}

func TestMuxDeliversThroughQueue(t *testing.T) {
	delivered := make(chan Message, 1)
	mux := NewMux(nil)
	mux.Register(ChannelEmail, DispatcherFunc(func(ctx context.Context, msg Message) error {
		delivered <- msg
		return nil
	}))
	q := jobs.NewQueue("notifications", mux.Handle, jobs.QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()
	mux.UseQueue(q)

	mux.Send(context.Background(), ChannelEmail, Message{UserID: "u2", Title: "Queued"})

	select {
	case msg := <-delivered:
		require.Equal(t, "u2", msg.UserID)
	case <-time.After(time.Second):
		t.Fatal("queued delivery never ran")
	}
}

func TestHandleRejectsUnknownPayload(t *testing.T) {
	mux := NewMux(nil)
	err := mux.Handle(context.Background(), jobs.Job{Payload: "nope"})
	require.Error(t, err)
}

type recordingPublisher struct {
	channel string
	body    []byte
}

func (r *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channel = channel
	r.body, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(0)
	return cmd
}

func TestRedisPusherPublishesPerUserChannel(t *testing.T) {
	pub := &recordingPublisher{}
	pusher := NewRedisPusher(pub, "")

	err := pusher.Dispatch(context.Background(), Message{UserID: "u3", Title: "NSSF Verified", Email: "hidden@example.com"})
	require.NoError(t, err)
	require.Equal(t, "notifications:u3", pub.channel)
	require.Contains(t, string(pub.body), "NSSF Verified")
	require.False(t, strings.Contains(string(pub.body), "hidden@example.com"))
}

func TestSendgridMailerPrepare(t *testing.T) {
	mailer := NewSendgridMailer("key", "", "Portal", "no-reply@example.com", "https://portal.example.com")
	mail := mailer.prepare(Message{Email: "student@example.com", Name: "Student", Title: "Attachment Approved", Body: "Approved!", Link: "/attachments/1/"})

	require.Equal(t, "[Portal] Attachment Approved", mail.Personalizations[0].Subject)
	require.Equal(t, "student@example.com", mail.Personalizations[0].To[0].Address)
	require.Contains(t, mail.Content[0].Value, "https://portal.example.com/attachments/1/")
}

func TestSendgridMailerSkipsMissingAddress(t *testing.T) {
	mailer := NewSendgridMailer("key", "", "Portal", "no-reply@example.com", "")
	require.NoError(t, mailer.Dispatch(context.Background(), Message{UserID: "u1"}))
}
