// Package notify delivers notifications over out-of-band channels such as
// email and realtime push.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/pkg/jobs"
	"github.com/noah-isme/attachment-portal-api/pkg/middleware/requestid"
)

// Channel names a delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Message is a rendered notification addressed to one user.
type Message struct {
	NotificationID string `json:"id"`
	UserID         string `json:"user_id"`
	Email          string `json:"-"`
	Name           string `json:"-"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"message"`
	Link           string `json:"link,omitempty"`
}

// Dispatcher delivers a message over a single channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg Message) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, msg Message) error { return f(ctx, msg) }

type delivery struct {
	channel Channel
	msg     Message
}

// Mux routes messages to per-channel dispatchers, through a job queue when one
// is attached. Delivery failures are logged and never surface to the sender.
type Mux struct {
	dispatchers map[Channel]Dispatcher
	queue       *jobs.Queue
	logger      *zap.Logger
}

// NewMux constructs an empty Mux.
func NewMux(logger *zap.Logger) *Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mux{dispatchers: make(map[Channel]Dispatcher), logger: logger}
}

// Register binds d to channel, replacing any previous dispatcher.
func (m *Mux) Register(channel Channel, d Dispatcher) {
	m.dispatchers[channel] = d
}

// Has reports whether a dispatcher is registered for channel.
func (m *Mux) Has(channel Channel) bool {
	_, ok := m.dispatchers[channel]
	return ok
}

// UseQueue makes subsequent sends asynchronous through q. q must be built with Handle as its handler.
func (m *Mux) UseQueue(q *jobs.Queue) {
	m.queue = q
}

// Send delivers msg over channel. Unknown channels are ignored.
func (m *Mux) Send(ctx context.Context, channel Channel, msg Message) {
	d, ok := m.dispatchers[channel]
	if !ok {
		return
	}
	if m.queue != nil && m.queue.Running() {
		job := jobs.Job{
			ID:        uuid.NewString(),
			Type:      string(channel),
			RequestID: requestid.FromContext(ctx),
			Payload:   delivery{channel: channel, msg: msg},
		}
		err := m.queue.Enqueue(job)
		if err == nil {
			return
		}
		m.logger.Warn("notification queue unavailable, delivering inline", zap.String("channel", string(channel)), zap.Error(err))
	}
	if err := d.Dispatch(ctx, msg); err != nil {
		m.logger.Error("notification delivery failed",
			zap.String("channel", string(channel)),
			zap.String("user_id", msg.UserID),
			zap.Error(err))
	}
}

// Handle is the job handler for queued deliveries.
func (m *Mux) Handle(ctx context.Context, job jobs.Job) error {
	del, ok := job.Payload.(delivery)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	d, ok := m.dispatchers[del.channel]
	if !ok {
		return nil
	}
	return d.Dispatch(ctx, del.msg)
}
