package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/mqtt"
	"github.com/nerrad567/kobayashi-signals/internal/payload"
)

// inboxSize bounds the envelopes waiting for the loop.
const inboxSize = 16

// ErrStopped is returned by the handler when the loop is no longer running.
var ErrStopped = errors.New("consumer: loop stopped")

// Envelope is one inbound message before parsing.
type Envelope struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Loop processes inbound envelopes on a single goroutine.
type Loop struct {
	inbox    chan Envelope
	done     chan struct{}
	doneOnce sync.Once

	logger  *logging.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// New creates a consumer loop. rec may be nil.
func New(logger *logging.Logger, rec *metrics.Recorder) *Loop {
	return &Loop{
		inbox:   make(chan Envelope, inboxSize),
		done:    make(chan struct{}),
		logger:  logger.With("component", "consumer"),
		metrics: rec,
		now:     time.Now,
	}
}

// Handler returns the transport callback feeding this loop.
//
// It blocks until the loop accepts the envelope, so inbound order is kept;
// once Run has returned it fails fast with ErrStopped.
func (l *Loop) Handler() mqtt.MessageHandler {
	return func(topic string, data []byte) error {
		env := Envelope{
			Topic:      topic,
			Payload:    append([]byte(nil), data...),
			ReceivedAt: l.now(),
		}

		select {
		case l.inbox <- env:
			return nil
		case <-l.done:
			return ErrStopped
		}
	}
}

// Run processes envelopes until ctx is cancelled, then returns nil.
func (l *Loop) Run(ctx context.Context) error {
	defer l.doneOnce.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-l.inbox:
			l.process(env)
		}
	}
}

// process validates and logs one envelope. It never panics.
func (l *Loop) process(env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			l.metrics.MessageRejected("panic")
			l.logger.Error("Error processing message", "topic", env.Topic, "panic", r)
		}
	}()

	msg, err := payload.Parse(env.Payload)
	if err != nil {
		l.reject(env, err)
		return
	}

	l.metrics.MessageReceived()
	l.logger.Info("New message received",
		"topic", env.Topic,
		"message_id", msg.MessageID,
		"message_timestamp", msg.Timestamp,
		"received_at", env.ReceivedAt.Format(payload.TimestampLayout),
		"value", msg.Value,
		"status", string(msg.Status),
	)

	if msg.Status == payload.StatusRed {
		l.metrics.Alert()
		l.logger.Warn("ALERT: Red status detected!",
			"alert", true,
			"topic", env.Topic,
			"message_id", msg.MessageID,
			"value", msg.Value,
		)
	}
}

// reject logs a payload failure with the attribute that explains it.
func (l *Loop) reject(env Envelope, err error) {
	var perr *payload.Error
	field := ""
	if errors.As(err, &perr) {
		field = perr.Field
	}

	switch {
	case errors.Is(err, payload.ErrDecode):
		l.metrics.MessageRejected("decode")
		l.logger.Error("Error decoding message", "topic", env.Topic, "error", err)
		l.logger.Debug("Raw message", "payload", env.Payload)

	case errors.Is(err, payload.ErrMissingField):
		l.metrics.MessageRejected("missing_field")
		l.logger.Error("Missing expected key in message", "topic", env.Topic, "key", field)
		l.logger.Debug("Message content", "payload", string(env.Payload))

	case errors.Is(err, payload.ErrParse) && field == "":
		l.metrics.MessageRejected("parse")
		l.logger.Error("Error decoding JSON message", "topic", env.Topic, "error", err)
		l.logger.Debug("Raw message", "payload", string(env.Payload))

	default:
		l.metrics.MessageRejected("invalid_field")
		l.logger.Error("Error processing message", "topic", env.Topic, "key", field, "error", err)
		l.logger.Debug("Raw message", "payload", string(env.Payload))
	}
}
