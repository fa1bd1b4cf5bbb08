package producer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/mqtt"
	"github.com/nerrad567/kobayashi-signals/internal/payload"
)

// ErrLoopAborted is returned by Run when the loop body panicked.
var ErrLoopAborted = errors.New("producer: loop aborted")

// Publisher hands messages to the transport. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, ref uint64) error
}

// Generator builds the message for a cycle. *payload.Generator satisfies it.
type Generator interface {
	Next(id int64) payload.Message
}

// Config holds the loop settings.
type Config struct {
	Topic    string
	Interval time.Duration

	// Generator builds the messages; nil uses a randomly seeded generator.
	Generator Generator
}

// Loop publishes one message per cycle until its context is cancelled.
type Loop struct {
	pub      Publisher
	topic    string
	interval time.Duration
	gen      Generator
	logger   *logging.Logger
	metrics  *metrics.Recorder

	// counter is only touched by the goroutine running Run.
	counter int64
	sent    atomic.Int64
}

// New creates a producer loop. rec may be nil.
func New(cfg Config, pub Publisher, logger *logging.Logger, rec *metrics.Recorder) *Loop {
	var gen Generator = payload.NewGenerator(nil, nil)
	if cfg.Generator != nil {
		gen = cfg.Generator
	}
	return &Loop{
		pub:      pub,
		topic:    cfg.Topic,
		interval: cfg.Interval,
		gen:      gen,
		logger:   logger.With("component", "producer"),
		metrics:  rec,
	}
}

// Run publishes until ctx is cancelled and then returns nil.
//
// The sleep between cycles is interrupted by cancellation. A panic in the
// loop body is recovered and returned as ErrLoopAborted so the caller's
// shutdown still runs.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Producer loop aborted", "panic", r, "last_message_id", l.counter)
			err = fmt.Errorf("%w: %v", ErrLoopAborted, r)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		l.cycle()

		if !sleep(ctx, l.interval) {
			return nil
		}
	}
}

// Sent returns the ID of the last message handed to the transport, or 0.
func (l *Loop) Sent() int64 {
	return l.sent.Load()
}

func (l *Loop) cycle() {
	l.counter++
	msg := l.gen.Next(l.counter)

	if err := msg.Validate(); err != nil {
		l.metrics.MessagePublished(false)
		l.logger.Error("Failed to send message", "message_id", msg.MessageID, "error", err)
		return
	}

	data, err := msg.Encode()
	if err != nil {
		l.metrics.MessagePublished(false)
		l.logger.Error("Failed to send message", "message_id", msg.MessageID, "error", err)
		return
	}

	if err := l.pub.Publish(l.topic, data, mqtt.QoSAtLeastOnce, uint64(msg.MessageID)); err != nil {
		l.metrics.MessagePublished(false)
		l.logger.Error("Failed to send message", "message_id", msg.MessageID, "error", err)
		return
	}

	l.sent.Store(msg.MessageID)
	l.metrics.MessagePublished(true)
	l.logger.Info("Sent message", "message_id", msg.MessageID, "payload", string(data))
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
