package session

import (
	"context"
	"sync"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/mqtt"
)

// mailboxSize bounds the number of events queued ahead of the actor.
const mailboxSize = 64

// Subscriber issues topic subscriptions. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Config describes the client the dispatcher serves.
type Config struct {
	Role   config.Role
	Broker string
	Topic  string

	// Handler receives inbound messages once subscribed (subscriber role only).
	Handler mqtt.MessageHandler
}

type eventKind int

const (
	evConnecting eventKind = iota
	evConnected
	evDisconnected
	evPublishAck
	evSubscribeAck
)

type event struct {
	kind    eventKind
	code    byte
	err     error
	ref     uint64
	results []mqtt.SubscribeResult
}

// Dispatcher reacts to session lifecycle events and holds the ConnectionState.
//
// It implements mqtt.Observer. The observer methods only enqueue; all
// reactions happen on the goroutine running Run.
type Dispatcher struct {
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.Recorder

	subscriber Subscriber

	events  chan event
	queries chan chan State
	done    chan struct{}
	runOnce sync.Once

	// state is owned by Run; read by others only after done is closed.
	state State
}

var _ mqtt.Observer = (*Dispatcher)(nil)

// New creates a Dispatcher in the Disconnected state. rec may be nil.
func New(cfg Config, logger *logging.Logger, rec *metrics.Recorder) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		logger:  logger.With("component", "dispatcher"),
		metrics: rec,
		events:  make(chan event, mailboxSize),
		queries: make(chan chan State),
		done:    make(chan struct{}),
		state:   StateDisconnected,
	}
}

// SetSubscriber sets the transport used to subscribe after connecting.
// It must be called before Run.
func (d *Dispatcher) SetSubscriber(s Subscriber) {
	d.subscriber = s
}

// Run processes events until ctx is cancelled. Events already queued when
// ctx is cancelled are still handled before Run returns.
//
// Run may only be called once; later calls return immediately.
func (d *Dispatcher) Run(ctx context.Context) error {
	started := false
	d.runOnce.Do(func() { started = true })
	if !started {
		return nil
	}
	defer close(d.done)

	d.metrics.SetConnectionState(d.state.String())

	for {
		select {
		case ev := <-d.events:
			d.handle(ev)
		case reply := <-d.queries:
			// Answer only after everything posted before the query.
			d.drain()
			reply <- d.state
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

// drain handles whatever is still queued.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.events:
			d.handle(ev)
		default:
			return
		}
	}
}

// State returns the current ConnectionState.
//
// While Run is active the actor answers, after handling every event posted
// before the call; after Run returned the final state is reported. State
// blocks until Run has started.
func (d *Dispatcher) State() State {
	reply := make(chan State, 1)
	select {
	case d.queries <- reply:
		return <-reply
	case <-d.done:
		return d.state
	}
}

// Done is closed when Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// OnConnecting implements mqtt.Observer.
func (d *Dispatcher) OnConnecting() {
	d.post(event{kind: evConnecting})
}

// OnConnected implements mqtt.Observer.
func (d *Dispatcher) OnConnected(code byte) {
	d.post(event{kind: evConnected, code: code})
}

// OnDisconnected implements mqtt.Observer.
func (d *Dispatcher) OnDisconnected(code byte, err error) {
	d.post(event{kind: evDisconnected, code: code, err: err})
}

// OnPublishAck implements mqtt.Observer.
func (d *Dispatcher) OnPublishAck(ref uint64, err error) {
	d.post(event{kind: evPublishAck, ref: ref, err: err})
}

// OnSubscribeAck implements mqtt.Observer.
func (d *Dispatcher) OnSubscribeAck(results []mqtt.SubscribeResult) {
	d.post(event{kind: evSubscribeAck, results: results})
}

// post enqueues ev; events posted after Run returned are dropped.
func (d *Dispatcher) post(ev event) {
	select {
	case d.events <- ev:
	case <-d.done:
	}
}

func (d *Dispatcher) handle(ev event) {
	switch ev.kind {
	case evConnecting:
		d.setState(StateConnecting)

	case evConnected:
		d.handleConnected(ev.code)

	case evDisconnected:
		if ev.code == mqtt.CodeSuccess {
			d.setState(StateDisconnected)
			d.metrics.Disconnected(true)
			d.logger.Info("Disconnected successfully")
			return
		}
		d.setState(StateFailed)
		d.metrics.Disconnected(false)
		d.logger.Warn("Unexpected disconnection", "code", ev.code, "error", ev.err)

	case evPublishAck:
		d.metrics.PublishAck(ev.err == nil)
		if ev.err != nil {
			d.logger.Warn("Message not acknowledged by broker", "message_id", ev.ref, "error", ev.err)
			return
		}
		d.logger.Debug("Message published successfully", "message_id", ev.ref)

	case evSubscribeAck:
		d.logger.Debug("Subscription acknowledged", "results", len(ev.results))
		for i, r := range ev.results {
			d.metrics.SubscribeResult(!r.Failed())
			if r.Failed() {
				d.logger.Warn("Failed to subscribe to topic",
					"index", i,
					"topic", r.Topic,
					"code", r.Code,
					"error", r.Err,
				)
			}
		}
	}
}

func (d *Dispatcher) handleConnected(code byte) {
	d.metrics.ConnectionAttempt(code == mqtt.CodeSuccess)

	if code != mqtt.CodeSuccess {
		d.setState(StateFailed)
		d.logger.Error("Failed to connect", "code", code)
		return
	}

	d.setState(StateConnected)
	d.logger.Info("Connected to MQTT broker", "broker", d.cfg.Broker, "tls", true)

	if d.cfg.Role != config.RoleSubscriber {
		return
	}
	if d.subscriber == nil || d.cfg.Handler == nil {
		d.logger.Error("Failed to subscribe to topic", "topic", d.cfg.Topic, "error", "no subscriber configured")
		return
	}

	if err := d.subscriber.Subscribe(d.cfg.Topic, mqtt.QoSAtLeastOnce, d.cfg.Handler); err != nil {
		d.logger.Error("Failed to subscribe to topic", "topic", d.cfg.Topic, "error", err)
		return
	}
	d.logger.Info("Subscribed to topic", "topic", d.cfg.Topic, "qos", mqtt.QoSAtLeastOnce)
}

func (d *Dispatcher) setState(s State) {
	if d.state != s {
		d.logger.Debug("connection state changed", "from", d.state.String(), "to", s.String())
	}
	d.state = s
	d.metrics.SetConnectionState(s.String())
}
