package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kobayashi"

// Recorder holds the client metrics and the registry serving them.
type Recorder struct {
	registry *prometheus.Registry

	connectionState    *prometheus.GaugeVec
	connectionAttempts *prometheus.CounterVec
	disconnects        *prometheus.CounterVec

	messagesPublished *prometheus.CounterVec
	publishAcks       *prometheus.CounterVec

	subscribeResults *prometheus.CounterVec

	messagesReceived prometheus.Counter
	messagesRejected *prometheus.CounterVec
	alerts           prometheus.Counter
}

// New creates a Recorder for the given role with Go runtime and process collectors.
func New(role string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"role": role}
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "connection_state",
			Help:        "1 for the current broker connection state, 0 otherwise.",
			ConstLabels: constLabels,
		}, []string{"state"}),

		connectionAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "connection_attempts_total",
			Help:        "Broker connection attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"result"}),

		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "disconnects_total",
			Help:        "Session ends, graceful or unexpected.",
			ConstLabels: constLabels,
		}, []string{"kind"}),

		messagesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_published_total",
			Help:        "Publish calls by local enqueue result.",
			ConstLabels: constLabels,
		}, []string{"result"}),

		publishAcks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "publish_acks_total",
			Help:        "Delivery acknowledgments by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),

		subscribeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "subscribe_results_total",
			Help:        "Per-topic subscribe results by outcome.",
			ConstLabels: constLabels,
		}, []string{"result"}),

		messagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_received_total",
			Help:        "Inbound messages that passed validation.",
			ConstLabels: constLabels,
		}),

		messagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_rejected_total",
			Help:        "Inbound messages discarded, by payload error kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),

		alerts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "alerts_total",
			Help:        "Inbound messages with red status.",
			ConstLabels: constLabels,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SetConnectionState marks state as the current connection state.
func (r *Recorder) SetConnectionState(state string) {
	if r == nil {
		return
	}
	r.connectionState.Reset()
	r.connectionState.WithLabelValues(state).Set(1)
}

// ConnectionAttempt counts a connection outcome.
func (r *Recorder) ConnectionAttempt(ok bool) {
	if r == nil {
		return
	}
	r.connectionAttempts.WithLabelValues(result(ok)).Inc()
}

// Disconnected counts the end of a session.
func (r *Recorder) Disconnected(graceful bool) {
	if r == nil {
		return
	}
	kind := "unexpected"
	if graceful {
		kind = "graceful"
	}
	r.disconnects.WithLabelValues(kind).Inc()
}

// MessagePublished counts a publish call by its local result.
func (r *Recorder) MessagePublished(ok bool) {
	if r == nil {
		return
	}
	r.messagesPublished.WithLabelValues(result(ok)).Inc()
}

// PublishAck counts a delivery acknowledgment.
func (r *Recorder) PublishAck(ok bool) {
	if r == nil {
		return
	}
	r.publishAcks.WithLabelValues(result(ok)).Inc()
}

// SubscribeResult counts one per-topic subscribe result.
func (r *Recorder) SubscribeResult(ok bool) {
	if r == nil {
		return
	}
	r.subscribeResults.WithLabelValues(result(ok)).Inc()
}

// MessageReceived counts a valid inbound message.
func (r *Recorder) MessageReceived() {
	if r == nil {
		return
	}
	r.messagesReceived.Inc()
}

// MessageRejected counts a discarded inbound message.
func (r *Recorder) MessageRejected(kind string) {
	if r == nil {
		return
	}
	r.messagesRejected.WithLabelValues(kind).Inc()
}

// Alert counts a red status message.
func (r *Recorder) Alert() {
	if r == nil {
		return
	}
	r.alerts.Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
