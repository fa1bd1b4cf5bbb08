package mqtt

import (
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// =============================================================================
// Fake paho client and tokens
// =============================================================================

// fakeToken is a pahomqtt.Token completed by the test.
type fakeToken struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFakeToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

// doneToken returns a token that is already complete with err.
func doneToken(err error) *fakeToken {
	tok := newFakeToken()
	tok.complete(err)
	return tok
}

func (f *fakeToken) complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

func (f *fakeToken) Wait() bool { <-f.done; return true }

func (f *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (f *fakeToken) Done() <-chan struct{} { return f.done }

func (f *fakeToken) Error() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// fakePaho records calls and hands out tokens chosen by the test.
type fakePaho struct {
	mu sync.Mutex

	connected      bool
	connectToken   *fakeToken
	publishToken   *fakeToken
	subscribeToken *fakeToken

	published   []string
	subscribed  []string
	handlers    map[string]pahomqtt.MessageHandler
	disconnects int
}

func newFakePaho() *fakePaho {
	return &fakePaho{
		connected:      true,
		connectToken:   doneToken(nil),
		publishToken:   doneToken(nil),
		subscribeToken: doneToken(nil),
		handlers:       make(map[string]pahomqtt.MessageHandler),
	}
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) IsConnectionOpen() bool { return f.IsConnected() }

func (f *fakePaho) Connect() pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectToken
}

func (f *fakePaho) Disconnect(_ uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnects++
}

func (f *fakePaho) Publish(topic string, _ byte, _ bool, _ interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, topic)
	return f.publishToken
}

func (f *fakePaho) Subscribe(topic string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topic)
	f.handlers[topic] = cb
	return f.subscribeToken
}

func (f *fakePaho) SubscribeMultiple(_ map[string]byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	return doneToken(nil)
}

func (f *fakePaho) Unsubscribe(_ ...string) pahomqtt.Token { return doneToken(nil) }

func (f *fakePaho) AddRoute(_ string, _ pahomqtt.MessageHandler) {}

func (f *fakePaho) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func (f *fakePaho) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// =============================================================================
// Recording observer
// =============================================================================

type pubAck struct {
	ref uint64
	err error
}

type disconnect struct {
	code byte
	err  error
}

// recorder is an Observer that records every callback.
type recorder struct {
	mu          sync.Mutex
	connecting  int
	connected   []byte
	disconnects []disconnect

	pubAcks chan pubAck
	subAcks chan []SubscribeResult
}

func newRecorder() *recorder {
	return &recorder{
		pubAcks: make(chan pubAck, 16),
		subAcks: make(chan []SubscribeResult, 16),
	}
}

func (r *recorder) OnConnecting() {
	r.mu.Lock()
	r.connecting++
	r.mu.Unlock()
}

func (r *recorder) OnConnected(code byte) {
	r.mu.Lock()
	r.connected = append(r.connected, code)
	r.mu.Unlock()
}

func (r *recorder) OnDisconnected(code byte, err error) {
	r.mu.Lock()
	r.disconnects = append(r.disconnects, disconnect{code: code, err: err})
	r.mu.Unlock()
}

func (r *recorder) OnPublishAck(ref uint64, err error) {
	r.pubAcks <- pubAck{ref: ref, err: err}
}

func (r *recorder) OnSubscribeAck(results []SubscribeResult) {
	r.subAcks <- results
}

func (r *recorder) connectedCodes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.connected...)
}

func (r *recorder) disconnected() []disconnect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]disconnect(nil), r.disconnects...)
}

// newFakeClient returns a connected Client backed by a fakePaho.
func newFakeClient(obs Observer) (*Client, *fakePaho) {
	opts := Options{
		Host:     "broker.test",
		Port:     8883,
		ClientID: "kobayashi-test-0000",
	}.withDefaults()
	opts.AckTimeout = 200 * time.Millisecond

	paho := newFakePaho()
	c := newClient(opts, obs)
	c.client = paho
	c.setConnected(true)
	return c, paho
}
