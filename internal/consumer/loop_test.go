package consumer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/mqtt"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// feed runs a loop, pushes payloads through its handler in order and returns
// the captured log once every payload has been processed.
func feed(t *testing.T, payloads ...[]byte) string {
	t.Helper()

	buf := &syncBuffer{}
	logger := logging.NewWithWriter(buf, config.LoggingConfig{Level: "debug"}, "test", "test")
	loop := New(logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	handler := loop.Handler()
	for _, p := range payloads {
		require.NoError(t, handler(mqtt.DefaultTopic, p))
	}

	// A final marker proves everything before it was processed.
	require.NoError(t, handler(mqtt.DefaultTopic, []byte(`{"message_id":999,"timestamp":"t","value":1,"status":"green"}`)))
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("message_id=999"))
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	return buf.String()
}

func TestLoopValidMessage(t *testing.T) {
	out := feed(t, []byte(`{"message_id": 7, "timestamp": "2024-05-01 12:00:00", "value": 42, "status": "green"}`))

	assert.Contains(t, out, "New message received")
	assert.Contains(t, out, "message_id=7")
	assert.Contains(t, out, `message_timestamp="2024-05-01 12:00:00"`)
	assert.Contains(t, out, "received_at=")
	assert.Contains(t, out, "value=42")
	assert.Contains(t, out, "status=green")
	assert.NotContains(t, out, "ALERT")
}

func TestLoopGarbledPayloadContinues(t *testing.T) {
	out := feed(t,
		[]byte{0xff, 0xfe, 0x00, 0x9c},
		[]byte(`{"message_id": 1, "timest`),
		[]byte(`{"message_id": 2, "timestamp": "2024-05-01 12:00:00", "value": 3, "status": "yellow"}`),
	)

	assert.Contains(t, out, "Error decoding message")
	assert.Contains(t, out, "Error decoding JSON message")
	assert.Contains(t, out, "message_id=2", "loop must keep processing after bad payloads")
}

func TestLoopMissingStatus(t *testing.T) {
	out := feed(t, []byte(`{"message_id": 3, "timestamp": "2024-05-01 12:00:00", "value": 10}`))

	assert.Contains(t, out, "Missing expected key in message")
	assert.Contains(t, out, "key=status")
	assert.NotContains(t, out, "message_id=3 ")
}

func TestLoopWrongFieldType(t *testing.T) {
	out := feed(t, []byte(`{"message_id": "three", "timestamp": "2024-05-01 12:00:00", "value": 10, "status": "green"}`))

	assert.Contains(t, out, "Error processing message")
	assert.Contains(t, out, "key=message_id")
}

func TestLoopRedAlert(t *testing.T) {
	out := feed(t, []byte(`{"message_id": 5, "timestamp": "2024-05-01 12:00:00", "value": 99, "status": "red"}`))

	assert.Contains(t, out, "New message received")
	assert.Contains(t, out, "status=red")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="ALERT: Red status detected!"`)
	assert.Contains(t, out, "alert=true")
}

func TestLoopNotAnObject(t *testing.T) {
	out := feed(t, []byte(`[1,2,3]`), []byte(`null`), []byte(`"text"`))

	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("Error decoding JSON message")))
}

func TestHandlerAfterStop(t *testing.T) {
	loop := New(logging.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, loop.Run(ctx))

	handler := loop.Handler()
	for i := 0; i < inboxSize+1; i++ {
		err := handler(mqtt.DefaultTopic, []byte("{}"))
		if errors.Is(err, ErrStopped) {
			return
		}
	}
	t.Fatal("handler kept accepting envelopes after Run returned")
}

func TestHandlerCopiesPayload(t *testing.T) {
	loop := New(logging.Discard(), nil)
	handler := loop.Handler()

	data := []byte(`{"a":1}`)
	require.NoError(t, handler("t", data))
	data[0] = 'X'

	env := <-loop.inbox
	assert.Equal(t, `{"a":1}`, string(env.Payload))
	assert.Equal(t, "t", env.Topic)
	assert.False(t, env.ReceivedAt.IsZero())
}
