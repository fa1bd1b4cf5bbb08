package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"
	"unicode/utf8"
)

// TimestampLayout is the wall-clock format carried in the timestamp field.
const TimestampLayout = "2006-01-02 15:04:05"

// Value bounds (inclusive).
const (
	MinValue = 0
	MaxValue = 100
)

// Status is the traffic-light classification of a signal.
type Status string

// Known statuses.
const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Statuses lists every status a generator may pick.
var Statuses = []Status{StatusGreen, StatusYellow, StatusRed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusGreen, StatusYellow, StatusRed:
		return true
	}
	return false
}

// Message is one signal sample.
//
// Field order matches the wire format.
type Message struct {
	MessageID int64  `json:"message_id"`
	Timestamp string `json:"timestamp"`
	Value     int    `json:"value"`
	Status    Status `json:"status"`
}

// RequiredFields lists the wire keys every inbound message must carry, in check order.
var RequiredFields = []string{"message_id", "timestamp", "value", "status"}

// Validate checks the value range and status.
func (m Message) Validate() error {
	if m.MessageID < 1 {
		return fmt.Errorf("message_id %d must be positive", m.MessageID)
	}
	if m.Value < MinValue || m.Value > MaxValue {
		return fmt.Errorf("value %d out of range [%d,%d]", m.Value, MinValue, MaxValue)
	}
	if !m.Status.Valid() {
		return fmt.Errorf("unknown status %q", m.Status)
	}
	return nil
}

// Encode serialises the message to its wire form.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Parse decodes raw bytes into a Message.
//
// Failures are reported as *Error:
//   - ErrDecode when raw is not valid UTF-8
//   - ErrParse when the text is not a JSON object
//   - ErrMissingField with Field set when a required key is absent
//   - ErrParse with Field set when a key has the wrong JSON type
func Parse(raw []byte) (Message, error) {
	var msg Message

	if !utf8.Valid(raw) {
		return msg, &Error{Kind: ErrDecode}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return msg, &Error{Kind: ErrParse, Err: err}
	}
	// "null" unmarshals into a nil map without error.
	if fields == nil {
		return msg, &Error{Kind: ErrParse, Err: fmt.Errorf("not a JSON object")}
	}

	for _, key := range RequiredFields {
		if _, ok := fields[key]; !ok {
			return msg, &Error{Kind: ErrMissingField, Field: key}
		}
	}

	targets := []struct {
		key string
		dst any
	}{
		{"message_id", &msg.MessageID},
		{"timestamp", &msg.Timestamp},
		{"value", &msg.Value},
		{"status", &msg.Status},
	}
	for _, t := range targets {
		dec := json.NewDecoder(bytes.NewReader(fields[t.key]))
		if err := dec.Decode(t.dst); err != nil {
			return Message{}, &Error{Kind: ErrParse, Field: t.key, Err: err}
		}
	}

	return msg, nil
}

// Generator builds sample messages with random value and status.
//
// A Generator is not safe for concurrent use; the producer loop owns one.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a Generator drawing from rng and reading the clock via now.
//
// A nil rng uses a randomly seeded PCG source; a nil now uses time.Now.
func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now}
}

// Next builds the message for the given ID.
func (g *Generator) Next(id int64) Message {
	return Message{
		MessageID: id,
		Timestamp: g.now().Format(TimestampLayout),
		Value:     g.rng.IntN(MaxValue-MinValue+1) + MinValue,
		Status:    Statuses[g.rng.IntN(len(Statuses))],
	}
}
