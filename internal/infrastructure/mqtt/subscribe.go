package mqtt

import (
	"fmt"
	"sort"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// SubackFailure is the SUBACK return code for a rejected subscription.
const SubackFailure byte = 0x80

// SubscribeResult is the broker's answer for one requested topic filter.
type SubscribeResult struct {
	Topic string

	// QoS is the requested maximum QoS.
	QoS byte

	// Code is the granted QoS, or SubackFailure.
	Code byte

	// Err is set when no SUBACK was received.
	Err error
}

// Failed reports whether the broker refused the subscription or never answered.
func (r SubscribeResult) Failed() bool {
	return r.Err != nil || r.Code == SubackFailure
}

// Subscribe registers a handler for messages on the specified topic filter.
//
// Topic filters can include MQTT wildcards:
//   - + (single-level): "kobayashi/+/test" matches any second level
//   - # (multi-level): "kobayashi/#" matches everything below kobayashi
//
// The request is sent without waiting for the SUBACK; the outcome is
// reported through Observer.OnSubscribeAck. The handler runs on a paho
// goroutine with panic recovery.
//
// Parameters:
//   - topic: The topic filter to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback function invoked for each message
//
// Returns:
//   - error: nil if the request was sent, or wrapped error describing the failure
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	// Validate inputs
	if err := ValidateTopicFilter(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))

	c.awaitAck(token, func(err error) {
		c.observer.OnSubscribeAck(subscribeResults(token, topic, qos, err))
	})

	return nil
}

// subscribeResults converts a completed subscribe token into per-topic results.
func subscribeResults(token pahomqtt.Token, topic string, qos byte, err error) []SubscribeResult {
	if err != nil {
		return []SubscribeResult{{
			Topic: topic,
			QoS:   qos,
			Code:  SubackFailure,
			Err:   fmt.Errorf("%w: %w", ErrSubscribeFailed, err),
		}}
	}

	st, ok := token.(*pahomqtt.SubscribeToken)
	if !ok || len(st.Result()) == 0 {
		return []SubscribeResult{{Topic: topic, QoS: qos, Code: qos}}
	}

	granted := st.Result()
	results := make([]SubscribeResult, 0, len(granted))
	for t, code := range granted {
		results = append(results, SubscribeResult{Topic: t, QoS: qos, Code: code})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Topic < results[j].Topic })

	return results
}
