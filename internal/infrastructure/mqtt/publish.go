package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish hands a message to the MQTT client for delivery.
//
// The return value is the local enqueue status only: nil means paho accepted
// the message. Delivery confirmation (PUBACK for QoS 1) arrives later through
// Observer.OnPublishAck with the same ref.
//
// Parameters:
//   - topic: The topic to publish to; wildcards are not allowed
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - ref: Caller reference echoed in OnPublishAck (the message ID)
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Returns:
//   - error: nil if queued, or wrapped error describing the local failure
func (c *Client) Publish(topic string, payload []byte, qos byte, ref uint64) error {
	// Validate inputs
	if err := ValidateTopicName(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, false, payload)

	// A token that is already complete with an error never left the client.
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
	default:
	}

	c.awaitAck(token, func(err error) {
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
		c.observer.OnPublishAck(ref, err)
	})

	return nil
}
