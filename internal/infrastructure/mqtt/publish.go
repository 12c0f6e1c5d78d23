package mqtt

import (
	"context"
	"fmt"
)

// maxRemainingLength is the largest MQTT 3.1.1 packet body (256 MiB - 1).
const maxRemainingLength = 268435455

// maxPayloadSize returns the largest payload a PUBLISH to topic can carry:
// the packet body also holds the length-prefixed topic and, above QoS 0,
// a packet identifier.
func maxPayloadSize(topic string, qos byte) int {
	overhead := 2 + len(topic)
	if qos > 0 {
		overhead += 2
	}
	return maxRemainingLength - overhead
}

// Publish sends a message to the specified MQTT topic and waits for the
// broker's acknowledgment (PUBCOMP for QoS 2).
//
// Parameters:
//   - topic: The topic to publish to (e.g., "dev/light/report")
//   - payload: The message payload, up to the protocol limit
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	err := client.Publish("dev/light/report", []byte("ok"), 2, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if limit := maxPayloadSize(topic, qos); len(payload) > limit {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), limit)
	}

	client, err := c.current()
	if err != nil {
		return err
	}

	token := client.Publish(topic, qos, retained, payload)
	if err := waitToken(context.Background(), token, defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
