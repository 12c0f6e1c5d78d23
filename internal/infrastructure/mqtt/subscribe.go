package mqtt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subackFailure is the SUBACK return code for a rejected topic.
const subackFailure = 0x80

// SubscribeMultiple subscribes to every topic in filters with one SUBSCRIBE
// packet and waits for the SUBACK.
//
// The handler also replaces the one set with SetHandler for messages the
// broker replays before the next subscription.
//
// Parameters:
//   - filters: topic to requested QoS
//   - handler: Callback function invoked for each message
//
// Returns:
//   - error: nil on success; ErrSubscribeFailed (wrapped) if the request
//     fails or the broker rejects any topic
func (c *Client) SubscribeMultiple(filters map[string]byte, handler MessageHandler) error {
	// Validate inputs
	if err := validateFilters(filters); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	client, err := c.current()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	token := client.SubscribeMultiple(filters, c.wrapHandler(handler))
	if err := waitToken(context.Background(), token, defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	if rejected := rejectedTopics(token); len(rejected) > 0 {
		return fmt.Errorf("%w: broker rejected %s", ErrSubscribeFailed, strings.Join(rejected, ", "))
	}

	return nil
}

// rejectedTopics lists topics the SUBACK refused, in sorted order.
func rejectedTopics(token pahomqtt.Token) []string {
	st, ok := token.(*pahomqtt.SubscribeToken)
	if !ok {
		return nil
	}

	var rejected []string
	for topic, code := range st.Result() {
		if code == subackFailure {
			rejected = append(rejected, topic)
		}
	}
	sort.Strings(rejected)
	return rejected
}
