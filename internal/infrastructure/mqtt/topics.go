package mqtt

import (
	"fmt"
	"strings"
)

// Last will settings.
const (
	WillTopic   = "clients/mqtt-launcher"
	WillPayload = "Adios!"
	WillQoS     = 0
)

// validateFilters checks a SubscribeMultiple request before it goes to the broker.
func validateFilters(filters map[string]byte) error {
	if len(filters) == 0 {
		return fmt.Errorf("%w: no topics", ErrSubscribeFailed)
	}
	for topic, qos := range filters {
		if topic == "" {
			return ErrInvalidTopic
		}
		if qos > maxQoS {
			return fmt.Errorf("%w: %q", ErrInvalidQoS, topic)
		}
	}
	return nil
}

// validatePublishTopic rejects topics a PUBLISH may not carry.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards are not allowed in %q", ErrInvalidTopic, topic)
	}
	return nil
}
