package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopic is the signal topic used when none is configured.
const DefaultTopic = "kobayashi/signals/test"

// maxTopicLength is the MQTT limit for a UTF-8 encoded topic.
const maxTopicLength = 65535

// ValidateTopicName checks a topic used for publishing.
//
// Topic names must be non-empty, at most 65535 bytes, and must not contain
// wildcards or NUL characters.
func ValidateTopicName(topic string) error {
	if err := validateCommon(topic); err != nil {
		return err
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards are not allowed in topic name %q", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateTopicFilter checks a topic filter used for subscribing.
//
// "+" must occupy a whole level; "#" must occupy the whole last level.
//
// Example:
//
//	ValidateTopicFilter("kobayashi/+/test") // nil
//	ValidateTopicFilter("kobayashi/sig#")   // ErrInvalidTopic
func ValidateTopicFilter(filter string) error {
	if err := validateCommon(filter); err != nil {
		return err
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("%w: '#' must be the whole last level in %q", ErrInvalidTopic, filter)
		}
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: '+' must be a whole level in %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}

func validateCommon(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: topic exceeds %d bytes", ErrInvalidTopic, maxTopicLength)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("%w: topic contains NUL", ErrInvalidTopic)
	}
	return nil
}
