package publisher

import (
	"context"
	"net/url"
	"strings"
)

// Publisher defines the interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

func CallCompletedTopic(prefix, callUUID string) string {
	return join(prefix, "call", segment(callUUID), "completed")
}

func SurveyRatedTopic(prefix, resultID string) string {
	return join(prefix, "survey", segment(resultID), "rated")
}

func join(prefix string, parts ...string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "handyvoice"
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// segment keeps topic levels intact: MQTT wildcards and separators are escaped.
func segment(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.ReplaceAll(url.PathEscape(s), "+", "%2B")
}
