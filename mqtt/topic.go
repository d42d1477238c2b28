package mqtt

import "strings"

const TopicSeparator = "/"

// TrimTopic trims TopicSeparator from the start and end of the specified topic.
func TrimTopic(topic string) string {
	return strings.Trim(topic, TopicSeparator)
}

// JoinTopic joins component parts with TopicSeparator. Each part is trimmed first and parts that are empty after
// trimming are skipped.
func JoinTopic(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = TrimTopic(part); part != "" {
			kept = append(kept, part)
		}
	}

	return strings.Join(kept, TopicSeparator)
}

// topicReplacer swaps characters that are not allowed (or are wildcards) in a single MQTT topic level.
var topicReplacer = strings.NewReplacer(
	TopicSeparator, "_",
	"+", "_",
	"#", "_",
	" ", "_",
)

// TopicLevel sanitizes s for use as exactly one level of an MQTT topic.
func TopicLevel(s string) string {
	return topicReplacer.Replace(strings.TrimSpace(s))
}
