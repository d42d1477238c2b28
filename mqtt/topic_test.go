package mqtt

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimTopic(t *testing.T) {
	for _, tt := range []struct {
		topic string
		want  string
	}{
		{topic: "", want: ""},
		{topic: "/", want: ""},
		{topic: "/a", want: "a"},
		{topic: "a/", want: "a"},
		{topic: "/a/", want: "a"},
		{topic: "/a/b", want: "a/b"},
		{topic: "a/b/", want: "a/b"},
		{topic: "a/b", want: "a/b"},
	} {
		t.Run(tt.topic, func(t *testing.T) {
			require.Equal(t, tt.want, TrimTopic(tt.topic))
		})
	}
}

func TestJoinTopic(t *testing.T) {
	for i, tt := range []struct {
		parts []string
		want  string
	}{
		{parts: nil, want: ""},
		{parts: []string{""}, want: ""},
		{parts: []string{"", ""}, want: ""},
		{parts: []string{"", "a"}, want: "a"},
		{parts: []string{"a", ""}, want: "a"},
		{parts: []string{"", "a", "", "b"}, want: "a/b"},
		{parts: []string{"a", "/", "b"}, want: "a/b"},
		{parts: []string{"/a/", "b"}, want: "a/b"},
		{parts: []string{"/a/b/", "c"}, want: "a/b/c"},
		{parts: []string{"airqtt", "abc123", "co2", "state"}, want: "airqtt/abc123/co2/state"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			require.Equal(t, tt.want, JoinTopic(tt.parts...))
		})
	}
}

func TestTopicLevel(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want string
	}{
		{in: "pm2_5", want: "pm2_5"},
		{in: "a/b", want: "a_b"},
		{in: "living room", want: "living_room"},
		{in: "+#", want: "__"},
		{in: "  x ", want: "x"},
	} {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, TopicLevel(tt.in))
		})
	}
}

func TestTopics(t *testing.T) {
	require.Empty(t, Topics())
	require.Equal(t, []string{"homeassistant/status", "airqtt/bridge/availability"}, Topics(
		Subscription{Topic: "homeassistant/status"},
		Subscription{Topic: "airqtt/bridge/availability", Options: ReadOptions{QoS: QOSAtLeastOnce}},
	))
}
