// Package mqtttest provides an in-memory mqtt.Writer for tests.
package mqtttest

import (
	"context"
	"sync"

	"github.com/nlowe/airqtt/mqtt"
)

// Message is a single publish captured by a Recorder.
type Message struct {
	Topic   string
	Options mqtt.WriteOptions
	Payload []byte
}

// Recorder is an mqtt.Writer that keeps every message it is asked to publish. Err, when set, is returned from every
// WriteTopic call after the message is recorded.
type Recorder struct {
	mu       sync.Mutex
	messages []Message

	Err error
}

var _ mqtt.Writer = &Recorder{}

func (r *Recorder) WriteTopic(_ context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, Message{Topic: topic, Options: options, Payload: append([]byte(nil), value...)})
	return r.Err
}

// Messages returns a copy of all recorded messages in publish order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Message(nil), r.messages...)
}

// Last returns the most recent payload written to topic.
func (r *Recorder) Last(topic string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Topic == topic {
			return string(r.messages[i].Payload), true
		}
	}

	return "", false
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = nil
}
