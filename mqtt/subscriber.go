package mqtt

import (
	"context"
	"log/slog"
)

// Subscription is a topic filter and the options to subscribe with. It logs as a group of its topic and options.
type Subscription struct {
	Topic   string
	Options ReadOptions
}

func (s Subscription) String() string {
	return s.Topic
}

func (s Subscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("topic", s.Topic),
		slog.Any("options", s.Options),
	)
}

// Topics returns the topic of every subscription, for passing to Subscriber.Unsubscribe.
func Topics(subscriptions ...Subscription) []string {
	topics := make([]string, len(subscriptions))
	for i, s := range subscriptions {
		topics[i] = s.Topic
	}

	return topics
}

// Handler receives messages for a subscription. ServeMQTT runs on the client's receive path and must return quickly.
// Neither w nor message may be retained after it returns.
type Handler interface {
	ServeMQTT(w Writer, topic string, message []byte)
}

// HandlerFunc lets a plain function be used as a Handler.
type HandlerFunc func(Writer, string, []byte)

func (f HandlerFunc) ServeMQTT(w Writer, topic string, message []byte) {
	f(w, topic, message)
}

// Subscriber adds and removes subscriptions on a connection.
type Subscriber interface {
	// Subscribe routes messages for every topic in subscriptions to handler.
	Subscribe(ctx context.Context, handler Handler, subscriptions ...Subscription) error

	// Unsubscribe drops the subscriptions for topics.
	Unsubscribe(ctx context.Context, topics ...string) error
}
