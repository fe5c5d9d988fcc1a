package supervisor

import (
	"context"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
)

// Subscriber is a live observer of one run's event stream. Send is awaited
// by the delivery path, so a slow subscriber exerts backpressure on the
// run it observes. A Send error causes the subscriber to be pruned from
// the run, non-fatally for the run and for other subscribers.
type Subscriber interface {
	Send(ctx context.Context, event engine.Event) error
}

// SubscriberFunc adapts a function to a Subscriber.
type SubscriberFunc func(ctx context.Context, event engine.Event) error

func (f SubscriberFunc) Send(ctx context.Context, event engine.Event) error {
	return f(ctx, event)
}
