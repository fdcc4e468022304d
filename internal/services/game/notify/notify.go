// Package notify tells connected clients that a session changed.
//
// A notification carries only the session ID and the revision it reached;
// clients refetch the session to learn what changed. Delivery is best
// effort and never affects the outcome of the command that caused it.
package notify

import (
	"context"
	"errors"
)

// Publisher announces a committed session change.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, revision int64) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, sessionID string, revision int64) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, sessionID string, revision int64) error {
	return f(ctx, sessionID, revision)
}

// Nop discards every notification.
var Nop Publisher = PublisherFunc(func(context.Context, string, int64) error { return nil })

// Multi fans a notification out to every publisher, joining their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, sessionID string, revision int64) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, sessionID, revision); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
