package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/storydeck/internal/services/game/storage"
)

// Relay defaults balance notification latency against store churn.
const (
	DefaultRelayInterval = 500 * time.Millisecond
	DefaultRelayBatch    = 64
)

// Outbox records notifications in durable storage so a Relay can deliver
// them after the request that caused them has returned.
type Outbox struct {
	Store storage.OutboxStore
	Now   func() time.Time
}

var _ Publisher = Outbox{}

// Publish implements Publisher.
func (o Outbox) Publish(ctx context.Context, sessionID string, revision int64) error {
	if o.Store == nil {
		return fmt.Errorf("outbox store is not configured")
	}
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	if err := o.Store.EnqueueSessionChange(ctx, sessionID, revision, now().UTC()); err != nil {
		return fmt.Errorf("enqueue session change: %w", err)
	}
	return nil
}

// Relay drains the outbox into a target publisher. Changes to the same
// session inside one batch collapse into a single notification at the
// highest revision.
type Relay struct {
	Store    storage.OutboxStore
	Target   Publisher
	Interval time.Duration
	Batch    int
	Now      func() time.Time
}

// Run flushes on every tick until ctx ends.
func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRelayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				log.Printf("notify: relay flush: %v", err)
			}
		}
	}
}

// Flush delivers one batch and returns how many sessions were notified.
// Rows for a session whose delivery failed stay pending.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	if r.Store == nil || r.Target == nil {
		return 0, fmt.Errorf("relay is not configured")
	}
	batch := r.Batch
	if batch <= 0 {
		batch = DefaultRelayBatch
	}
	pending, err := r.Store.PendingSessionChanges(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("list pending session changes: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	type coalesced struct {
		revision int64
		ids      []int64
	}
	var order []string
	bySession := map[string]*coalesced{}
	for _, change := range pending {
		entry, ok := bySession[change.SessionID]
		if !ok {
			entry = &coalesced{}
			bySession[change.SessionID] = entry
			order = append(order, change.SessionID)
		}
		entry.revision = max(entry.revision, change.Revision)
		entry.ids = append(entry.ids, change.ID)
	}

	var delivered []int64
	notified := 0
	for _, sessionID := range order {
		entry := bySession[sessionID]
		if err := r.Target.Publish(ctx, sessionID, entry.revision); err != nil {
			log.Printf("notify: publish session=%s revision=%d: %v", sessionID, entry.revision, err)
			continue
		}
		delivered = append(delivered, entry.ids...)
		notified++
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if err := r.Store.MarkSessionChangesDelivered(ctx, delivered, now().UTC()); err != nil {
		return notified, fmt.Errorf("mark session changes delivered: %w", err)
	}
	return notified, nil
}
