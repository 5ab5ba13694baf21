package reliability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrNotTracked is returned for operations on unknown deliveries
var ErrNotTracked = errors.New("delivery not tracked")

// DeliveryState represents the state of a delivery
type DeliveryState int

const (
	StatePending   DeliveryState = iota // Waiting for the first or next attempt
	StateSending                        // Attempt in progress
	StateDelivered                      // Accepted by the receiver
	StateFailed                         // Gave up
)

func (s DeliveryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSending:
		return "sending"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Delivery is a snapshot of one tracked delivery
type Delivery struct {
	ID            string
	State         DeliveryState
	SubmittedAt   time.Time
	LastAttemptAt time.Time
	Attempts      int
	Errors        []string
}

// Tracker tracks deliveries and recently processed content. It is safe for
// concurrent use.
type Tracker struct {
	mu         sync.RWMutex
	deliveries map[string]*Delivery

	processed       map[string]time.Time
	duplicateWindow time.Duration

	now func() time.Time
}

// NewTracker creates a tracker that remembers processed content for
// duplicateWindow
func NewTracker(duplicateWindow time.Duration) *Tracker {
	return &Tracker{
		deliveries:      make(map[string]*Delivery),
		processed:       make(map[string]time.Time),
		duplicateWindow: duplicateWindow,
		now:             time.Now,
	}
}

// Begin starts tracking a delivery. A delivery with the same ID is reset.
func (t *Tracker) Begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deliveries[id] = &Delivery{
		ID:          id,
		State:       StatePending,
		SubmittedAt: t.now(),
	}
}

// MarkSending records the start of an attempt
func (t *Tracker) MarkSending(id string) error {
	return t.update(id, func(d *Delivery) {
		d.State = StateSending
		d.LastAttemptAt = t.now()
		d.Attempts++
	})
}

// MarkDelivered records a successful attempt
func (t *Tracker) MarkDelivered(id string) error {
	return t.update(id, func(d *Delivery) {
		d.State = StateDelivered
	})
}

// RecordError records a failed attempt. final marks the delivery as failed,
// otherwise it returns to pending.
func (t *Tracker) RecordError(id string, err error, final bool) error {
	return t.update(id, func(d *Delivery) {
		d.Errors = append(d.Errors, err.Error())
		if final {
			d.State = StateFailed
		} else {
			d.State = StatePending
		}
	})
}

func (t *Tracker) update(id string, fn func(*Delivery)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, exists := t.deliveries[id]
	if !exists {
		return ErrNotTracked
	}
	fn(d)
	return nil
}

// Get returns a copy of a tracked delivery
func (t *Tracker) Get(id string) (Delivery, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	d, exists := t.deliveries[id]
	if !exists {
		return Delivery{}, false
	}
	snapshot := *d
	snapshot.Errors = append([]string(nil), d.Errors...)
	return snapshot, true
}

// Remove stops tracking a delivery
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.deliveries, id)
}

// IsDuplicate reports whether content with this hash was processed within
// the duplicate window
func (t *Tracker) IsDuplicate(hash string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	processedAt, exists := t.processed[hash]
	if !exists {
		return false
	}
	return t.now().Sub(processedAt) < t.duplicateWindow
}

// MarkProcessed remembers content as processed
func (t *Tracker) MarkProcessed(hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed[hash] = t.now()
}

// Prune forgets content processed before the duplicate window and
// finished deliveries older than it
func (t *Tracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for hash, processedAt := range t.processed {
		if now.Sub(processedAt) >= t.duplicateWindow {
			delete(t.processed, hash)
		}
	}
	for id, d := range t.deliveries {
		done := d.State == StateDelivered || d.State == StateFailed
		if done && now.Sub(d.SubmittedAt) >= t.duplicateWindow {
			delete(t.deliveries, id)
		}
	}
}

// RunCleanup prunes the tracker every interval until ctx is done
func (t *Tracker) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Prune()
		}
	}
}

// ComputeContentHash computes a hash of file content for duplicate detection
func ComputeContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
