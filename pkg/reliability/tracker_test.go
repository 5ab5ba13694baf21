package reliability

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTracker(window time.Duration) (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	tracker := NewTracker(window)
	tracker.now = clock.Now
	return tracker, clock
}

func TestNewTracker(t *testing.T) {
	tracker := NewTracker(24 * time.Hour)
	if tracker.deliveries == nil {
		t.Error("expected deliveries map to be initialized")
	}
	if tracker.processed == nil {
		t.Error("expected processed map to be initialized")
	}
	if tracker.duplicateWindow != 24*time.Hour {
		t.Errorf("expected duplicateWindow 24h, got %v", tracker.duplicateWindow)
	}
}

func TestTracker_Lifecycle(t *testing.T) {
	tracker, clock := newTestTracker(time.Hour)

	tracker.Begin("payments-1")

	d, exists := tracker.Get("payments-1")
	if !exists {
		t.Fatal("expected delivery to exist")
	}
	if d.State != StatePending {
		t.Errorf("expected StatePending, got %s", d.State)
	}
	if !d.SubmittedAt.Equal(clock.now) {
		t.Errorf("unexpected SubmittedAt %v", d.SubmittedAt)
	}

	clock.now = clock.now.Add(time.Second)
	if err := tracker.MarkSending("payments-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracker.RecordError("payments-1", errors.New("timeout"), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ = tracker.Get("payments-1")
	if d.State != StatePending {
		t.Errorf("expected StatePending after retryable error, got %s", d.State)
	}
	if d.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", d.Attempts)
	}
	if !d.LastAttemptAt.Equal(clock.now) {
		t.Errorf("unexpected LastAttemptAt %v", d.LastAttemptAt)
	}

	if err := tracker.MarkSending("payments-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracker.MarkDelivered("payments-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ = tracker.Get("payments-1")
	if d.State != StateDelivered {
		t.Errorf("expected StateDelivered, got %s", d.State)
	}
	if d.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", d.Attempts)
	}
	if len(d.Errors) != 1 || d.Errors[0] != "timeout" {
		t.Errorf("unexpected errors %v", d.Errors)
	}
}

func TestTracker_RecordError_Final(t *testing.T) {
	tracker, _ := newTestTracker(time.Hour)
	tracker.Begin("d")

	if err := tracker.RecordError("d", errors.New("bad request"), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ := tracker.Get("d")
	if d.State != StateFailed {
		t.Errorf("expected StateFailed, got %s", d.State)
	}
}

func TestTracker_NotTracked(t *testing.T) {
	tracker, _ := newTestTracker(time.Hour)

	if err := tracker.MarkSending("missing"); !errors.Is(err, ErrNotTracked) {
		t.Errorf("expected ErrNotTracked, got %v", err)
	}
	if err := tracker.MarkDelivered("missing"); !errors.Is(err, ErrNotTracked) {
		t.Errorf("expected ErrNotTracked, got %v", err)
	}
	if err := tracker.RecordError("missing", errors.New("x"), true); !errors.Is(err, ErrNotTracked) {
		t.Errorf("expected ErrNotTracked, got %v", err)
	}
	if _, exists := tracker.Get("missing"); exists {
		t.Error("expected delivery to not exist")
	}
}

func TestTracker_GetReturnsCopy(t *testing.T) {
	tracker, _ := newTestTracker(time.Hour)
	tracker.Begin("d")
	_ = tracker.RecordError("d", errors.New("first"), false)

	d, _ := tracker.Get("d")
	d.Errors[0] = "changed"

	again, _ := tracker.Get("d")
	if again.Errors[0] != "first" {
		t.Error("expected tracker state to be unaffected by snapshot changes")
	}
}

func TestTracker_Remove(t *testing.T) {
	tracker, _ := newTestTracker(time.Hour)
	tracker.Begin("d")
	tracker.Remove("d")

	if _, exists := tracker.Get("d"); exists {
		t.Error("expected delivery to be removed")
	}
}

func TestTracker_IsDuplicate(t *testing.T) {
	tracker, clock := newTestTracker(time.Hour)
	hash := ComputeContentHash([]byte("file"))

	if tracker.IsDuplicate(hash) {
		t.Error("expected unseen content to not be a duplicate")
	}

	tracker.MarkProcessed(hash)
	if !tracker.IsDuplicate(hash) {
		t.Error("expected processed content to be a duplicate")
	}

	clock.now = clock.now.Add(time.Hour)
	if tracker.IsDuplicate(hash) {
		t.Error("expected content outside the window to not be a duplicate")
	}
}

func TestTracker_Prune(t *testing.T) {
	tracker, clock := newTestTracker(time.Hour)

	tracker.MarkProcessed("old")
	tracker.Begin("done")
	_ = tracker.MarkDelivered("done")
	tracker.Begin("pending")

	clock.now = clock.now.Add(90 * time.Minute)
	tracker.MarkProcessed("new")
	tracker.Prune()

	if _, exists := tracker.processed["old"]; exists {
		t.Error("expected old hash to be pruned")
	}
	if _, exists := tracker.processed["new"]; !exists {
		t.Error("expected new hash to be kept")
	}
	if _, exists := tracker.Get("done"); exists {
		t.Error("expected finished delivery to be pruned")
	}
	if _, exists := tracker.Get("pending"); !exists {
		t.Error("expected unfinished delivery to be kept")
	}
}

func TestComputeContentHash(t *testing.T) {
	hash1 := ComputeContentHash([]byte("test content"))
	hash2 := ComputeContentHash([]byte("test content"))
	hash3 := ComputeContentHash([]byte("different content"))

	if hash1 != hash2 {
		t.Error("expected same content to produce same hash")
	}
	if hash1 == hash3 {
		t.Error("expected different content to produce different hash")
	}
	if len(hash1) != 64 {
		t.Errorf("expected 64 char hex hash, got %d chars", len(hash1))
	}
}

func TestDeliveryState_String(t *testing.T) {
	tests := map[DeliveryState]string{
		StatePending:      "pending",
		StateSending:      "sending",
		StateDelivered:    "delivered",
		StateFailed:       "failed",
		DeliveryState(42): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
