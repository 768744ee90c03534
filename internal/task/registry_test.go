package task

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTask(id string) Task {
	return Task{
		ID:             id,
		Target:         "github",
		Action:         "delete_repo",
		Args:           json.RawMessage(`{"repo":"r1"}`),
		ApprovalHandle: "oob-123",
		Status:         StatusPending,
		CreatedAt:      time.Now(),
	}
}

func TestRegistry_CreateGetClaim(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Create(newTask("t1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.Get("t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Action != "delete_repo" {
		t.Errorf("Action: got %q, want %q", got.Action, "delete_repo")
	}

	claimed, err := r.Claim("t1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.ID != "t1" {
		t.Errorf("claimed ID: got %q, want %q", claimed.ID, "t1")
	}

	if _, err := r.Get("t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Claim: got %v, want ErrNotFound", err)
	}
}

func TestRegistry_DuplicateID(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Create(newTask("t1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(newTask("t1")); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate: got %v, want ErrDuplicateID", err)
	}
}

func TestRegistry_EmptyID(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Create(Task{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("empty id: got %v, want ErrEmptyID", err)
	}
}

func TestRegistry_ClaimIsExclusive(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Create(newTask("t1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const claimers = 16
	var wg sync.WaitGroup
	var wins sync.Map
	won := make(chan struct{}, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Claim("t1"); err == nil {
				wins.Store(i, true)
				won <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(won)

	count := 0
	for range won {
		count++
	}
	if count != 1 {
		t.Errorf("winning claimers: got %d, want 1", count)
	}
}

func TestRegistry_MarkStatusForwardOnly(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Create(newTask("t1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.MarkStatus("t1", StatusApproved); err != nil {
		t.Fatalf("pending->approved: %v", err)
	}
	if err := r.MarkStatus("t1", StatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approved->pending: got %v, want ErrInvalidTransition", err)
	}
	if err := r.MarkStatus("t1", StatusExecuted); err != nil {
		t.Fatalf("approved->executed: %v", err)
	}
	if err := r.MarkStatus("t1", StatusFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("executed->failed: got %v, want ErrInvalidTransition", err)
	}
}

func TestRegistry_MarkStatusUnknownID(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.MarkStatus("nope", StatusApproved); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestRegistry_GetReturnsSnapshot(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Create(newTask("t1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap, err := r.Get("t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap.Status = StatusExecuted

	again, err := r.Get("t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Status != StatusPending {
		t.Errorf("registry mutated through snapshot: got %q, want %q", again.Status, StatusPending)
	}
}

func TestRegistry_ListOrderedByCreation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	base := time.Now()
	for i, id := range []string{"c", "a", "b"} {
		tk := newTask(id)
		tk.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := r.Create(tk); err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}

	got := r.List()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i].ID, want[i])
		}
	}
}

func TestNewID_Unique(t *testing.T) {
	t.Parallel()

	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID(now)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusDenied, StatusTimedOut, StatusExecuted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusApproved} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}
