package session

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/reaction"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	"github.com/louisbranch/smartlab/internal/testkit/oraclefake"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestNewRegistryValidation(t *testing.T) {
	if _, err := NewRegistry(Config{}, time.Hour); err == nil {
		t.Fatal("expected error without oracle")
	}
	if _, err := NewRegistry(Config{Oracle: &oraclefake.Oracle{}}, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(Config{Oracle: &oraclefake.Oracle{}}, time.Hour)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	first, created, err := reg.Resolve("")
	if err != nil || !created {
		t.Fatalf("Resolve(empty) = %v, %v", created, err)
	}
	again, created, err := reg.Resolve(first.ID())
	if err != nil || created || again != first {
		t.Fatalf("Resolve(existing) returned a different session")
	}
	other, created, _ := reg.Resolve("unknown-id")
	if !created || other.ID() == first.ID() {
		t.Fatal("Resolve(unknown) should create a new session")
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
}

func TestRegistrySweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	fake := &oraclefake.Oracle{
		Result:  oraclefake.NeutralizationResult(),
		Gate:    make(chan struct{}),
		Started: make(chan reaction.Request, 1),
	}
	reg, err := NewRegistry(Config{Oracle: fake, Clock: clock.Now}, time.Hour)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	idle, _ := reg.Create()
	busy, _ := reg.Create()
	mustAdd(t, busy, "naoh", "h2so4")
	if _, err := busy.Launch(context.Background()); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	<-fake.Started

	clock.now = clock.now.Add(30 * time.Minute)
	if n := reg.Sweep(clock.now); n != 0 {
		t.Fatalf("early sweep removed %d", n)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	if n := reg.Sweep(clock.now); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if _, ok := reg.Get(idle.ID()); ok {
		t.Fatal("idle session should be gone")
	}
	if _, ok := reg.Get(busy.ID()); !ok {
		t.Fatal("in-flight session should be kept")
	}

	fake.Gate <- struct{}{}
	waitForPhase(t, busy, PhaseResolved)
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	reg, _ := NewRegistry(Config{Oracle: &oraclefake.Oracle{}}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRegistryCapsLiveSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	reg, err := NewRegistry(Config{Oracle: &oraclefake.Oracle{}, Clock: clock.Now}, time.Hour, WithMaxSessions(2))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := reg.Create(); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	_, _, err = reg.Resolve("")
	if apperrors.CodeOf(err) != apperrors.CodeSessionLimitReached {
		t.Fatalf("Resolve at limit = %v, want session limit", err)
	}
	if got := reg.Len(); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	if _, err := reg.Create(); err != nil {
		t.Fatalf("Create after expiry: %v", err)
	}
	if got := reg.Len(); got != 1 {
		t.Fatalf("sessions after expiry = %d, want 1", got)
	}
}

func TestWithMaxSessionsIgnoresNonPositive(t *testing.T) {
	reg, err := NewRegistry(Config{Oracle: &oraclefake.Oracle{}}, time.Hour, WithMaxSessions(0))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if reg.max != DefaultMaxSessions {
		t.Fatalf("max = %d, want %d", reg.max, DefaultMaxSessions)
	}
}
