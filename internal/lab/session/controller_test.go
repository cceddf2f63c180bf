package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/journal"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	"github.com/louisbranch/smartlab/internal/testkit/oraclefake"
)

const genericFailure = "Failed to simulate reaction. Please try again."

type fakeJournal struct {
	mu      sync.Mutex
	records []journal.Record
	err     error
}

func (j *fakeJournal) PutSimulation(_ context.Context, rec journal.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return j.err
}

func (j *fakeJournal) all() []journal.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]journal.Record, len(j.records))
	copy(out, j.records)
	return out
}

func substance(t *testing.T, id string) catalog.Substance {
	t.Helper()
	s, ok := catalog.Default().Lookup(id)
	if !ok {
		t.Fatalf("substance %q missing", id)
	}
	return s
}

func newController(t *testing.T, oracle reaction.Oracle, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := Config{Oracle: oracle}
	if mutate != nil {
		mutate(&cfg)
	}
	ctrl, err := NewController("test-session", cfg)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl
}

func mustAdd(t *testing.T, c *Controller, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := c.Add(substance(t, id)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
}

func hasCode(err error, code apperrors.Code) bool {
	return errors.Is(err, apperrors.New(code, ""))
}

// waitForPhase polls until the controller reaches phase.
func waitForPhase(t *testing.T, c *Controller, phase Phase) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := c.State(); st.Phase == phase {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("phase = %s, want %s", c.State().Phase, phase)
	return State{}
}

func TestNewControllerRequiresOracle(t *testing.T) {
	if _, err := NewController("id", Config{}); err == nil {
		t.Fatal("expected error without oracle")
	}
}

func TestInitialState(t *testing.T) {
	c := newController(t, &oraclefake.Oracle{}, nil)
	st := c.State()
	if st.Phase != PhaseIdle || len(st.Selection) != 0 || st.Result != nil || st.Failure != nil {
		t.Fatalf("initial state = %+v", st)
	}
	if st.Options != reaction.DefaultOptions() {
		t.Fatalf("options = %+v", st.Options)
	}
}

func TestSimulateInvalidSelectionSize(t *testing.T) {
	for _, ids := range [][]string{nil, {"hcl"}} {
		fake := &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}
		c := newController(t, fake, nil)
		mustAdd(t, c, ids...)

		st, err := c.Simulate(context.Background())
		if err != nil {
			t.Fatalf("Simulate returned error: %v", err)
		}
		if st.Phase != PhaseFailed || st.Failure == nil || st.Failure.Code != apperrors.CodeSimulationInvalidSelectionSize {
			t.Fatalf("state = %+v", st)
		}
		if fake.Calls() != 0 {
			t.Fatalf("oracle calls = %d, want 0", fake.Calls())
		}
		if len(st.Selection) != len(ids) {
			t.Fatalf("selection changed: %+v", st.Selection)
		}
	}
}

func TestSimulateResolvesNeutralization(t *testing.T) {
	fake := &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}
	j := &fakeJournal{}
	c := newController(t, fake, func(cfg *Config) { cfg.Journal = j })
	mustAdd(t, c, "naoh", "h2so4")
	c.SetOptions(reaction.Options{Concentration: reaction.ConcentrationConcentrated, UseIndicator: true})

	st, err := c.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if st.Phase != PhaseResolved || st.Result == nil || st.Failure != nil {
		t.Fatalf("state = %+v", st)
	}
	if st.Result.Equation != "2NaOH + H2SO4 -> Na2SO4 + 2H2O" || st.Result.HexColor != "#336699" {
		t.Fatalf("result = %+v", st.Result)
	}

	if fake.Calls() != 1 {
		t.Fatalf("oracle calls = %d, want 1", fake.Calls())
	}
	req := fake.LastRequest()
	if req.Reactants[0].Name != "Sodium Hydroxide" || req.Reactants[0].Formula != "NaOH" || req.Reactants[0].Category != catalog.CategoryBase {
		t.Fatalf("first reactant = %+v", req.Reactants[0])
	}
	if req.Reactants[1].Formula != "H2SO4" || req.Reactants[1].Category != catalog.CategoryAcid {
		t.Fatalf("second reactant = %+v", req.Reactants[1])
	}
	if req.Options.Concentration != reaction.ConcentrationConcentrated || !req.Options.UseIndicator {
		t.Fatalf("options = %+v", req.Options)
	}

	records := j.all()
	if len(records) != 1 || records[0].Outcome != journal.OutcomeResolved || records[0].SubstanceIDs != [2]string{"naoh", "h2so4"} {
		t.Fatalf("journal = %+v", records)
	}
}

func TestSimulateNoReaction(t *testing.T) {
	c := newController(t, &oraclefake.Oracle{Result: oraclefake.NoReactionResult()}, nil)
	mustAdd(t, c, "nacl", "kcl")

	st, _ := c.Simulate(context.Background())
	if st.Phase != PhaseResolved || st.Result.Equation != reaction.NoReaction {
		t.Fatalf("state = %+v", st)
	}
	if st.Result.HasGas || st.Result.HasPrecipitate || st.Result.HexColor != "#AABBCC" {
		t.Fatalf("result flags = %+v", st.Result)
	}
}

func TestSimulateMalformedPayloadFails(t *testing.T) {
	oracle := reaction.OracleFunc(func(context.Context, reaction.Request) (reaction.Result, error) {
		return reaction.ParseResult([]byte("<html>oops</html>"))
	})
	j := &fakeJournal{}
	c := newController(t, oracle, func(cfg *Config) { cfg.Journal = j })
	mustAdd(t, c, "naoh", "h2so4")

	st, err := c.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if st.Phase != PhaseFailed || st.Result != nil {
		t.Fatalf("state = %+v", st)
	}
	if st.Failure.Code != apperrors.CodeOracleMalformedPayload {
		t.Fatalf("failure = %+v", st.Failure)
	}
	if got := st.Failure.Message("en-US"); got != genericFailure {
		t.Fatalf("message = %q", got)
	}
	if len(st.Selection) != 2 || st.Selection[0].ID != "naoh" || st.Selection[1].ID != "h2so4" {
		t.Fatalf("selection changed: %+v", st.Selection)
	}
	if records := j.all(); len(records) != 1 || records[0].ErrorCode != string(apperrors.CodeOracleMalformedPayload) {
		t.Fatalf("journal = %+v", records)
	}
}

func TestOracleFailuresShareGenericMessage(t *testing.T) {
	errs := []error{
		apperrors.New(apperrors.CodeOracleTransportFailure, "dial"),
		apperrors.New(apperrors.CodeOracleSchemaViolation, "missing field"),
		errors.New("uncoded failure"),
	}
	for _, oracleErr := range errs {
		c := newController(t, &oraclefake.Oracle{Err: oracleErr}, nil)
		mustAdd(t, c, "naoh", "hcl")
		st, _ := c.Simulate(context.Background())
		if st.Phase != PhaseFailed {
			t.Fatalf("phase = %s", st.Phase)
		}
		if !st.Failure.Code.IsOracleFailure() {
			t.Fatalf("failure code = %s", st.Failure.Code)
		}
		if got := st.Failure.Message("en-US"); got != genericFailure {
			t.Fatalf("message = %q", got)
		}
	}
}

func TestSimulateTimeoutIsTransportFailure(t *testing.T) {
	fake := &oraclefake.Oracle{Result: oraclefake.NeutralizationResult(), Gate: make(chan struct{})}
	c := newController(t, fake, func(cfg *Config) { cfg.OracleTimeout = 10 * time.Millisecond })
	mustAdd(t, c, "naoh", "hcl")

	st, _ := c.Simulate(context.Background())
	if st.Phase != PhaseFailed || st.Failure.Code != apperrors.CodeOracleTransportFailure {
		t.Fatalf("state = %+v", st)
	}
}

func TestSecondSimulateWhileInFlightIsRejected(t *testing.T) {
	fake := &oraclefake.Oracle{
		Result:  oraclefake.NeutralizationResult(),
		Gate:    make(chan struct{}),
		Started: make(chan reaction.Request, 1),
	}
	c := newController(t, fake, nil)
	mustAdd(t, c, "naoh", "h2so4")

	done := make(chan State, 1)
	go func() {
		st, _ := c.Simulate(context.Background())
		done <- st
	}()
	<-fake.Started

	st, err := c.Simulate(context.Background())
	if !hasCode(err, apperrors.CodeSimulationAlreadyInFlight) {
		t.Fatalf("second Simulate error = %v", err)
	}
	if st.Phase != PhaseInFlight {
		t.Fatalf("phase = %s, want in flight", st.Phase)
	}
	if _, err := c.Launch(context.Background()); !hasCode(err, apperrors.CodeSimulationAlreadyInFlight) {
		t.Fatalf("Launch while in flight error = %v", err)
	}
	if fake.Calls() != 1 {
		t.Fatalf("oracle calls = %d, want 1", fake.Calls())
	}

	fake.Gate <- struct{}{}
	final := <-done
	if final.Phase != PhaseResolved {
		t.Fatalf("final phase = %s", final.Phase)
	}
}

func TestInFlightStateHasEmptyOutcome(t *testing.T) {
	fake := &oraclefake.Oracle{
		Script:  []oraclefake.Reply{{Err: apperrors.New(apperrors.CodeOracleTransportFailure, "x")}},
		Result:  oraclefake.NeutralizationResult(),
		Gate:    make(chan struct{}),
		Started: make(chan reaction.Request, 1),
	}
	c := newController(t, fake, nil)
	mustAdd(t, c, "naoh", "h2so4")

	// First run fails so the second launch must clear the failure.
	go func() { fake.Gate <- struct{}{} }()
	if st, _ := c.Simulate(context.Background()); st.Phase != PhaseFailed {
		t.Fatalf("phase = %s", st.Phase)
	}
	<-fake.Started

	st, err := c.Launch(context.Background())
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if st.Phase != PhaseInFlight || st.Result != nil || st.Failure != nil {
		t.Fatalf("in flight state = %+v", st)
	}
	<-fake.Started
	fake.Gate <- struct{}{}
	waitForPhase(t, c, PhaseResolved)
}

func TestMutationFromTerminalReturnsToIdle(t *testing.T) {
	tests := []struct {
		name   string
		oracle *oraclefake.Oracle
		mutate func(t *testing.T, c *Controller)
	}{
		{
			name:   "remove after resolved",
			oracle: &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()},
			mutate: func(t *testing.T, c *Controller) {
				if err := c.Remove("naoh"); err != nil {
					t.Fatalf("remove: %v", err)
				}
			},
		},
		{
			name:   "remove then add after failed",
			oracle: &oraclefake.Oracle{Err: apperrors.New(apperrors.CodeOracleTransportFailure, "down")},
			mutate: func(t *testing.T, c *Controller) {
				_ = c.Remove("h2so4")
				if st := c.State(); st.Phase != PhaseIdle {
					t.Fatalf("phase after remove = %s", st.Phase)
				}
				mustAdd(t, c, "hcl")
			},
		},
		{
			name:   "clear after resolved",
			oracle: &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()},
			mutate: func(_ *testing.T, c *Controller) { c.Clear() },
		},
		{
			name:   "dismiss after failed",
			oracle: &oraclefake.Oracle{Err: apperrors.New(apperrors.CodeOracleSchemaViolation, "bad")},
			mutate: func(_ *testing.T, c *Controller) { c.Dismiss() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t, tt.oracle, nil)
			mustAdd(t, c, "naoh", "h2so4")
			if st, _ := c.Simulate(context.Background()); !st.Phase.IsTerminal() {
				t.Fatalf("phase after simulate = %s", st.Phase)
			}
			tt.mutate(t, c)
			st := c.State()
			if st.Phase != PhaseIdle || st.Result != nil || st.Failure != nil {
				t.Fatalf("state = %+v", st)
			}
		})
	}
}

func TestRemoveAbsentKeepsOutcome(t *testing.T) {
	c := newController(t, &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}, nil)
	mustAdd(t, c, "naoh", "h2so4")
	_, _ = c.Simulate(context.Background())

	if err := c.Remove("hcl"); !hasCode(err, apperrors.CodeSelectionNotFound) {
		t.Fatalf("remove absent error = %v", err)
	}
	st := c.State()
	if st.Phase != PhaseResolved || st.Result == nil || len(st.Selection) != 2 {
		t.Fatalf("state changed after failed remove: %+v", st)
	}
}

func TestRejectedAddKeepsOutcome(t *testing.T) {
	c := newController(t, &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}, nil)
	mustAdd(t, c, "naoh", "h2so4")
	_, _ = c.Simulate(context.Background())

	if err := c.Add(substance(t, "hcl")); !hasCode(err, apperrors.CodeSelectionCapacityExceeded) {
		t.Fatalf("add error = %v", err)
	}
	if st := c.State(); st.Phase != PhaseResolved {
		t.Fatalf("phase = %s", st.Phase)
	}
}

func TestSetOptionsNeverSimulates(t *testing.T) {
	fake := &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}
	c := newController(t, fake, nil)
	mustAdd(t, c, "naoh", "h2so4")
	_, _ = c.Simulate(context.Background())

	c.SetOptions(reaction.Options{Concentration: reaction.ConcentrationConcentrated})
	c.SetOptions(reaction.Options{UseIndicator: true})
	st := c.State()
	if fake.Calls() != 1 {
		t.Fatalf("oracle calls = %d, want 1", fake.Calls())
	}
	if st.Phase != PhaseResolved || st.Result == nil {
		t.Fatalf("options change altered outcome: %+v", st)
	}
	if st.Options.Concentration != reaction.ConcentrationDilute || !st.Options.UseIndicator {
		t.Fatalf("options = %+v", st.Options)
	}
}

func TestStaleResolutionDiscarded(t *testing.T) {
	fake := &oraclefake.Oracle{
		Result:  oraclefake.NeutralizationResult(),
		Gate:    make(chan struct{}),
		Started: make(chan reaction.Request, 1),
	}
	j := &fakeJournal{}
	c := newController(t, fake, func(cfg *Config) { cfg.Journal = j })
	mustAdd(t, c, "naoh", "h2so4")

	done := make(chan State, 1)
	go func() {
		st, _ := c.Simulate(context.Background())
		done <- st
	}()
	<-fake.Started

	if err := c.Remove("h2so4"); err != nil {
		t.Fatalf("remove in flight: %v", err)
	}
	if st := c.State(); st.Phase != PhaseInFlight || len(st.Selection) != 1 {
		t.Fatalf("state while in flight = %+v", st)
	}

	fake.Gate <- struct{}{}
	st := <-done
	if st.Phase != PhaseIdle || st.Result != nil || st.Failure != nil {
		t.Fatalf("stale resolution applied: %+v", st)
	}
	if records := j.all(); len(records) != 1 || records[0].Outcome != journal.OutcomeDiscarded {
		t.Fatalf("journal = %+v", records)
	}
}

func TestStaleResolutionApplied(t *testing.T) {
	fake := &oraclefake.Oracle{
		Result:  oraclefake.NeutralizationResult(),
		Gate:    make(chan struct{}),
		Started: make(chan reaction.Request, 1),
	}
	c := newController(t, fake, func(cfg *Config) { cfg.StalePolicy = StaleApply })
	mustAdd(t, c, "naoh", "h2so4")

	done := make(chan State, 1)
	go func() {
		st, _ := c.Simulate(context.Background())
		done <- st
	}()
	<-fake.Started
	c.Clear()

	fake.Gate <- struct{}{}
	st := <-done
	if st.Phase != PhaseResolved || st.Result == nil {
		t.Fatalf("state = %+v", st)
	}
}

func TestLaunchResolvesInBackground(t *testing.T) {
	fake := &oraclefake.Oracle{Result: oraclefake.NeutralizationResult(), Gate: make(chan struct{})}
	c := newController(t, fake, nil)
	mustAdd(t, c, "naoh", "h2so4")

	ctx, cancel := context.WithCancel(context.Background())
	st, err := c.Launch(ctx)
	if err != nil || st.Phase != PhaseInFlight {
		t.Fatalf("Launch = %+v, %v", st, err)
	}
	// Cancelling the caller's context must not abort the call.
	cancel()
	fake.Gate <- struct{}{}
	final := waitForPhase(t, c, PhaseResolved)
	if final.Result == nil {
		t.Fatal("expected result")
	}
}

func TestLaunchInvalidSelectionFailsSynchronously(t *testing.T) {
	fake := &oraclefake.Oracle{}
	c := newController(t, fake, nil)
	st, err := c.Launch(context.Background())
	if err != nil || st.Phase != PhaseFailed {
		t.Fatalf("Launch = %+v, %v", st, err)
	}
	if fake.Calls() != 0 {
		t.Fatalf("oracle calls = %d", fake.Calls())
	}
}

func TestSubscribeSeesOrderedTransitions(t *testing.T) {
	c := newController(t, &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}, nil)

	var mu sync.Mutex
	var phases []Phase
	var versions []uint64
	unsubscribe := c.Subscribe(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, st.Phase)
		versions = append(versions, st.Version)
	})

	mustAdd(t, c, "naoh", "h2so4")
	_, _ = c.Simulate(context.Background())
	unsubscribe()
	c.Clear()

	mu.Lock()
	defer mu.Unlock()
	want := []Phase{PhaseIdle, PhaseIdle, PhaseInFlight, PhaseResolved}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
		if i > 0 && versions[i] <= versions[i-1] {
			t.Fatalf("versions not increasing: %v", versions)
		}
	}
}

func TestJournalErrorDoesNotChangeState(t *testing.T) {
	j := &fakeJournal{err: errors.New("disk full")}
	c := newController(t, &oraclefake.Oracle{Result: oraclefake.NeutralizationResult()}, func(cfg *Config) { cfg.Journal = j })
	mustAdd(t, c, "naoh", "h2so4")
	if st, _ := c.Simulate(context.Background()); st.Phase != PhaseResolved {
		t.Fatalf("phase = %s", st.Phase)
	}
}

func TestSelectionInvariantUnderRandomOps(t *testing.T) {
	c := newController(t, &oraclefake.Oracle{Result: oraclefake.NoReactionResult()}, nil)
	ids := []string{"hcl", "naoh", "nacl", "hcl", "h2o", "naoh"}
	for i := 0; i < 60; i++ {
		id := ids[i%len(ids)]
		switch i % 4 {
		case 0, 1:
			_ = c.Add(substance(t, id))
		case 2:
			_ = c.Remove(id)
		case 3:
			_, _ = c.Simulate(context.Background())
		}
		st := c.State()
		if len(st.Selection) > 2 {
			t.Fatalf("selection overflow: %+v", st.Selection)
		}
		if len(st.Selection) == 2 && st.Selection[0].ID == st.Selection[1].ID {
			t.Fatalf("duplicate selection: %+v", st.Selection)
		}
		if st.Result != nil && st.Failure != nil {
			t.Fatalf("outcome slot holds both result and failure: %+v", st)
		}
	}
}

func TestPhaseTransitions(t *testing.T) {
	allowed := map[[2]Phase]bool{
		{PhaseIdle, PhaseValidating}:     true,
		{PhaseValidating, PhaseInFlight}: true,
		{PhaseValidating, PhaseFailed}:   true,
		{PhaseInFlight, PhaseResolved}:   true,
		{PhaseInFlight, PhaseFailed}:     true,
		{PhaseInFlight, PhaseIdle}:       true,
		{PhaseResolved, PhaseValidating}: true,
		{PhaseResolved, PhaseIdle}:       true,
		{PhaseFailed, PhaseValidating}:   true,
		{PhaseFailed, PhaseIdle}:         true,
	}
	phases := []Phase{PhaseIdle, PhaseValidating, PhaseInFlight, PhaseResolved, PhaseFailed}
	for _, from := range phases {
		for _, to := range phases {
			if got := isAllowedTransition(from, to); got != allowed[[2]Phase{from, to}] {
				t.Errorf("isAllowedTransition(%s, %s) = %v", from, to, got)
			}
		}
	}
}

func TestParseStalePolicy(t *testing.T) {
	for raw, want := range map[string]StalePolicy{"": StaleDiscard, "DISCARD": StaleDiscard, "apply": StaleApply} {
		got, err := ParseStalePolicy(raw)
		if err != nil || got != want {
			t.Fatalf("ParseStalePolicy(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseStalePolicy("ignore"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStateCanSimulate(t *testing.T) {
	pair := []catalog.Substance{substance(t, "naoh"), substance(t, "h2so4")}
	tests := map[string]struct {
		state State
		want  bool
	}{
		"idle pair":      {state: State{Phase: PhaseIdle, Selection: pair}, want: true},
		"failed pair":    {state: State{Phase: PhaseFailed, Selection: pair}, want: true},
		"in flight pair": {state: State{Phase: PhaseInFlight, Selection: pair}, want: false},
		"single":         {state: State{Phase: PhaseIdle, Selection: pair[:1]}, want: false},
		"empty":          {state: State{Phase: PhaseIdle}, want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.state.CanSimulate(); got != tt.want {
				t.Fatalf("CanSimulate = %v, want %v", got, tt.want)
			}
		})
	}
}
