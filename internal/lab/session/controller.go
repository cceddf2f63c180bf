// Package session owns the per-user lab state: the selection, the experiment
// options and the outcome of the most recent simulation.
//
// A Controller serializes every mutation behind one lock. The oracle call is
// the only step that runs without it, so selection edits stay responsive
// while a request is outstanding.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/journal"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	"github.com/louisbranch/smartlab/internal/lab/selection"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	platformotel "github.com/louisbranch/smartlab/internal/platform/otel"
	"github.com/louisbranch/smartlab/internal/platform/telemetry/metrics"
	"github.com/louisbranch/smartlab/internal/platform/timeouts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Journal receives finished simulations.
type Journal interface {
	PutSimulation(ctx context.Context, rec journal.Record) error
}

// Config carries the collaborators and policies of a controller.
type Config struct {
	Oracle        reaction.Oracle
	OracleTimeout time.Duration
	StalePolicy   StalePolicy
	Journal       Journal
	Metrics       *metrics.Recorder
	Clock         func() time.Time
}

// Controller is the reaction orchestrator for one lab session.
type Controller struct {
	id      string
	oracle  reaction.Oracle
	timeout time.Duration
	stale   StalePolicy
	journal Journal
	metrics *metrics.Recorder
	clock   func() time.Time
	tracer  trace.Tracer

	mu         sync.Mutex
	phase      Phase
	sel        selection.Selection
	opts       reaction.Options
	result     *reaction.Result
	failure    *Failure
	generation uint64
	version    uint64
	updatedAt  time.Time

	observersMu   sync.Mutex
	observers     map[int]func(State)
	nextObserver  int
	lastDelivered uint64
}

// NewController builds an idle controller. Oracle is required.
func NewController(id string, cfg Config) (*Controller, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = timeouts.OracleRequest
	}
	if cfg.StalePolicy == "" {
		cfg.StalePolicy = StaleDiscard
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	c := &Controller{
		id:        id,
		oracle:    cfg.Oracle,
		timeout:   cfg.OracleTimeout,
		stale:     cfg.StalePolicy,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		tracer:    platformotel.Tracer("session"),
		phase:     PhaseIdle,
		opts:      reaction.DefaultOptions(),
		observers: map[int]func(State){},
	}
	c.updatedAt = c.clock()
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := State{
		SessionID:  c.id,
		Phase:      c.phase,
		Selection:  c.sel.Items(),
		Options:    c.opts,
		Generation: c.generation,
		Version:    c.version,
		UpdatedAt:  c.updatedAt,
	}
	if c.result != nil {
		res := *c.result
		st.Result = &res
	}
	if c.failure != nil {
		f := *c.failure
		st.Failure = &f
	}
	return st
}

// touchLocked records a state change and returns the new snapshot.
func (c *Controller) touchLocked() State {
	c.version++
	c.updatedAt = c.clock()
	return c.snapshotLocked()
}

// clearOutcomeLocked empties the outcome slot. A terminal phase returns to
// idle; an outstanding request keeps the controller in flight.
func (c *Controller) clearOutcomeLocked() {
	c.result = nil
	c.failure = nil
	if c.phase.IsTerminal() {
		_ = c.transition(PhaseIdle)
	}
}

// Add appends substance to the selection and invalidates any outcome.
func (c *Controller) Add(substance catalog.Substance) error {
	c.mu.Lock()
	if err := c.sel.Add(substance); err != nil {
		c.mu.Unlock()
		return err
	}
	c.generation++
	c.clearOutcomeLocked()
	st := c.touchLocked()
	c.mu.Unlock()

	c.publish(st)
	return nil
}

// Remove drops a substance from the selection and invalidates any outcome.
func (c *Controller) Remove(id string) error {
	c.mu.Lock()
	if err := c.sel.Remove(id); err != nil {
		c.mu.Unlock()
		return err
	}
	c.generation++
	c.clearOutcomeLocked()
	st := c.touchLocked()
	c.mu.Unlock()

	c.publish(st)
	return nil
}

// Clear empties the selection and the outcome slot.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.sel.Clear()
	c.generation++
	c.clearOutcomeLocked()
	st := c.touchLocked()
	c.mu.Unlock()

	c.publish(st)
}

// Dismiss empties the outcome slot without touching the selection.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	if !c.phase.IsTerminal() {
		c.mu.Unlock()
		return
	}
	c.clearOutcomeLocked()
	st := c.touchLocked()
	c.mu.Unlock()

	c.publish(st)
}

// SetOptions replaces the experiment options. It never issues a request and
// leaves any outcome in place.
func (c *Controller) SetOptions(opts reaction.Options) {
	if opts.Concentration == "" {
		opts.Concentration = reaction.ConcentrationDilute
	}
	c.mu.Lock()
	if c.opts == opts {
		c.mu.Unlock()
		return
	}
	c.opts = opts
	st := c.touchLocked()
	c.mu.Unlock()

	c.publish(st)
}

// pending is an issued request waiting for the oracle.
type pending struct {
	id         string
	req        reaction.Request
	generation uint64
	started    time.Time
}

// begin validates the selection and, when it holds two substances, moves the
// controller in flight. A second call while in flight is rejected with
// SIMULATION_ALREADY_IN_FLIGHT and changes nothing.
func (c *Controller) begin() (*pending, State, error) {
	c.mu.Lock()
	if c.phase == PhaseInFlight {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return nil, st, apperrors.New(apperrors.CodeSimulationAlreadyInFlight, "simulation already in flight")
	}
	if err := c.transition(PhaseValidating); err != nil {
		st := c.snapshotLocked()
		c.mu.Unlock()
		return nil, st, err
	}

	req, err := reaction.NewRequest(c.sel.Items(), c.opts)
	if err != nil {
		_ = c.transition(PhaseFailed)
		c.result = nil
		c.failure = failureFrom(err)
		st := c.touchLocked()
		c.mu.Unlock()

		c.metrics.ObserveSimulation(context.Background(), "invalid")
		c.publish(st)
		return nil, st, nil
	}

	c.result = nil
	c.failure = nil
	_ = c.transition(PhaseInFlight)
	p := &pending{
		id:         uuid.NewString(),
		req:        req,
		generation: c.generation,
		started:    c.clock(),
	}
	st := c.touchLocked()
	c.mu.Unlock()

	c.publish(st)
	return p, st, nil
}

// Simulate runs one simulation to completion and returns the final state.
//
// Validation and oracle failures are reported through the returned state,
// never as an error. The error is set only when the call was rejected
// without a state change.
func (c *Controller) Simulate(ctx context.Context) (State, error) {
	p, st, err := c.begin()
	if err != nil || p == nil {
		return st, err
	}
	return c.run(ctx, p), nil
}

// Launch is Simulate without waiting for the oracle. It returns the state
// right after validation; the outcome arrives through subscribers. The call
// survives cancellation of ctx but keeps its values.
func (c *Controller) Launch(ctx context.Context) (State, error) {
	p, st, err := c.begin()
	if err != nil || p == nil {
		return st, err
	}
	go c.run(context.WithoutCancel(ctx), p)
	return st, nil
}

func (c *Controller) run(ctx context.Context, p *pending) State {
	ctx, span := c.tracer.Start(ctx, "session.Simulate", trace.WithAttributes(
		attribute.String("lab.session_id", c.id),
		attribute.String("lab.request_id", p.id),
		attribute.StringSlice("lab.reactants", p.req.ReactantIDs()),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	result, err := c.oracle.Simulate(callCtx, p.req)
	cancel()
	if err != nil {
		err = classifyOracleError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
	}
	return c.finish(ctx, p, result, err)
}

// finish applies the oracle answer, or drops it when the selection moved on
// and the policy says so.
func (c *Controller) finish(ctx context.Context, p *pending, result reaction.Result, oracleErr error) State {
	c.mu.Lock()
	stale := c.generation != p.generation
	var outcome journal.Outcome
	switch {
	case stale && c.stale == StaleDiscard:
		outcome = journal.OutcomeDiscarded
		_ = c.transition(PhaseIdle)
		c.result = nil
		c.failure = nil
	case oracleErr != nil:
		outcome = journal.OutcomeFailed
		_ = c.transition(PhaseFailed)
		c.result = nil
		c.failure = failureFrom(oracleErr)
	default:
		outcome = journal.OutcomeResolved
		_ = c.transition(PhaseResolved)
		res := result
		c.result = &res
		c.failure = nil
	}
	st := c.touchLocked()
	c.mu.Unlock()

	duration := c.clock().Sub(p.started)
	if oracleErr != nil {
		log.Printf("simulation failed session=%s request=%s code=%s stale=%t err=%v",
			c.id, p.id, apperrors.CodeOf(oracleErr), stale, oracleErr)
	} else if outcome == journal.OutcomeDiscarded {
		log.Printf("simulation discarded session=%s request=%s generation=%d current=%d",
			c.id, p.id, p.generation, st.Generation)
	}
	c.metrics.ObserveSimulation(ctx, string(outcome))
	c.record(ctx, p, outcome, result, oracleErr, duration)
	c.publish(st)
	return st
}

func (c *Controller) record(ctx context.Context, p *pending, outcome journal.Outcome, result reaction.Result, oracleErr error, duration time.Duration) {
	if c.journal == nil {
		return
	}
	rec := journal.Record{
		RequestID:     p.id,
		SessionID:     c.id,
		SubstanceIDs:  [2]string{p.req.Reactants[0].ID, p.req.Reactants[1].ID},
		Concentration: string(p.req.Options.Concentration),
		UseIndicator:  p.req.Options.UseIndicator,
		Outcome:       outcome,
		Duration:      duration,
	}
	if oracleErr != nil {
		rec.ErrorCode = string(apperrors.CodeOf(oracleErr))
	} else {
		rec.Equation = result.Equation
		rec.HexColor = result.HexColor
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.JournalWrite)
	defer cancel()
	if err := c.journal.PutSimulation(writeCtx, rec); err != nil {
		log.Printf("journal write failed session=%s request=%s err=%v", c.id, p.id, err)
	}
}

// classifyOracleError makes sure every oracle failure carries an oracle code.
// Uncoded errors, timeouts included, are transport failures.
func classifyOracleError(err error) error {
	if apperrors.CodeOf(err).IsOracleFailure() {
		return err
	}
	msg := "oracle call failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "oracle call timed out"
	}
	return apperrors.Wrap(apperrors.CodeOracleTransportFailure, msg, err)
}

func failureFrom(err error) *Failure {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return &Failure{Code: domainErr.Code, Metadata: domainErr.Metadata}
	}
	return &Failure{Code: apperrors.CodeUnknown}
}
