// Package oraclefake provides a deterministic reaction oracle for tests.
package oraclefake

import (
	"context"
	"sync"

	"github.com/louisbranch/smartlab/internal/lab/reaction"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// Reply is one scripted oracle answer.
type Reply struct {
	Result reaction.Result
	Err    error
}

// Oracle is a configurable fake for reaction.Oracle.
//
// Replies are consumed in order; once exhausted, Result and Err answer every
// further call. When Gate is set each call blocks until Gate yields a value
// or the context ends, which lets tests observe the in-flight state.
type Oracle struct {
	Result reaction.Result
	Err    error
	Script []Reply
	Gate   chan struct{}
	// Started receives each request as the call begins, when non-nil.
	Started chan reaction.Request

	mu       sync.Mutex
	calls    int
	requests []reaction.Request
}

// Simulate records the request and returns the next scripted reply.
func (f *Oracle) Simulate(ctx context.Context, req reaction.Request) (reaction.Result, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	reply := Reply{Result: f.Result, Err: f.Err}
	if len(f.Script) > 0 {
		reply = f.Script[0]
		f.Script = f.Script[1:]
	}
	f.mu.Unlock()

	if f.Started != nil {
		f.Started <- req
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return reaction.Result{}, apperrors.Wrap(apperrors.CodeOracleTransportFailure, "fake oracle canceled", ctx.Err())
		}
	}
	return reply.Result, reply.Err
}

// Calls returns the number of Simulate calls.
func (f *Oracle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Requests returns every request received, in order.
func (f *Oracle) Requests() []reaction.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reaction.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request, or the zero value.
func (f *Oracle) LastRequest() reaction.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return reaction.Request{}
	}
	return f.requests[len(f.requests)-1]
}

// NeutralizationResult is a valid answer for NaOH + H2SO4.
func NeutralizationResult() reaction.Result {
	return reaction.Result{
		Equation:         "2NaOH + H2SO4 -> Na2SO4 + 2H2O",
		Phenomena:        "The solution warms slightly.",
		Properties:       "Neutral sodium sulfate solution.",
		ImageDescription: "A clear beaker of colorless liquid",
		SafetyWarning:    "Wear goggles and gloves.",
		HexColor:         "#336699",
	}
}

// NoReactionResult is a valid answer for an inert pair.
func NoReactionResult() reaction.Result {
	return reaction.Result{
		Equation:         reaction.NoReaction,
		Phenomena:        "Nothing visible happens.",
		Properties:       "Simple mixture.",
		ImageDescription: "Two layers in a beaker",
		SafetyWarning:    "Handle with care.",
		HexColor:         "#AABBCC",
	}
}
