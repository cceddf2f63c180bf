package session

import (
	"time"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// Failure is the error half of the outcome slot.
type Failure struct {
	Code     apperrors.Code    `json:"code"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Err rebuilds a domain error for message rendering.
func (f *Failure) Err() error {
	if f == nil {
		return nil
	}
	return apperrors.WithMetadata(f.Code, string(f.Code), f.Metadata)
}

// Message renders the localized user message for the failure.
func (f *Failure) Message(locale string) string {
	if f == nil {
		return ""
	}
	return apperrors.UserMessage(locale, f.Err())
}

// State is a serializable snapshot of one lab session. At most one of
// Result and Failure is set, and neither is set while InFlight.
type State struct {
	SessionID string              `json:"session_id"`
	Phase     Phase               `json:"phase"`
	Selection []catalog.Substance `json:"selection"`
	Options   reaction.Options    `json:"options"`
	Result    *reaction.Result    `json:"result,omitempty"`
	Failure   *Failure            `json:"failure,omitempty"`
	// Generation increments on every selection change.
	Generation uint64 `json:"generation"`
	// Version increments on every state change and orders snapshots.
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdleState is what a brand-new session looks like. Visitors without a
// session are shown it until their first change creates one.
func IdleState() State {
	return State{
		Phase:     PhaseIdle,
		Selection: []catalog.Substance{},
		Options:   reaction.DefaultOptions(),
	}
}

// InFlight reports whether an oracle call is outstanding.
func (s State) InFlight() bool {
	return s.Phase == PhaseInFlight
}

// CanSimulate reports whether a Simulate call would issue a request.
func (s State) CanSimulate() bool {
	return s.Phase != PhaseInFlight && len(s.Selection) == reaction.ReactantCount
}
