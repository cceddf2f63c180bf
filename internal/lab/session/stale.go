package session

import (
	"fmt"
	"strings"
)

// StalePolicy decides what happens to an oracle answer that arrives after
// the selection it was computed for has changed.
type StalePolicy string

const (
	// StaleDiscard drops the answer and returns to idle.
	StaleDiscard StalePolicy = "discard"
	// StaleApply shows the answer anyway.
	StaleApply StalePolicy = "apply"
)

// ParseStalePolicy parses a policy name; blank means StaleDiscard.
func ParseStalePolicy(raw string) (StalePolicy, error) {
	switch p := StalePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return StaleDiscard, nil
	case StaleDiscard, StaleApply:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stale result policy %q", raw)
	}
}
