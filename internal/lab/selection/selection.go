// Package selection holds the ordered set of substances chosen for a
// reaction.
package selection

import (
	"fmt"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// Capacity is the number of substances a reaction takes.
const Capacity = 2

// Selection is an insertion-ordered list of at most Capacity substances,
// unique by ID. The zero value is empty and ready to use.
type Selection struct {
	items []catalog.Substance
}

// Len returns the number of selected substances.
func (s *Selection) Len() int {
	return len(s.items)
}

// Full reports whether the selection is at capacity.
func (s *Selection) Full() bool {
	return len(s.items) >= Capacity
}

// Items returns a copy of the selected substances in insertion order.
func (s *Selection) Items() []catalog.Substance {
	out := make([]catalog.Substance, len(s.items))
	copy(out, s.items)
	return out
}

// Contains reports whether a substance with id is selected.
func (s *Selection) Contains(id string) bool {
	return s.index(id) >= 0
}

// Add appends substance. Capacity is checked before duplication, so adding
// to a full selection always reports capacity.
func (s *Selection) Add(substance catalog.Substance) error {
	if s.Full() {
		return apperrors.New(apperrors.CodeSelectionCapacityExceeded,
			fmt.Sprintf("selection already holds %d substances", Capacity))
	}
	if s.Contains(substance.ID) {
		return apperrors.WithMetadata(apperrors.CodeSelectionDuplicate,
			fmt.Sprintf("substance %q already selected", substance.ID),
			map[string]string{"ID": substance.ID})
	}
	s.items = append(s.items, substance)
	return nil
}

// Remove drops the substance with id.
func (s *Selection) Remove(id string) error {
	idx := s.index(id)
	if idx < 0 {
		return apperrors.WithMetadata(apperrors.CodeSelectionNotFound,
			fmt.Sprintf("substance %q not selected", id),
			map[string]string{"ID": id})
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.items = nil
}

func (s *Selection) index(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
