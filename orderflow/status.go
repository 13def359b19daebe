package orderflow

import (
	"strings"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

// Status is an order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// chain is the forward path; cancelled sits outside it.
var chain = []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == StatusCancelled {
		return st, true
	}
	for _, c := range chain {
		if st == c {
			return st, true
		}
	}
	return "", false
}

// Terminal states accept no further transitions or mutations.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the immediate successor on the forward chain.
func (s Status) Next() (Status, bool) {
	for i, c := range chain {
		if c == s && i+1 < len(chain) {
			return chain[i+1], true
		}
	}
	return "", false
}

// CanTransition allows the immediate successor, or cancelled from any non-terminal state.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}

// ValidateTransition explains why a move is illegal.
func ValidateTransition(from, to Status, reason string) error {
	if _, ok := ParseStatus(string(to)); !ok {
		return apperrors.Validation("unknown order status %q", to)
	}
	if from.Terminal() {
		return apperrors.Conflict("order is already %s", from)
	}
	if !CanTransition(from, to) {
		return apperrors.Validation("cannot move order from %s to %s", from, to)
	}
	if to == StatusCancelled && strings.TrimSpace(reason) == "" {
		return apperrors.Validation("a reason is required to cancel an order")
	}
	return nil
}

// EnsureMutable rejects edits to orders in a terminal state.
func EnsureMutable(s Status) error {
	if s.Terminal() {
		return apperrors.Conflict("order is %s and can no longer be modified", s)
	}
	return nil
}

// Item statuses reuse the order states.
const (
	ItemPending   = StatusPending
	ItemPreparing = StatusPreparing
	ItemReady     = StatusReady
	ItemCompleted = StatusCompleted
	ItemCancelled = StatusCancelled
)

// ValidateItemStatus accepts the states the kitchen may set on a line.
func ValidateItemStatus(to Status) error {
	switch to {
	case ItemPreparing, ItemReady, ItemCompleted:
		return nil
	}
	return apperrors.Validation("item status must be preparing, ready or completed")
}
