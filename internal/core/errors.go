package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common sentinel errors.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// UnbalancedEntryError is raised before any write when a journal entry's
// debits and credits differ beyond the 0.01 tolerance.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced journal entry: debits %s != credits %s",
		e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

// InvalidTransitionError is raised when a document action is attempted
// from a state that does not permit it.
type InvalidTransitionError struct {
	Entity  string // e.g. "invoice", "quote"
	Current string // current status
	Action  string // attempted action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot be %s: status is %s", e.Entity, e.Action, e.Current)
}

// InsufficientError is raised when an allocation or stock operation
// exceeds what is available.
type InsufficientError struct {
	Resource  string // e.g. "unallocated amount", "stock"
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient %s: requested %s, available %s",
		e.Resource, e.Requested.String(), e.Available.String())
}

// MissingConfigurationError is raised when a posting requires a GL
// account role that has no configured rule. It is a setup fault, never retried.
type MissingConfigurationError struct {
	Role string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("no posting rule configured for role %q: seed posting_rules or run migrations", e.Role)
}
