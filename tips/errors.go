/*
errors.go - Centralized error types for the tip engine

PURPOSE:
  All Go errors in one place. Only conditions that abort a run or reject an
  operation are errors; recoverable data problems (incomplete shifts,
  out-of-range transactions, unattributable shares) are Exceptions collected
  into a report instead (see exceptions.go).

ERROR CATEGORIES:
  1. Fatal run errors - unmapped role labels, rounding imbalance
  2. Lifecycle errors - calculation state and uniqueness violations
  3. Store errors - missing rows, optimistic concurrency conflicts
  4. Configuration errors - invalid pattern tables, windows, mappings

SEE ALSO:
  - exceptions.go: Non-fatal, user-recoverable conditions
  - lifecycle.go: Uses the lifecycle errors
*/
package tips

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnmappedRole is returned when a shift carries a role label with no
	// RoleMapping. The run is aborted until the mapping is configured.
	ErrUnmappedRole = errors.New("unmapped role label")

	// ErrRoundingImbalance means rounded totals do not match the source pool.
	// This is an internal invariant violation, never user-recoverable.
	ErrRoundingImbalance = errors.New("rounding imbalance")

	// ErrCalculationInProgress is returned when a store already has a
	// processing calculation.
	ErrCalculationInProgress = errors.New("calculation already in progress for store")

	ErrCalculationNotFound     = errors.New("calculation not found")
	ErrCalculationCompleted    = errors.New("calculation already completed")
	ErrCalculationNotCompleted = errors.New("calculation not completed")

	// ErrPeriodMismatch is returned when compute is asked for a different
	// period than the store's processing calculation covers.
	ErrPeriodMismatch = errors.New("period does not match processing calculation")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	ErrResultNotFound      = errors.New("result not found")
	ErrTransactionNotFound = errors.New("tip transaction not found")
	ErrShiftNotFound       = errors.New("shift record not found")
	ErrStoreNotFound       = errors.New("store not found")

	ErrInvalidConfig = errors.New("invalid store configuration")
	ErrInvalidPeriod = errors.New("invalid period: end before start")
	ErrInvalidWindow = errors.New("invalid operating window")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnmappedRoleError lists every label that had no mapping in the run.
type UnmappedRoleError struct {
	StoreID StoreID
	Labels  []string
}

func (e *UnmappedRoleError) Error() string {
	return fmt.Sprintf("unmapped role labels for store %s: %s", e.StoreID, strings.Join(e.Labels, ", "))
}

func (e *UnmappedRoleError) Unwrap() error { return ErrUnmappedRole }

// RoundingImbalanceError reports which pool failed to reconcile.
type RoundingImbalanceError struct {
	Pool     string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *RoundingImbalanceError) Error() string {
	return fmt.Sprintf("rounding imbalance in %s pool: expected %s, allocated %s",
		e.Pool, e.Expected.String(), e.Actual.String())
}

func (e *RoundingImbalanceError) Unwrap() error { return ErrRoundingImbalance }

// ActiveCalculationError points at the calculation blocking a new one.
type ActiveCalculationError struct {
	StoreID  StoreID
	Existing CalculationID
}

func (e *ActiveCalculationError) Error() string {
	return fmt.Sprintf("store %s already has processing calculation %s", e.StoreID, e.Existing)
}

func (e *ActiveCalculationError) Unwrap() error { return ErrCalculationInProgress }

// ConfigError collects every configuration problem found in one validation pass.
type ConfigError struct {
	StoreID  StoreID
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for store %s: %s", e.StoreID, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnmappedRole) ||
		errors.Is(err, ErrCalculationInProgress) ||
		errors.Is(err, ErrCalculationCompleted) ||
		errors.Is(err, ErrCalculationNotCompleted) ||
		errors.Is(err, ErrPeriodMismatch) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidWindow)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCalculationNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrStoreNotFound)
}
