/*
store.go - Persistence interfaces for the calculation lifecycle

PURPOSE:
  Defines the boundary between the lifecycle controller and the database.
  The engine never calls these; the controller loads every input up front,
  runs the engine, and writes results through a transactional boundary.

KEY INTERFACES:
  InputSource:       Read-only view of configuration and imported inputs
  CalculationStore:  Calculations, tip statuses, results and their audit trail
  TxCalculationStore: CalculationStore with atomic multi-write support
  TransactionStore:  Tip transaction lookup and payment-time correction
  Repository:        Everything the controller needs

UNIQUENESS:
  CreateCalculation must enforce at most one processing calculation per
  store as a persisted invariant (a partial unique index in SQL stores),
  returning an *ActiveCalculationError on violation.

OPTIMISTIC CONCURRENCY:
  UpdateResult writes only when the stored version equals expectedVersion,
  otherwise ErrConcurrentModification.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite via database/sql
  - tips/store/memory.go: In-memory for testing
*/
package tips

import "context"

// InputSource delivers configuration and normalized inputs for a run.
type InputSource interface {
	GetStore(ctx context.Context, id StoreID) (*Store, error)
	RoleMappings(ctx context.Context, storeID StoreID) ([]RoleMapping, error)
	Patterns(ctx context.Context, storeID StoreID) ([]DistributionPattern, error)

	// Shifts returns records dated in the period plus undated records.
	Shifts(ctx context.Context, storeID StoreID, period Period) ([]ShiftRecord, error)
	TipTransactions(ctx context.Context, storeID StoreID, period Period) ([]TipTransaction, error)
	CashTipDays(ctx context.Context, storeID StoreID, period Period) ([]CashTipDay, error)
}

// CalculationStore persists calculations and their results.
type CalculationStore interface {
	CreateCalculation(ctx context.Context, calc TipCalculation) error
	GetCalculation(ctx context.Context, id CalculationID) (*TipCalculation, error)

	// ActiveCalculation returns the store's processing calculation, or nil.
	ActiveCalculation(ctx context.Context, storeID StoreID) (*TipCalculation, error)

	// DeleteCalculation removes a calculation with its statuses and results.
	DeleteCalculation(ctx context.Context, id CalculationID) error

	MarkCompleted(ctx context.Context, calc TipCalculation) error

	TipStatuses(ctx context.Context, calcID CalculationID) ([]EmployeeTipStatus, error)
	SetTipStatus(ctx context.Context, status EmployeeTipStatus) error

	// ReplaceResults discards every result of the calculation and writes rows.
	ReplaceResults(ctx context.Context, calcID CalculationID, rows []TipCalculationResult) error
	Results(ctx context.Context, calcID CalculationID) ([]TipCalculationResult, error)
	GetResult(ctx context.Context, id ResultID) (*TipCalculationResult, error)
	UpdateResult(ctx context.Context, row TipCalculationResult, expectedVersion int) error
	DeleteResult(ctx context.Context, id ResultID) error

	AppendAudit(ctx context.Context, entry ResultAudit) error
	AuditTrail(ctx context.Context, resultID ResultID) ([]ResultAudit, error)
}

// TxCalculationStore wraps CalculationStore with transaction support.
type TxCalculationStore interface {
	CalculationStore

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	WithTx(ctx context.Context, fn func(CalculationStore) error) error
}

// TransactionStore reads and corrects tip transactions.
type TransactionStore interface {
	GetTipTransaction(ctx context.Context, id string) (*TipTransaction, error)
	SaveTipTransaction(ctx context.Context, tx TipTransaction) error
}

// Repository is the full persistence surface used by the controller.
type Repository interface {
	InputSource
	TxCalculationStore
	TransactionStore
}
