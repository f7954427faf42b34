/*
lifecycle.go - Calculation lifecycle controller

PURPOSE:
  Owns the processing -> completed transition of a TipCalculation and the
  boundary between engine runs and manual post-completion edits.

STATES:
  processing: inputs are editable and Compute may run any number of times.
              Each run replaces the previous not-yet-completed results.
  completed:  terminal. Results change only through EditResult,
              ArchiveResult and DeleteResult, each audited.

TRANSITION:
  A run completes the calculation only when its exception report is empty.
  Results and the status change are written in one transaction, so a
  partial write is never observable as completed.

ONE ACTIVE CALCULATION PER STORE:
  Enforced by the repository's persisted uniqueness invariant, not by an
  in-process lock. Starting over while one is processing is an explicit
  Restart (discard-and-restart), never an automatic merge.

SEE ALSO:
  - engine.go: The pure computation
  - store.go: Repository interfaces
*/
package tips

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Controller coordinates runs and result edits for all stores.
type Controller struct {
	Repo   Repository
	Engine *Engine
	Logger *log.Logger

	Now   func() time.Time
	NewID func() string
}

// NewController wires a controller with UUID ids and UTC wall-clock time.
func NewController(repo Repository, engine *Engine, logger *log.Logger) *Controller {
	if engine == nil {
		engine = NewEngine()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		Repo:   repo,
		Engine: engine,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  uuid.NewString,
	}
}

// ResultIDFor derives a stable result id so reruns produce identical rows.
func ResultIDFor(calcID CalculationID, employee string) ResultID {
	return ResultID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("tip-result:"+string(calcID)+"/"+employee)).String())
}

// Outcome is what Compute reports back to the caller.
type Outcome struct {
	Calculation TipCalculation
	Exceptions  ExceptionReport
	Results     []TipCalculationResult
	TipPool     decimal.Decimal
	CashPool    decimal.Decimal
}

// Status is completed or processing.
func (o *Outcome) Status() CalculationStatus { return o.Calculation.Status }

// =============================================================================
// CALCULATION STATE
// =============================================================================

// Begin creates a processing calculation for the store.
func (c *Controller) Begin(ctx context.Context, storeID StoreID, period Period, actor string) (*TipCalculation, error) {
	if _, err := c.Repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	calc := TipCalculation{
		ID:        CalculationID(c.NewID()),
		StoreID:   storeID,
		Period:    period,
		Status:    StatusProcessing,
		CreatedBy: actor,
		CreatedAt: c.Now(),
	}
	if err := c.Repo.CreateCalculation(ctx, calc); err != nil {
		return nil, err
	}
	c.Logger.Printf("[Calculation] %s started for store %s period %s by %q", calc.ID, storeID, period, actor)
	return &calc, nil
}

// Restart discards the store's processing calculation, if any, and begins a
// new one in the same transaction.
func (c *Controller) Restart(ctx context.Context, storeID StoreID, period Period, actor string) (*TipCalculation, error) {
	if _, err := c.Repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	calc := TipCalculation{
		ID:        CalculationID(c.NewID()),
		StoreID:   storeID,
		Period:    period,
		Status:    StatusProcessing,
		CreatedBy: actor,
		CreatedAt: c.Now(),
	}
	var discarded CalculationID
	err := c.Repo.WithTx(ctx, func(s CalculationStore) error {
		active, err := s.ActiveCalculation(ctx, storeID)
		if err != nil {
			return err
		}
		if active != nil {
			discarded = active.ID
			if err := s.DeleteCalculation(ctx, active.ID); err != nil {
				return err
			}
		}
		return s.CreateCalculation(ctx, calc)
	})
	if err != nil {
		return nil, err
	}
	if discarded != "" {
		c.Logger.Printf("[Calculation] %s discarded by %q", discarded, actor)
	}
	c.Logger.Printf("[Calculation] %s started for store %s period %s by %q", calc.ID, storeID, period, actor)
	return &calc, nil
}

// Active returns the store's processing calculation, or nil.
func (c *Controller) Active(ctx context.Context, storeID StoreID) (*TipCalculation, error) {
	return c.Repo.ActiveCalculation(ctx, storeID)
}

// SetTipStatus toggles an employee's participation before finalization.
func (c *Controller) SetTipStatus(ctx context.Context, calcID CalculationID, employee string, tipped bool) error {
	calc, err := c.Repo.GetCalculation(ctx, calcID)
	if err != nil {
		return err
	}
	if calc.Status != StatusProcessing {
		return ErrCalculationCompleted
	}
	return c.Repo.SetTipStatus(ctx, EmployeeTipStatus{CalculationID: calcID, Employee: employee, Tipped: tipped})
}

// =============================================================================
// COMPUTE
// =============================================================================

// Compute is the engine entry point: it runs the engine for the store's
// processing calculation (creating one when none exists), replaces its
// results, and completes it when no exception remains.
func (c *Controller) Compute(ctx context.Context, storeID StoreID, period Period, actor string) (*Outcome, error) {
	calc, err := c.Repo.ActiveCalculation(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		calc, err = c.Begin(ctx, storeID, period, actor)
		if errors.Is(err, ErrCalculationInProgress) {
			calc, err = c.Repo.ActiveCalculation(ctx, storeID)
			if err == nil && calc == nil {
				err = ErrCalculationNotFound
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if !calc.Period.Equal(period) {
		return nil, fmt.Errorf("%w: processing calculation %s covers %s, requested %s",
			ErrPeriodMismatch, calc.ID, calc.Period, period)
	}

	input, err := c.loadInput(ctx, *calc)
	if err != nil {
		return nil, err
	}

	out, err := c.Engine.Run(*input)
	if err != nil {
		c.Logger.Printf("[Calculation] %s aborted: %v", calc.ID, err)
		return nil, err
	}
	rows := out.Results(calc.ID, ResultIDFor, calc.CreatedAt, calc.CreatedBy)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := *calc
	err = c.Repo.WithTx(ctx, func(s CalculationStore) error {
		current, err := s.GetCalculation(ctx, calc.ID)
		if err != nil {
			return err
		}
		if current.Status != StatusProcessing {
			return ErrCalculationCompleted
		}
		if err := s.ReplaceResults(ctx, calc.ID, rows); err != nil {
			return err
		}
		if !out.Exceptions.Empty() {
			return nil
		}
		at := c.Now()
		final.Status = StatusCompleted
		final.CompletedAt = &at
		return s.MarkCompleted(ctx, final)
	})
	if err != nil {
		return nil, err
	}

	if final.Status == StatusCompleted {
		c.Logger.Printf("[Calculation] %s completed: %d employees, tips %s, cash %s",
			calc.ID, len(rows), out.TipPool.StringFixed(c.Engine.Places), out.CashPool.StringFixed(c.Engine.Places))
	} else {
		c.Logger.Printf("[Calculation] %s still processing: %d open exceptions", calc.ID, out.Exceptions.Len())
	}

	return &Outcome{
		Calculation: final,
		Exceptions:  out.Exceptions,
		Results:     rows,
		TipPool:     out.TipPool,
		CashPool:    out.CashPool,
	}, nil
}

// OpenExceptions reruns the engine on current inputs without writing and
// returns what still blocks completion. A completed calculation has none.
func (c *Controller) OpenExceptions(ctx context.Context, calcID CalculationID) (ExceptionReport, error) {
	calc, err := c.Repo.GetCalculation(ctx, calcID)
	if err != nil {
		return ExceptionReport{}, err
	}
	if calc.Status == StatusCompleted {
		return ExceptionReport{}, nil
	}
	input, err := c.loadInput(ctx, *calc)
	if err != nil {
		return ExceptionReport{}, err
	}
	out, err := c.Engine.Run(*input)
	if err != nil {
		return ExceptionReport{}, err
	}
	return out.Exceptions, nil
}

func (c *Controller) loadInput(ctx context.Context, calc TipCalculation) (*Input, error) {
	store, err := c.Repo.GetStore(ctx, calc.StoreID)
	if err != nil {
		return nil, err
	}
	in := &Input{Store: *store, Period: calc.Period}
	if in.Mappings, err = c.Repo.RoleMappings(ctx, calc.StoreID); err != nil {
		return nil, fmt.Errorf("load role mappings: %w", err)
	}
	if in.Patterns, err = c.Repo.Patterns(ctx, calc.StoreID); err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	if in.Shifts, err = c.Repo.Shifts(ctx, calc.StoreID, calc.Period); err != nil {
		return nil, fmt.Errorf("load shifts: %w", err)
	}
	if in.Transactions, err = c.Repo.TipTransactions(ctx, calc.StoreID, calc.Period); err != nil {
		return nil, fmt.Errorf("load tip transactions: %w", err)
	}
	if in.CashDays, err = c.Repo.CashTipDays(ctx, calc.StoreID, calc.Period); err != nil {
		return nil, fmt.Errorf("load cash tips: %w", err)
	}
	if in.Statuses, err = c.Repo.TipStatuses(ctx, calc.ID); err != nil {
		return nil, fmt.Errorf("load tip statuses: %w", err)
	}
	return in, nil
}

// Results returns the result set of a calculation.
func (c *Controller) Results(ctx context.Context, calcID CalculationID) ([]TipCalculationResult, error) {
	if _, err := c.Repo.GetCalculation(ctx, calcID); err != nil {
		return nil, err
	}
	return c.Repo.Results(ctx, calcID)
}

// CorrectPaymentTime fixes an out-of-range or missing payment time. The
// transaction is re-validated against the window on the next run.
func (c *Controller) CorrectPaymentTime(ctx context.Context, txID string, at Clock, actor string) (*TipTransaction, error) {
	tx, err := c.Repo.GetTipTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	tx.CorrectPaymentTime(at)
	if err := c.Repo.SaveTipTransaction(ctx, *tx); err != nil {
		return nil, err
	}
	c.Logger.Printf("[Calculation] tip %s payment time set to %s by %q", txID, at, actor)
	return tx, nil
}

// =============================================================================
// POST-COMPLETION RESULT EDITS
// =============================================================================

// ResultEdit is a reviewer's change to one completed result row.
type ResultEdit struct {
	ID              ResultID
	Tips            decimal.Decimal
	CashTips        decimal.Decimal
	ExpectedVersion int
	Actor           string
}

// EditResult overwrites a completed row's amounts. Retrying an edit that has
// already been applied returns the row unchanged.
func (c *Controller) EditResult(ctx context.Context, edit ResultEdit) (*TipCalculationResult, error) {
	var updated TipCalculationResult
	err := c.Repo.WithTx(ctx, func(s CalculationStore) error {
		row, err := c.completedRow(ctx, s, edit.ID)
		if err != nil {
			return err
		}
		if row.Tips.Equal(edit.Tips) && row.CashTips.Equal(edit.CashTips) {
			updated = *row
			return nil
		}
		if row.Version != edit.ExpectedVersion {
			return ErrConcurrentModification
		}
		prev := *row
		row.Tips = edit.Tips
		row.CashTips = edit.CashTips
		return c.writeRow(ctx, s, prev, *row, ResultEdited, edit.Actor, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ArchiveResult marks a completed row archived. Archiving twice is a no-op.
func (c *Controller) ArchiveResult(ctx context.Context, id ResultID, expectedVersion int, actor string) (*TipCalculationResult, error) {
	var updated TipCalculationResult
	err := c.Repo.WithTx(ctx, func(s CalculationStore) error {
		row, err := c.completedRow(ctx, s, id)
		if err != nil {
			return err
		}
		if row.Archived {
			updated = *row
			return nil
		}
		if row.Version != expectedVersion {
			return ErrConcurrentModification
		}
		prev := *row
		row.Archived = true
		return c.writeRow(ctx, s, prev, *row, ResultArchived, actor, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteResult removes a completed row. Deleting a missing row succeeds.
func (c *Controller) DeleteResult(ctx context.Context, id ResultID, expectedVersion int, actor string) error {
	err := c.Repo.WithTx(ctx, func(s CalculationStore) error {
		row, err := c.completedRow(ctx, s, id)
		if errors.Is(err, ErrResultNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if row.Version != expectedVersion {
			return ErrConcurrentModification
		}
		if err := s.DeleteResult(ctx, id); err != nil {
			return err
		}
		return s.AppendAudit(ctx, ResultAudit{
			ID:        c.NewID(),
			ResultID:  id,
			Action:    ResultDeleted,
			Actor:     actor,
			Previous:  *row,
			Timestamp: c.Now(),
		})
	})
	if err != nil {
		return err
	}
	c.Logger.Printf("[Calculation] result %s deleted by %q", id, actor)
	return nil
}

// AuditTrail returns the edit history of a result row.
func (c *Controller) AuditTrail(ctx context.Context, id ResultID) ([]ResultAudit, error) {
	return c.Repo.AuditTrail(ctx, id)
}

func (c *Controller) completedRow(ctx context.Context, s CalculationStore, id ResultID) (*TipCalculationResult, error) {
	row, err := s.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	calc, err := s.GetCalculation(ctx, row.CalculationID)
	if err != nil {
		return nil, err
	}
	if calc.Status != StatusCompleted {
		return nil, ErrCalculationNotCompleted
	}
	return row, nil
}

func (c *Controller) writeRow(ctx context.Context, s CalculationStore, prev, row TipCalculationResult, action ResultAction, actor string, out *TipCalculationResult) error {
	row.Version = prev.Version + 1
	row.UpdatedAt = c.Now()
	row.UpdatedBy = actor
	if err := s.UpdateResult(ctx, row, prev.Version); err != nil {
		return err
	}
	current := row
	if err := s.AppendAudit(ctx, ResultAudit{
		ID:        c.NewID(),
		ResultID:  row.ID,
		Action:    action,
		Actor:     actor,
		Previous:  prev,
		Current:   &current,
		Timestamp: row.UpdatedAt,
	}); err != nil {
		return err
	}
	*out = row
	c.Logger.Printf("[Calculation] result %s %s by %q (version %d)", row.ID, action, actor, row.Version)
	return nil
}
