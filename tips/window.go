package tips

import (
	"fmt"
	"sort"
)

// =============================================================================
// OPERATING WINDOW
// =============================================================================

// OperatingWindow is [Open, Close) in minutes from the start of the business day.
// Close may exceed MinutesPerDay for stores open past midnight.
type OperatingWindow struct {
	Open  Clock
	Close Clock
}

// Validate rejects empty or negative windows and windows longer than a day.
func (w OperatingWindow) Validate() error {
	if w.Open < 0 || w.Close <= w.Open || w.Close-w.Open > MinutesPerDay {
		return fmt.Errorf("%w: [%s, %s)", ErrInvalidWindow, w.Open, w.Close)
	}
	return nil
}

// Normalize places a wall-clock payment time on the business-day scale:
// a time before Open that lands inside the window one day later belongs to
// the after-midnight tail of the same business day.
func (w OperatingWindow) Normalize(t Clock) Clock {
	if t < w.Open && t+MinutesPerDay < w.Close {
		return t + MinutesPerDay
	}
	return t
}

// Contains reports whether the normalized time falls in the window.
func (w OperatingWindow) Contains(t Clock) bool {
	n := w.Normalize(t)
	return w.Open <= n && n < w.Close
}

// =============================================================================
// OFF-HOURS FILTER
// =============================================================================

// TransactionClass is the filter's verdict on one transaction.
type TransactionClass string

const (
	ClassInRange     TransactionClass = "in_range"
	ClassOutOfRange  TransactionClass = "out_of_range"
	ClassMissingTime TransactionClass = "missing_time"
)

// Classify checks a transaction's payment time against the window.
func (w OperatingWindow) Classify(tx TipTransaction) TransactionClass {
	if tx.PaymentTime == nil {
		return ClassMissingTime
	}
	if !w.Contains(*tx.PaymentTime) {
		return ClassOutOfRange
	}
	return ClassInRange
}

// InRangeTransaction is a transaction cleared for attribution, with its
// payment time on the business-day scale.
type InRangeTransaction struct {
	TipTransaction
	Instant Clock
}

// FilterTransactions splits transactions into those cleared for automatic
// attribution and exceptions for the rest. Corrected transactions go through
// the same check; a correction that is still out of range stays excluded.
func FilterTransactions(w OperatingWindow, txs []TipTransaction) ([]InRangeTransaction, ExceptionReport) {
	var (
		cleared []InRangeTransaction
		report  ExceptionReport
	)
	for _, tx := range txs {
		switch w.Classify(tx) {
		case ClassInRange:
			cleared = append(cleared, InRangeTransaction{TipTransaction: tx, Instant: w.Normalize(*tx.PaymentTime)})
		case ClassMissingTime:
			report.Add(Exception{
				Kind:     ExceptionMissingPaymentTime,
				RecordID: tx.ID,
				Date:     Day(tx.Date),
				Message:  fmt.Sprintf("tip of %s has no payment time", tx.Amount.StringFixed(2)),
			})
		case ClassOutOfRange:
			at := *tx.PaymentTime
			msg := fmt.Sprintf("payment time %s outside [%s, %s)", at, w.Open, w.Close)
			if tx.Adjusted && tx.OriginalPaymentTime != nil {
				msg += fmt.Sprintf(" (original %s)", *tx.OriginalPaymentTime)
			}
			report.Add(Exception{
				Kind:     ExceptionOutOfRange,
				RecordID: tx.ID,
				Date:     Day(tx.Date),
				At:       &at,
				Message:  msg,
			})
		}
	}
	sort.SliceStable(cleared, func(i, j int) bool {
		a, b := cleared[i], cleared[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Instant != b.Instant {
			return a.Instant < b.Instant
		}
		return a.ID < b.ID
	})
	return cleared, report
}
