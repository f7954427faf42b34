package tips

import (
	"fmt"
	"sort"
	"time"
)

// ExceptionKind classifies a condition that blocks completion.
type ExceptionKind string

const (
	// ExceptionIncompleteShift: a shift record is missing name, date, start, end or role.
	ExceptionIncompleteShift ExceptionKind = "input_incomplete"

	// ExceptionOutOfRange: a payment time falls outside the operating window.
	ExceptionOutOfRange ExceptionKind = "out_of_range_transaction"

	// ExceptionMissingPaymentTime: a transaction has no payment time yet.
	ExceptionMissingPaymentTime ExceptionKind = "missing_payment_time"

	// ExceptionNoCoverage: no complete shift covers the instant (or day, for cash).
	ExceptionNoCoverage ExceptionKind = "no_coverage"

	// ExceptionMissingPattern: the on-duty combination has no configured pattern.
	ExceptionMissingPattern ExceptionKind = "missing_pattern"

	// ExceptionUnattributableShare: a group with a nonzero share has no eligible employee.
	ExceptionUnattributableShare ExceptionKind = "unattributable_share"
)

// Exception identifies the record, transaction or pattern at fault.
type Exception struct {
	Kind     ExceptionKind
	RecordID string // shift, tip transaction or cash day id
	Date     time.Time
	At       *Clock
	Pattern  PatternID
	Group    RoleGroup
	Message  string
}

func (e Exception) String() string {
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.RecordID, e.Message)
}

// ExceptionReport collects every exception of one run.
type ExceptionReport struct {
	Items []Exception
}

func (r *ExceptionReport) Add(e Exception) { r.Items = append(r.Items, e) }

func (r *ExceptionReport) Merge(o ExceptionReport) {
	r.Items = append(r.Items, o.Items...)
}

func (r ExceptionReport) Empty() bool { return len(r.Items) == 0 }
func (r ExceptionReport) Len() int    { return len(r.Items) }

// Count returns how many exceptions of the given kind were found.
func (r ExceptionReport) Count(kind ExceptionKind) int {
	n := 0
	for _, e := range r.Items {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// ByKind returns the exceptions of the given kind.
func (r ExceptionReport) ByKind(kind ExceptionKind) []Exception {
	var out []Exception
	for _, e := range r.Items {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Sort orders the report by date, kind, then record id.
func (r *ExceptionReport) Sort() {
	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.RecordID != b.RecordID {
			return a.RecordID < b.RecordID
		}
		return a.Group < b.Group
	})
}
