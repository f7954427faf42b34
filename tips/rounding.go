/*
rounding.go - Largest-remainder rounding with zero leakage

PURPOSE:
  Converts exact per-employee shares into currency units so the rounded
  amounts sum to the pool total exactly.

ALGORITHM:
  1. Truncate (floor) every share to the currency unit
  2. leftover = target - sum(truncated), a whole number of units in [0, n]
  3. Give one unit each to the employees with the largest fractional
     remainders, ties broken by the TieBreaker (name ascending by default)

  Example: $100.00 across three equal shares of 33.333...
    floors: 33.33, 33.33, 33.33 -> leftover 0.01
    remainders equal -> tie-break by name -> "Ana" gets 33.34

TARGET:
  The target is the exact allocated pool rounded to the currency unit. With
  cent-denominated inputs and no unattributable shares it equals the exact
  pool. Any mismatch after allocation is a RoundingImbalanceError.
*/
package tips

import (
	"sort"

	"github.com/shopspring/decimal"
)

// tiePlaces is the precision at which remainders are compared. Division
// residue accumulates by at most 10^-divisionPlaces per split, so a period
// needs 10^8 splits before it can reach this precision and outrank the
// tie-break.
const tiePlaces = divisionPlaces - 8

// TieBreaker orders employees with equal remainders: true if a receives a
// leftover unit before b.
type TieBreaker func(a, b string) bool

// NameAscending is the default tie-break.
func NameAscending(a, b string) bool { return a < b }

// Rounder rounds pools to a fixed number of currency decimal places.
type Rounder struct {
	Places   int32
	TieBreak TieBreaker
}

// Allocate rounds the shares of one pool. It returns the rounded amounts and
// the rounded pool total they sum to.
func (r Rounder) Allocate(pool string, shares Shares, exact decimal.Decimal) (map[string]decimal.Decimal, decimal.Decimal, error) {
	tieBreak := r.TieBreak
	if tieBreak == nil {
		tieBreak = NameAscending
	}
	unit := decimal.New(1, -r.Places)
	target := exact.Round(r.Places)

	type entry struct {
		name      string
		floor     decimal.Decimal
		remainder decimal.Decimal
	}
	entries := make([]entry, 0, len(shares))
	floorSum := decimal.Zero
	for name, v := range shares {
		f := v.RoundFloor(r.Places)
		entries = append(entries, entry{name: name, floor: f, remainder: v.Sub(f).Round(tiePlaces)})
		floorSum = floorSum.Add(f)
	}

	leftover := target.Sub(floorSum)
	units := leftover.Div(unit)
	if !units.IsInteger() || units.IsNegative() || units.GreaterThan(decimal.NewFromInt(int64(len(entries)))) {
		return nil, decimal.Zero, &RoundingImbalanceError{Pool: pool, Expected: target, Actual: floorSum}
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].remainder.Cmp(entries[j].remainder); c != 0 {
			return c > 0
		}
		return tieBreak(entries[i].name, entries[j].name)
	})

	out := make(map[string]decimal.Decimal, len(entries))
	n := int(units.IntPart())
	total := decimal.Zero
	for i, e := range entries {
		v := e.floor
		if i < n {
			v = v.Add(unit)
		}
		out[e.name] = v
		total = total.Add(v)
	}

	if !total.Equal(target) {
		return nil, decimal.Zero, &RoundingImbalanceError{Pool: pool, Expected: target, Actual: total}
	}
	return out, target, nil
}
