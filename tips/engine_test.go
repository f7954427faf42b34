package tips_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const storeID tips.StoreID = "store-1"

var monday = tips.NewDate(2025, time.January, 6)

func testStore() tips.Store {
	return tips.Store{
		ID:           storeID,
		Abbreviation: "DT",
		Name:         "Downtown",
		BeforeHours:  tips.MustParseClock("08:00"),
		AfterHours:   tips.MustParseClock("23:00"),
	}
}

func testPeriod() tips.Period {
	return tips.Period{Start: monday, End: monday.AddDate(0, 0, 6)}
}

func testMappings() []tips.RoleMapping {
	return []tips.RoleMapping{
		{StoreID: storeID, Group: tips.RoleFront, Label: "Server", TraineeLabel: "Server Trainee", TraineePercentage: decimal.NewFromInt(50)},
		{StoreID: storeID, Group: tips.RoleBack, Label: "Cook", TraineePercentage: decimal.Zero},
		{StoreID: storeID, Group: tips.RoleFloater, Label: "Busser", TraineePercentage: decimal.Zero},
	}
}

func pattern(pcts map[tips.RoleGroup]int64) tips.DistributionPattern {
	p := tips.DistributionPattern{StoreID: storeID, Percentages: make(map[tips.RoleGroup]decimal.Decimal)}
	for g, v := range pcts {
		p.ID = p.ID.With(g)
		p.Percentages[g] = decimal.NewFromInt(v)
	}
	return p
}

func testPatterns() []tips.DistributionPattern {
	F, B, L := tips.RoleFront, tips.RoleBack, tips.RoleFloater
	return []tips.DistributionPattern{
		pattern(map[tips.RoleGroup]int64{F: 100}),
		pattern(map[tips.RoleGroup]int64{B: 100}),
		pattern(map[tips.RoleGroup]int64{L: 100}),
		pattern(map[tips.RoleGroup]int64{F: 70, B: 30}),
		pattern(map[tips.RoleGroup]int64{F: 80, L: 20}),
		pattern(map[tips.RoleGroup]int64{B: 80, L: 20}),
		pattern(map[tips.RoleGroup]int64{F: 70, B: 20, L: 10}),
	}
}

func shift(id, name, role, start, end string) tips.ShiftRecord {
	d := monday
	return tips.ShiftRecord{
		ID:               id,
		StoreID:          storeID,
		Name:             name,
		Date:             &d,
		Start:            tips.ClockPtr(start),
		End:              tips.ClockPtr(end),
		Role:             role,
		ImportedComplete: true,
	}
}

func tip(id, at, amount string) tips.TipTransaction {
	tx := tips.TipTransaction{
		ID:      id,
		StoreID: storeID,
		Date:    monday,
		Amount:  decimal.RequireFromString(amount),
	}
	if at != "" {
		tx.PaymentTime = tips.ClockPtr(at)
	}
	return tx
}

func cashDay(id, amount string) tips.CashTipDay {
	return tips.CashTipDay{ID: id, StoreID: storeID, Date: monday, Amount: decimal.RequireFromString(amount)}
}

func baseInput() tips.Input {
	return tips.Input{
		Store:    testStore(),
		Period:   testPeriod(),
		Mappings: testMappings(),
		Patterns: testPatterns(),
	}
}

func allocationFor(t *testing.T, out *tips.Output, name string) tips.Allocation {
	t.Helper()
	for _, a := range out.Allocations {
		if a.Employee == name {
			return a
		}
	}
	t.Fatalf("no allocation for %s", name)
	return tips.Allocation{}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func render(out *tips.Output) []string {
	lines := make([]string, 0, len(out.Allocations))
	for _, a := range out.Allocations {
		lines = append(lines, a.Employee+" "+a.Tips.StringFixed(2)+" "+a.CashTips.StringFixed(2))
	}
	return lines
}

func sumTips(out *tips.Output) (decimal.Decimal, decimal.Decimal) {
	tipsTotal, cashTotal := decimal.Zero, decimal.Zero
	for _, a := range out.Allocations {
		tipsTotal = tipsTotal.Add(a.Tips)
		cashTotal = cashTotal.Add(a.CashTips)
	}
	return tipsTotal, cashTotal
}

// =============================================================================
// ATTRIBUTION SCENARIOS
// =============================================================================

func TestEngine_SingleGroupOnDuty_GetsWholeTip(t *testing.T) {
	// GIVEN: Only FRONT on duty, FRONT pattern is 100%, one server
	// WHEN: A $40.94 tip is paid at noon
	// THEN: The server receives exactly $40.94

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00")}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "40.94")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.True(t, out.Exceptions.Empty())
	assertAmount(t, "40.94", allocationFor(t, out, "Ana").Tips)
	assertAmount(t, "40.94", out.TipPool)
}

func TestEngine_ThreeGroups_SplitByPattern(t *testing.T) {
	// GIVEN: Pattern FRONT 70 / BACK 20 / FLOATER 10, one employee per group
	// WHEN: A $100.00 tip is paid while all three are on duty
	// THEN: Shares are $70.00 / $20.00 / $10.00

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Cook", "09:00", "17:00"),
		shift("s3", "Cal", "Busser", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "100.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assertAmount(t, "70.00", allocationFor(t, out, "Ana").Tips)
	assertAmount(t, "20.00", allocationFor(t, out, "Ben").Tips)
	assertAmount(t, "10.00", allocationFor(t, out, "Cal").Tips)
}

func TestEngine_PresenceIsResolvedAtPaymentInstant(t *testing.T) {
	// GIVEN: FRONT all day, BACK only in the evening
	// WHEN: One tip at lunch and one at dinner
	// THEN: Lunch uses FRONT alone, dinner uses FRONT+BACK (70/30)

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "22:00"),
		shift("s2", "Ben", "Cook", "17:00", "22:00"),
	}
	in.Transactions = []tips.TipTransaction{
		tip("t1", "12:00", "10.00"),
		tip("t2", "19:00", "10.00"),
	}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assertAmount(t, "17.00", allocationFor(t, out, "Ana").Tips)
	assertAmount(t, "3.00", allocationFor(t, out, "Ben").Tips)
}

func TestEngine_ShiftEndIsExclusive(t *testing.T) {
	// GIVEN: BACK leaves at 17:00, FRONT stays
	// WHEN: A tip is paid at exactly 17:00
	// THEN: Only FRONT is present

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "22:00"),
		shift("s2", "Ben", "Cook", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "17:00", "10.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assertAmount(t, "10.00", allocationFor(t, out, "Ana").Tips)
	assertAmount(t, "0.00", allocationFor(t, out, "Ben").Tips)
}

func TestEngine_ZeroLengthShift_CoversNoInstant(t *testing.T) {
	// GIVEN: A cook's shift starts and ends at 12:00
	// WHEN: A tip is paid at 12:00
	// THEN: The shift is not read as overnight; FRONT alone takes the tip

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Cook", "12:00", "12:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "10.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.True(t, out.Exceptions.Empty())
	assertAmount(t, "10.00", allocationFor(t, out, "Ana").Tips)
	assertAmount(t, "10.00", out.TipPool)
}

func TestEngine_TraineeGetsHalfOfFullRatePeer(t *testing.T) {
	// GIVEN: A full-rate server and a 50% trainee on the same instant
	// WHEN: A $30.00 tip is paid
	// THEN: Full-rate gets $20.00, trainee gets $10.00 (exactly half)

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Tia", "Server Trainee", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "30.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	ana := allocationFor(t, out, "Ana").Tips
	tia := allocationFor(t, out, "Tia").Tips
	assertAmount(t, "20.00", ana)
	assertAmount(t, "10.00", tia)
	assert.True(t, tia.Mul(decimal.NewFromInt(2)).Equal(ana))
}

func TestEngine_StandardRoleNameAccepted(t *testing.T) {
	// GIVEN: A shift imported with the standard name "FRONT" instead of "Server"
	// WHEN: Running the engine
	// THEN: It resolves to the FRONT group

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "front", "09:00", "17:00")}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "5.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)
	assertAmount(t, "5.00", allocationFor(t, out, "Ana").Tips)
}

func TestEngine_OvernightShift_CoversAfterMidnightTail(t *testing.T) {
	// GIVEN: Store open 08:00 to 02:00 next day, server works 18:00-02:00
	// WHEN: A tip dated on the business day is paid at 01:00
	// THEN: The tip is in range and attributed to the overnight server

	in := baseInput()
	in.Store.AfterHours = tips.MustParseClock("26:00")
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "18:00", "02:00")}
	in.Transactions = []tips.TipTransaction{tip("t1", "01:00", "12.50")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.True(t, out.Exceptions.Empty(), "unexpected exceptions: %v", out.Exceptions.Items)
	assertAmount(t, "12.50", allocationFor(t, out, "Ana").Tips)
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

func TestEngine_OutOfRangeTransaction_NeverAttributed(t *testing.T) {
	// GIVEN: Window 08:00-23:00 and a tip paid at 07:30
	// WHEN: Running the engine
	// THEN: The tip is excluded and reported as out of range

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "07:00", "17:00")}
	in.Transactions = []tips.TipTransaction{
		tip("t1", "07:30", "25.00"),
		tip("t2", "12:00", "5.00"),
	}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Exceptions.Count(tips.ExceptionOutOfRange))
	assert.Equal(t, "t1", out.Exceptions.ByKind(tips.ExceptionOutOfRange)[0].RecordID)
	assertAmount(t, "5.00", allocationFor(t, out, "Ana").Tips)
	assertAmount(t, "5.00", out.TipPool)
}

func TestEngine_CorrectedTransaction_RevalidatedAndAttributed(t *testing.T) {
	// GIVEN: An out-of-range tip whose payment time is corrected to 12:00
	// WHEN: Running the engine
	// THEN: It is attributed and the original time is preserved

	tx := tip("t1", "07:30", "25.00")
	tx.CorrectPaymentTime(tips.MustParseClock("12:00"))

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00")}
	in.Transactions = []tips.TipTransaction{tx}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.True(t, tx.Adjusted)
	require.NotNil(t, tx.OriginalPaymentTime)
	assert.Equal(t, tips.MustParseClock("07:30"), *tx.OriginalPaymentTime)
	assert.True(t, out.Exceptions.Empty())
	assertAmount(t, "25.00", allocationFor(t, out, "Ana").Tips)
}

func TestEngine_CorrectionStillOutOfRange_StaysExcluded(t *testing.T) {
	// GIVEN: A correction that moves the payment time to 23:30 (still outside)
	// WHEN: Running the engine
	// THEN: It remains an out-of-range exception

	tx := tip("t1", "07:30", "25.00")
	tx.CorrectPaymentTime(tips.MustParseClock("23:30"))

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00")}
	in.Transactions = []tips.TipTransaction{tx}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Exceptions.Count(tips.ExceptionOutOfRange))
	assert.Contains(t, out.Exceptions.Items[0].Message, "original 07:30")
	assertAmount(t, "0.00", out.TipPool)
}

func TestEngine_MissingPaymentTime_Reported(t *testing.T) {
	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00")}
	in.Transactions = []tips.TipTransaction{tip("t1", "", "8.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Exceptions.Count(tips.ExceptionMissingPaymentTime))
	assertAmount(t, "0.00", out.TipPool)
}

func TestEngine_NobodyOnDuty_NoCoverageException(t *testing.T) {
	// GIVEN: Shifts end at 17:00
	// WHEN: A tip is paid at 20:00 (in window, nobody scheduled)
	// THEN: No default is applied; a no-coverage exception is raised

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00")}
	in.Transactions = []tips.TipTransaction{tip("t1", "20:00", "15.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	require.Equal(t, 1, out.Exceptions.Count(tips.ExceptionNoCoverage))
	ex := out.Exceptions.ByKind(tips.ExceptionNoCoverage)[0]
	assert.Equal(t, "t1", ex.RecordID)
	require.NotNil(t, ex.At)
	assert.Equal(t, tips.MustParseClock("20:00"), *ex.At)
	assertAmount(t, "0.00", out.TipPool)
}

func TestEngine_MissingPattern_Reported(t *testing.T) {
	// GIVEN: No FRONT+BACK pattern configured
	// WHEN: A tip is paid while FRONT and BACK are on duty
	// THEN: A missing-pattern exception names the combination

	in := baseInput()
	in.Patterns = in.Patterns[:3]
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Cook", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "10.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	require.Equal(t, 1, out.Exceptions.Count(tips.ExceptionMissingPattern))
	assert.Equal(t, tips.PatternOf(tips.RoleFront, tips.RoleBack), out.Exceptions.Items[0].Pattern)
}

func TestEngine_UntippedOnlyMember_UnattributableShare(t *testing.T) {
	// GIVEN: The only FRONT employee is marked untipped
	// WHEN: A tip is paid under the FRONT+BACK pattern
	// THEN: BACK receives its 30%, FRONT's 70% is reported unattributable

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Mia", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Cook", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "10.00")}
	in.Statuses = []tips.EmployeeTipStatus{{Employee: "Mia", Tipped: false}}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	require.Equal(t, 1, out.Exceptions.Count(tips.ExceptionUnattributableShare))
	assert.Equal(t, tips.RoleFront, out.Exceptions.Items[0].Group)
	assertAmount(t, "3.00", allocationFor(t, out, "Ben").Tips)
	assertAmount(t, "0.00", allocationFor(t, out, "Mia").Tips)
	assertAmount(t, "3.00", out.TipPool)
}

func TestEngine_IncompleteShift_ExcludedAndReported(t *testing.T) {
	// GIVEN: One complete server and one record missing its role
	// WHEN: Running the engine
	// THEN: The incomplete record is reported and takes no part in attribution

	incomplete := shift("s2", "Bo", "", "09:00", "17:00")
	incomplete.ImportedComplete = false

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00"), incomplete}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "9.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	require.Equal(t, 1, out.Exceptions.Count(tips.ExceptionIncompleteShift))
	assert.Contains(t, out.Exceptions.Items[0].Message, "role")
	assertAmount(t, "9.00", allocationFor(t, out, "Ana").Tips)
	for _, a := range out.Allocations {
		assert.NotEqual(t, "Bo", a.Employee)
	}
}

func TestEngine_UnmappedRole_AbortsWithEveryLabel(t *testing.T) {
	// GIVEN: Two shifts with labels that have no mapping
	// WHEN: Running the engine
	// THEN: The run fails with ErrUnmappedRole listing both labels

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Host", "09:00", "17:00"),
		shift("s2", "Ben", "Dishwasher", "09:00", "17:00"),
		shift("s3", "Cal", "Host", "09:00", "17:00"),
	}

	out, err := tips.NewEngine().Run(in)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, tips.ErrUnmappedRole)

	var unmapped *tips.UnmappedRoleError
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, []string{"Dishwasher", "Host"}, unmapped.Labels)
	assert.True(t, tips.IsClientError(err))
}

func TestEngine_InvalidWindow_Aborts(t *testing.T) {
	in := baseInput()
	in.Store.AfterHours = in.Store.BeforeHours

	_, err := tips.NewEngine().Run(in)
	assert.ErrorIs(t, err, tips.ErrInvalidWindow)
}

// =============================================================================
// CONSERVATION
// =============================================================================

func TestEngine_Conservation_ManyTransactions(t *testing.T) {
	// GIVEN: Uneven amounts split across full-rate staff and a trainee
	// WHEN: Running the engine
	// THEN: Rounded tips sum exactly to the attributed pool and to the input total

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "22:00"),
		shift("s2", "Ben", "Server", "09:00", "22:00"),
		shift("s3", "Cal", "Server", "11:00", "22:00"),
		shift("s4", "Tia", "Server Trainee", "09:00", "22:00"),
		shift("s5", "Dee", "Cook", "16:00", "22:00"),
		shift("s6", "Eli", "Busser", "18:00", "22:00"),
	}
	amounts := []string{"10.01", "7.77", "3.33", "0.01", "99.99", "12.34", "0.05"}
	times := []string{"09:15", "10:00", "12:00", "13:37", "17:00", "19:45", "21:59"}
	total := decimal.Zero
	for i := range amounts {
		in.Transactions = append(in.Transactions, tip("t"+times[i], times[i], amounts[i]))
		total = total.Add(decimal.RequireFromString(amounts[i]))
	}
	in.CashDays = []tips.CashTipDay{cashDay("c1", "123.45")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)
	require.True(t, out.Exceptions.Empty(), "unexpected exceptions: %v", out.Exceptions.Items)

	tipsTotal, cashTotal := sumTips(out)
	assert.True(t, tipsTotal.Equal(out.TipPool), "tips %s != pool %s", tipsTotal, out.TipPool)
	assert.True(t, tipsTotal.Equal(total), "tips %s != input %s", tipsTotal, total)
	assert.True(t, cashTotal.Equal(out.CashPool))
	assertAmount(t, "123.45", cashTotal)
}

func TestEngine_Deterministic(t *testing.T) {
	// GIVEN: The same input twice, with shifts shuffled
	// WHEN: Running the engine
	// THEN: Allocations are identical

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Server", "09:00", "17:00"),
		shift("s3", "Cal", "Server", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "100.00"), tip("t2", "13:00", "0.02")}

	first, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	in.Shifts = []tips.ShiftRecord{in.Shifts[2], in.Shifts[0], in.Shifts[1]}
	second, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.Equal(t, render(first), render(second))
}

func TestEngine_ShiftsOutsidePeriod_Ignored(t *testing.T) {
	in := baseInput()
	other := shift("s2", "Old", "Server", "09:00", "17:00")
	before := monday.AddDate(0, 0, -1)
	other.Date = &before
	in.Shifts = []tips.ShiftRecord{shift("s1", "Ana", "Server", "09:00", "17:00"), other}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	require.Len(t, out.Allocations, 1)
	assert.Equal(t, "Ana", out.Allocations[0].Employee)
}

func TestEngine_EqualSplit_ExtraCentToFirstName(t *testing.T) {
	// GIVEN: Three servers on duty
	// WHEN: A $100.00 tip is split three ways
	// THEN: Ana gets 33.34, Ben and Cal 33.33, summing to 100.00

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s3", "Cal", "Server", "09:00", "17:00"),
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Server", "09:00", "17:00"),
	}
	in.Transactions = []tips.TipTransaction{tip("t1", "12:00", "100.00")}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ana 33.34 0.00", "Ben 33.33 0.00", "Cal 33.33 0.00"}, render(out))
}

func TestEngine_EqualSplit_ManyTransactionsKeepNameTieBreak(t *testing.T) {
	// GIVEN: Three servers on duty all day
	// WHEN: 151 tips of $10.00 are each split three ways
	// THEN: The equal exact totals still tie, so Ana gets the extra cent

	in := baseInput()
	in.Shifts = []tips.ShiftRecord{
		shift("s3", "Cal", "Server", "09:00", "17:00"),
		shift("s1", "Ana", "Server", "09:00", "17:00"),
		shift("s2", "Ben", "Server", "09:00", "17:00"),
	}
	for i := 0; i < 151; i++ {
		at := tips.NewClock(10+i%6, i%60).String()
		in.Transactions = append(in.Transactions, tip(fmt.Sprintf("t%03d", i), at, "10.00"))
	}

	out, err := tips.NewEngine().Run(in)
	require.NoError(t, err)
	require.True(t, out.Exceptions.Empty())

	assert.Equal(t, []string{"Ana 503.34 0.00", "Ben 503.33 0.00", "Cal 503.33 0.00"}, render(out))
	tipsTotal, _ := sumTips(out)
	assert.True(t, decimal.RequireFromString("1510.00").Equal(tipsTotal))
}
