// Package store provides an in-memory tips.Repository.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements tips.Repository. The one-processing-per-store rule is
// checked on every CreateCalculation, mirroring the SQL partial unique index.
type Memory struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	stores   map[tips.StoreID]tips.Store
	mappings map[tips.StoreID][]tips.RoleMapping
	patterns map[tips.StoreID][]tips.DistributionPattern
	shifts   map[string]tips.ShiftRecord
	tipTxs   map[string]tips.TipTransaction
	cash     map[string]tips.CashTipDay
	calcs    map[tips.CalculationID]tips.TipCalculation
	statuses map[tips.CalculationID]map[string]bool
	results  map[tips.ResultID]tips.TipCalculationResult
	audit    []tips.ResultAudit
}

func newMemoryData() *memoryData {
	return &memoryData{
		stores:   make(map[tips.StoreID]tips.Store),
		mappings: make(map[tips.StoreID][]tips.RoleMapping),
		patterns: make(map[tips.StoreID][]tips.DistributionPattern),
		shifts:   make(map[string]tips.ShiftRecord),
		tipTxs:   make(map[string]tips.TipTransaction),
		cash:     make(map[string]tips.CashTipDay),
		calcs:    make(map[tips.CalculationID]tips.TipCalculation),
		statuses: make(map[tips.CalculationID]map[string]bool),
		results:  make(map[tips.ResultID]tips.TipCalculationResult),
	}
}

func NewMemory() *Memory {
	return &Memory{data: newMemoryData()}
}

var _ tips.Repository = (*Memory)(nil)

// =============================================================================
// SEEDING (ingestion and configuration collaborators)
// =============================================================================

func (m *Memory) SaveStore(_ context.Context, s tips.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.stores[s.ID] = s
	return nil
}

func (m *Memory) SaveRoleMappings(_ context.Context, storeID tips.StoreID, mappings []tips.RoleMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.mappings[storeID] = append([]tips.RoleMapping(nil), mappings...)
	return nil
}

func (m *Memory) SavePatterns(_ context.Context, storeID tips.StoreID, patterns []tips.DistributionPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.patterns[storeID] = append([]tips.DistributionPattern(nil), patterns...)
	return nil
}

func (m *Memory) SaveShift(_ context.Context, s tips.ShiftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.shifts[s.ID] = s
	return nil
}

func (m *Memory) DeleteShift(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.shifts, id)
	return nil
}

func (m *Memory) SaveCashTipDay(_ context.Context, cd tips.CashTipDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.cash[cd.ID] = cd
	return nil
}

// =============================================================================
// INPUT SOURCE
// =============================================================================

func (m *Memory) GetStore(_ context.Context, id tips.StoreID) (*tips.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data.stores[id]
	if !ok {
		return nil, tips.ErrStoreNotFound
	}
	return &s, nil
}

func (m *Memory) RoleMappings(_ context.Context, storeID tips.StoreID) ([]tips.RoleMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]tips.RoleMapping(nil), m.data.mappings[storeID]...), nil
}

func (m *Memory) Patterns(_ context.Context, storeID tips.StoreID) ([]tips.DistributionPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]tips.DistributionPattern(nil), m.data.patterns[storeID]...), nil
}

func (m *Memory) Shifts(_ context.Context, storeID tips.StoreID, period tips.Period) ([]tips.ShiftRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tips.ShiftRecord
	for _, s := range m.data.shifts {
		if s.StoreID != storeID {
			continue
		}
		if s.Date == nil || period.Contains(*s.Date) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) TipTransactions(_ context.Context, storeID tips.StoreID, period tips.Period) ([]tips.TipTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tips.TipTransaction
	for _, tx := range m.data.tipTxs {
		if tx.StoreID == storeID && period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CashTipDays(_ context.Context, storeID tips.StoreID, period tips.Period) ([]tips.CashTipDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tips.CashTipDay
	for _, cd := range m.data.cash {
		if cd.StoreID == storeID && period.Contains(cd.Date) {
			out = append(out, cd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (m *Memory) GetTipTransaction(_ context.Context, id string) (*tips.TipTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.data.tipTxs[id]
	if !ok {
		return nil, tips.ErrTransactionNotFound
	}
	return &tx, nil
}

func (m *Memory) SaveTipTransaction(_ context.Context, tx tips.TipTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.tipTxs[tx.ID] = tx
	return nil
}

// =============================================================================
// CALCULATION STORE (locked wrappers over memoryData)
// =============================================================================

func (m *Memory) CreateCalculation(ctx context.Context, calc tips.TipCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.CreateCalculation(ctx, calc)
}

func (m *Memory) GetCalculation(ctx context.Context, id tips.CalculationID) (*tips.TipCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetCalculation(ctx, id)
}

func (m *Memory) ActiveCalculation(ctx context.Context, storeID tips.StoreID) (*tips.TipCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ActiveCalculation(ctx, storeID)
}

func (m *Memory) DeleteCalculation(ctx context.Context, id tips.CalculationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.DeleteCalculation(ctx, id)
}

func (m *Memory) MarkCompleted(ctx context.Context, calc tips.TipCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.MarkCompleted(ctx, calc)
}

func (m *Memory) TipStatuses(ctx context.Context, calcID tips.CalculationID) ([]tips.EmployeeTipStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.TipStatuses(ctx, calcID)
}

func (m *Memory) SetTipStatus(ctx context.Context, st tips.EmployeeTipStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.SetTipStatus(ctx, st)
}

func (m *Memory) ReplaceResults(ctx context.Context, calcID tips.CalculationID, rows []tips.TipCalculationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.ReplaceResults(ctx, calcID, rows)
}

func (m *Memory) Results(ctx context.Context, calcID tips.CalculationID) ([]tips.TipCalculationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Results(ctx, calcID)
}

func (m *Memory) GetResult(ctx context.Context, id tips.ResultID) (*tips.TipCalculationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetResult(ctx, id)
}

func (m *Memory) UpdateResult(ctx context.Context, row tips.TipCalculationResult, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.UpdateResult(ctx, row, expectedVersion)
}

func (m *Memory) DeleteResult(ctx context.Context, id tips.ResultID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.DeleteResult(ctx, id)
}

func (m *Memory) AppendAudit(ctx context.Context, entry tips.ResultAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.AppendAudit(ctx, entry)
}

func (m *Memory) AuditTrail(ctx context.Context, id tips.ResultID) ([]tips.ResultAudit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.AuditTrail(ctx, id)
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(tips.CalculationStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(m.data); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// =============================================================================
// UNLOCKED IMPLEMENTATION
// =============================================================================

func (d *memoryData) CreateCalculation(_ context.Context, calc tips.TipCalculation) error {
	if calc.Status == tips.StatusProcessing {
		for _, c := range d.calcs {
			if c.StoreID == calc.StoreID && c.Status == tips.StatusProcessing {
				return &tips.ActiveCalculationError{StoreID: calc.StoreID, Existing: c.ID}
			}
		}
	}
	d.calcs[calc.ID] = calc
	return nil
}

func (d *memoryData) GetCalculation(_ context.Context, id tips.CalculationID) (*tips.TipCalculation, error) {
	c, ok := d.calcs[id]
	if !ok {
		return nil, tips.ErrCalculationNotFound
	}
	return &c, nil
}

func (d *memoryData) ActiveCalculation(_ context.Context, storeID tips.StoreID) (*tips.TipCalculation, error) {
	for _, c := range d.calcs {
		if c.StoreID == storeID && c.Status == tips.StatusProcessing {
			return &c, nil
		}
	}
	return nil, nil
}

func (d *memoryData) DeleteCalculation(_ context.Context, id tips.CalculationID) error {
	delete(d.calcs, id)
	delete(d.statuses, id)
	for rid, r := range d.results {
		if r.CalculationID == id {
			delete(d.results, rid)
		}
	}
	return nil
}

func (d *memoryData) MarkCompleted(_ context.Context, calc tips.TipCalculation) error {
	c, ok := d.calcs[calc.ID]
	if !ok {
		return tips.ErrCalculationNotFound
	}
	if c.Status != tips.StatusProcessing {
		return tips.ErrCalculationCompleted
	}
	c.Status = tips.StatusCompleted
	c.CompletedAt = calc.CompletedAt
	d.calcs[calc.ID] = c
	return nil
}

func (d *memoryData) TipStatuses(_ context.Context, calcID tips.CalculationID) ([]tips.EmployeeTipStatus, error) {
	var out []tips.EmployeeTipStatus
	for name, tipped := range d.statuses[calcID] {
		out = append(out, tips.EmployeeTipStatus{CalculationID: calcID, Employee: name, Tipped: tipped})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Employee < out[j].Employee })
	return out, nil
}

func (d *memoryData) SetTipStatus(_ context.Context, st tips.EmployeeTipStatus) error {
	if _, ok := d.calcs[st.CalculationID]; !ok {
		return tips.ErrCalculationNotFound
	}
	if d.statuses[st.CalculationID] == nil {
		d.statuses[st.CalculationID] = make(map[string]bool)
	}
	d.statuses[st.CalculationID][st.Employee] = st.Tipped
	return nil
}

func (d *memoryData) ReplaceResults(_ context.Context, calcID tips.CalculationID, rows []tips.TipCalculationResult) error {
	for id, r := range d.results {
		if r.CalculationID == calcID {
			delete(d.results, id)
		}
	}
	for _, r := range rows {
		d.results[r.ID] = r
	}
	return nil
}

func (d *memoryData) Results(_ context.Context, calcID tips.CalculationID) ([]tips.TipCalculationResult, error) {
	var out []tips.TipCalculationResult
	for _, r := range d.results {
		if r.CalculationID == calcID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Employee < out[j].Employee })
	return out, nil
}

func (d *memoryData) GetResult(_ context.Context, id tips.ResultID) (*tips.TipCalculationResult, error) {
	r, ok := d.results[id]
	if !ok {
		return nil, tips.ErrResultNotFound
	}
	return &r, nil
}

func (d *memoryData) UpdateResult(_ context.Context, row tips.TipCalculationResult, expectedVersion int) error {
	cur, ok := d.results[row.ID]
	if !ok {
		return tips.ErrResultNotFound
	}
	if cur.Version != expectedVersion {
		return tips.ErrConcurrentModification
	}
	d.results[row.ID] = row
	return nil
}

func (d *memoryData) DeleteResult(_ context.Context, id tips.ResultID) error {
	delete(d.results, id)
	return nil
}

func (d *memoryData) AppendAudit(_ context.Context, entry tips.ResultAudit) error {
	d.audit = append(d.audit, entry)
	return nil
}

func (d *memoryData) AuditTrail(_ context.Context, id tips.ResultID) ([]tips.ResultAudit, error) {
	var out []tips.ResultAudit
	for _, a := range d.audit {
		if a.ResultID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.stores {
		c.stores[k] = v
	}
	for k, v := range d.mappings {
		c.mappings[k] = append([]tips.RoleMapping(nil), v...)
	}
	for k, v := range d.patterns {
		c.patterns[k] = append([]tips.DistributionPattern(nil), v...)
	}
	for k, v := range d.shifts {
		c.shifts[k] = v
	}
	for k, v := range d.tipTxs {
		c.tipTxs[k] = v
	}
	for k, v := range d.cash {
		c.cash[k] = v
	}
	for k, v := range d.calcs {
		c.calcs[k] = v
	}
	for k, v := range d.statuses {
		inner := make(map[string]bool, len(v))
		for n, t := range v {
			inner[n] = t
		}
		c.statuses[k] = inner
	}
	for k, v := range d.results {
		c.results[k] = v
	}
	c.audit = append([]tips.ResultAudit(nil), d.audit...)
	return c
}
