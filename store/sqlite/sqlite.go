/*
Package sqlite provides a SQLite-backed implementation of tips.Repository.

PURPOSE:
  Persists store configuration, imported inputs, calculations, results and
  the result audit trail. In production the same schema applies to
  PostgreSQL with minor dialect differences.

INTERFACES IMPLEMENTED:
  tips.InputSource:        Configuration and imported inputs
  tips.TxCalculationStore: Calculations, statuses, results, audit
  tips.TransactionStore:   Tip transaction correction

KEY TABLES:
  stores, role_mappings, distribution_patterns: per-store configuration
  shift_records, tip_transactions, cash_tip_days: imported inputs
  tip_calculations:        one row per pay-period run
  employee_tip_statuses:   per-calculation tipped/untipped flags
  tip_calculation_results: one versioned row per employee
  result_audit:            append-only history of post-completion edits

INDEXES:
  - idx_one_processing_per_store: partial unique index allowing at most one
    processing calculation per store. This is the authority for the rule;
    no in-process lock is relied on.
  - idx_results_calc_employee: one result row per employee per calculation

AMOUNTS:
  Decimals are stored as TEXT through decimal.Decimal's Scanner/Valuer, so
  no value ever passes through float64.

CONCURRENCY:
  sync.RWMutex serializes writers and the pool is capped at one connection,
  which also keeps ":memory:" databases shared across calls.

USAGE:
  store, err := sqlite.New("./data/tips.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ctrl := tips.NewController(store, tips.NewEngine(), logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - tips/store.go: Interface definitions
  - tips/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/tips"
)

// Store implements tips.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ tips.Repository = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Store configuration
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		abbreviation TEXT NOT NULL,
		name TEXT NOT NULL,
		before_hours INTEGER NOT NULL,
		after_hours INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS role_mappings (
		store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		role_group INTEGER NOT NULL,
		label TEXT NOT NULL,
		trainee_label TEXT,
		trainee_percentage TEXT NOT NULL,
		PRIMARY KEY (store_id, role_group)
	);

	CREATE TABLE IF NOT EXISTS distribution_patterns (
		store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		pattern_id INTEGER NOT NULL,
		percentages_json TEXT NOT NULL,
		PRIMARY KEY (store_id, pattern_id)
	);

	-- Imported inputs. Optional shift fields stay NULL until edited.
	CREATE TABLE IF NOT EXISTS shift_records (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		name TEXT NOT NULL DEFAULT '',
		shift_date TEXT,
		start_minute INTEGER,
		end_minute INTEGER,
		role TEXT NOT NULL DEFAULT '',
		imported_complete INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_store_date
		ON shift_records(store_id, shift_date);

	CREATE TABLE IF NOT EXISTS tip_transactions (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		tx_date TEXT NOT NULL,
		payment_minute INTEGER,
		amount TEXT NOT NULL,
		adjusted INTEGER NOT NULL DEFAULT 0,
		original_payment_minute INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_tip_transactions_store_date
		ON tip_transactions(store_id, tx_date);

	CREATE TABLE IF NOT EXISTS cash_tip_days (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
		cash_date TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cash_tip_days_store_date
		ON cash_tip_days(store_id, cash_date);

	-- Calculations
	CREATE TABLE IF NOT EXISTS tip_calculations (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT
	);

	-- CRITICAL: at most one processing calculation per store
	CREATE UNIQUE INDEX IF NOT EXISTS idx_one_processing_per_store
		ON tip_calculations(store_id)
		WHERE status = 'processing';

	CREATE TABLE IF NOT EXISTS employee_tip_statuses (
		calculation_id TEXT NOT NULL REFERENCES tip_calculations(id) ON DELETE CASCADE,
		employee TEXT NOT NULL,
		tipped INTEGER NOT NULL,
		PRIMARY KEY (calculation_id, employee)
	);

	CREATE TABLE IF NOT EXISTS tip_calculation_results (
		id TEXT PRIMARY KEY,
		calculation_id TEXT NOT NULL REFERENCES tip_calculations(id) ON DELETE CASCADE,
		employee TEXT NOT NULL,
		tips TEXT NOT NULL,
		cash_tips TEXT NOT NULL,
		archived INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		updated_by TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_results_calc_employee
		ON tip_calculation_results(calculation_id, employee);

	-- Audit survives deletion of the row it describes
	CREATE TABLE IF NOT EXISTS result_audit (
		id TEXT PRIMARY KEY,
		result_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		previous_json TEXT NOT NULL,
		current_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_result_audit_result
		ON result_audit(result_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tips.CalculationStore) error) error {
	return s.inTx(ctx, func(q querier) error {
		return fn(calcStore{q: q})
	})
}

// inTx runs fn against a single transaction under the write lock.
func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// STORE CONFIGURATION
// =============================================================================

// SaveConfig replaces a store's window, role mappings and patterns atomically.
func (s *Store) SaveConfig(ctx context.Context, store tips.Store, mappings []tips.RoleMapping, patterns []tips.DistributionPattern) error {
	return s.inTx(ctx, func(q querier) error {
		if err := saveStore(ctx, q, store); err != nil {
			return err
		}
		if err := replaceMappings(ctx, q, store.ID, mappings); err != nil {
			return err
		}
		return replacePatterns(ctx, q, store.ID, patterns)
	})
}

// SaveStore upserts the store row only.
func (s *Store) SaveStore(ctx context.Context, store tips.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveStore(ctx, s.db, store)
}

func saveStore(ctx context.Context, q querier, store tips.Store) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO stores (id, abbreviation, name, before_hours, after_hours, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			abbreviation = excluded.abbreviation,
			name = excluded.name,
			before_hours = excluded.before_hours,
			after_hours = excluded.after_hours,
			updated_at = excluded.updated_at
	`, store.ID, store.Abbreviation, store.Name, int(store.BeforeHours), int(store.AfterHours),
		formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}

func replaceMappings(ctx context.Context, q querier, storeID tips.StoreID, mappings []tips.RoleMapping) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM role_mappings WHERE store_id = ?", storeID); err != nil {
		return err
	}
	for _, m := range mappings {
		_, err := q.ExecContext(ctx, `
			INSERT INTO role_mappings (store_id, role_group, label, trainee_label, trainee_percentage)
			VALUES (?, ?, ?, ?, ?)
		`, storeID, int(m.Group), m.Label, nullString(m.TraineeLabel), m.TraineePercentage)
		if err != nil {
			return fmt.Errorf("failed to save role mapping %s: %w", m.Group, err)
		}
	}
	return nil
}

func replacePatterns(ctx context.Context, q querier, storeID tips.StoreID, patterns []tips.DistributionPattern) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM distribution_patterns WHERE store_id = ?", storeID); err != nil {
		return err
	}
	for _, p := range patterns {
		pcts := make(map[string]decimal.Decimal, len(p.Percentages))
		for g, v := range p.Percentages {
			pcts[g.String()] = v
		}
		raw, err := json.Marshal(pcts)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO distribution_patterns (store_id, pattern_id, percentages_json)
			VALUES (?, ?, ?)
		`, storeID, int(p.ID), string(raw))
		if err != nil {
			return fmt.Errorf("failed to save pattern %s: %w", p.ID, err)
		}
	}
	return nil
}

// GetStore retrieves a store by ID.
func (s *Store) GetStore(ctx context.Context, id tips.StoreID) (*tips.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st tips.Store
	var before, after int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, abbreviation, name, before_hours, after_hours FROM stores WHERE id = ?", id,
	).Scan(&st.ID, &st.Abbreviation, &st.Name, &before, &after)
	if err == sql.ErrNoRows {
		return nil, tips.ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}
	st.BeforeHours = tips.Clock(before)
	st.AfterHours = tips.Clock(after)
	return &st, nil
}

// ListStores returns all stores ordered by abbreviation.
func (s *Store) ListStores(ctx context.Context) ([]tips.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, abbreviation, name, before_hours, after_hours FROM stores ORDER BY abbreviation, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.Store
	for rows.Next() {
		var st tips.Store
		var before, after int
		if err := rows.Scan(&st.ID, &st.Abbreviation, &st.Name, &before, &after); err != nil {
			return nil, err
		}
		st.BeforeHours = tips.Clock(before)
		st.AfterHours = tips.Clock(after)
		out = append(out, st)
	}
	return out, rows.Err()
}

// RoleMappings returns the store's mappings in group order.
func (s *Store) RoleMappings(ctx context.Context, storeID tips.StoreID) ([]tips.RoleMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT role_group, label, trainee_label, trainee_percentage
		FROM role_mappings WHERE store_id = ? ORDER BY role_group
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.RoleMapping
	for rows.Next() {
		m := tips.RoleMapping{StoreID: storeID}
		var group int
		var trainee sql.NullString
		if err := rows.Scan(&group, &m.Label, &trainee, &m.TraineePercentage); err != nil {
			return nil, err
		}
		m.Group = tips.RoleGroup(group)
		m.TraineeLabel = trainee.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// Patterns returns the store's distribution patterns in id order.
func (s *Store) Patterns(ctx context.Context, storeID tips.StoreID) ([]tips.DistributionPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern_id, percentages_json
		FROM distribution_patterns WHERE store_id = ? ORDER BY pattern_id
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.DistributionPattern
	for rows.Next() {
		var id int
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var pcts map[string]decimal.Decimal
		if err := json.Unmarshal([]byte(raw), &pcts); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", id, err)
		}
		p := tips.DistributionPattern{StoreID: storeID, ID: tips.PatternID(id), Percentages: make(map[tips.RoleGroup]decimal.Decimal)}
		for name, v := range pcts {
			g, ok := tips.ParseRoleGroup(name)
			if !ok {
				return nil, fmt.Errorf("pattern %d: unknown role group %q", id, name)
			}
			p.Percentages[g] = v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// SHIFT RECORDS
// =============================================================================

const shiftColumns = "id, store_id, name, shift_date, start_minute, end_minute, role, imported_complete, updated_at"

// SaveShift upserts a shift record.
func (s *Store) SaveShift(ctx context.Context, sh tips.ShiftRecord) error {
	return s.SaveShifts(ctx, []tips.ShiftRecord{sh})
}

// SaveShifts upserts a batch of shift records in one transaction. Either
// every row is saved or none is.
func (s *Store) SaveShifts(ctx context.Context, shifts []tips.ShiftRecord) error {
	return s.inTx(ctx, func(q querier) error {
		for _, sh := range shifts {
			if err := saveShift(ctx, q, sh); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveShift(ctx context.Context, q querier, sh tips.ShiftRecord) error {
	var date sql.NullString
	if sh.Date != nil {
		date = sql.NullString{String: tips.FormatDate(*sh.Date), Valid: true}
	}
	updated := sh.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO shift_records (`+shiftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			shift_date = excluded.shift_date,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			role = excluded.role,
			updated_at = excluded.updated_at
	`, sh.ID, sh.StoreID, sh.Name, date, nullClock(sh.Start), nullClock(sh.End), sh.Role,
		sh.ImportedComplete, formatTime(updated))
	if err != nil {
		return wrapSaveError("shift", sh.ID, err)
	}
	return nil
}

// GetShift retrieves a shift record by ID.
func (s *Store) GetShift(ctx context.Context, id string) (*tips.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+shiftColumns+" FROM shift_records WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	shifts, err := scanShifts(rows)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, tips.ErrShiftNotFound
	}
	return &shifts[0], nil
}

// DeleteShift removes a shift record.
func (s *Store) DeleteShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM shift_records WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tips.ErrShiftNotFound
	}
	return nil
}

// Shifts returns records dated in the period plus undated records.
func (s *Store) Shifts(ctx context.Context, storeID tips.StoreID, period tips.Period) ([]tips.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shiftColumns+` FROM shift_records
		WHERE store_id = ? AND (shift_date IS NULL OR shift_date BETWEEN ? AND ?)
		ORDER BY id
	`, storeID, tips.FormatDate(period.Start), tips.FormatDate(period.End))
	if err != nil {
		return nil, err
	}
	return scanShifts(rows)
}

func scanShifts(rows *sql.Rows) ([]tips.ShiftRecord, error) {
	defer rows.Close()

	var out []tips.ShiftRecord
	for rows.Next() {
		var sh tips.ShiftRecord
		var date sql.NullString
		var start, end sql.NullInt64
		var updated string
		if err := rows.Scan(&sh.ID, &sh.StoreID, &sh.Name, &date, &start, &end, &sh.Role,
			&sh.ImportedComplete, &updated); err != nil {
			return nil, err
		}
		if date.Valid {
			d, err := tips.ParseDate(date.String)
			if err != nil {
				return nil, fmt.Errorf("shift %s: %w", sh.ID, err)
			}
			sh.Date = &d
		}
		sh.Start = clockFrom(start)
		sh.End = clockFrom(end)
		sh.UpdatedAt = parseTime(updated)
		out = append(out, sh)
	}
	return out, rows.Err()
}

// =============================================================================
// TIP TRANSACTIONS AND CASH
// =============================================================================

const tipColumns = "id, store_id, tx_date, payment_minute, amount, adjusted, original_payment_minute"

// SaveTipTransaction upserts a tip transaction.
func (s *Store) SaveTipTransaction(ctx context.Context, tx tips.TipTransaction) error {
	return s.SaveTipTransactions(ctx, []tips.TipTransaction{tx})
}

// SaveTipTransactions upserts a batch of tip transactions in one transaction.
func (s *Store) SaveTipTransactions(ctx context.Context, txs []tips.TipTransaction) error {
	return s.inTx(ctx, func(q querier) error {
		for _, tx := range txs {
			if err := saveTipTransaction(ctx, q, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveTipTransaction(ctx context.Context, q querier, tx tips.TipTransaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tip_transactions (`+tipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tx_date = excluded.tx_date,
			payment_minute = excluded.payment_minute,
			amount = excluded.amount,
			adjusted = excluded.adjusted,
			original_payment_minute = excluded.original_payment_minute
	`, tx.ID, tx.StoreID, tips.FormatDate(tx.Date), nullClock(tx.PaymentTime), tx.Amount,
		tx.Adjusted, nullClock(tx.OriginalPaymentTime))
	if err != nil {
		return wrapSaveError("tip transaction", tx.ID, err)
	}
	return nil
}

// GetTipTransaction retrieves a tip transaction by ID.
func (s *Store) GetTipTransaction(ctx context.Context, id string) (*tips.TipTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+tipColumns+" FROM tip_transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	txs, err := scanTipTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, tips.ErrTransactionNotFound
	}
	return &txs[0], nil
}

// TipTransactions returns the store's transactions dated in the period.
func (s *Store) TipTransactions(ctx context.Context, storeID tips.StoreID, period tips.Period) ([]tips.TipTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tipColumns+` FROM tip_transactions
		WHERE store_id = ? AND tx_date BETWEEN ? AND ?
		ORDER BY id
	`, storeID, tips.FormatDate(period.Start), tips.FormatDate(period.End))
	if err != nil {
		return nil, err
	}
	return scanTipTransactions(rows)
}

func scanTipTransactions(rows *sql.Rows) ([]tips.TipTransaction, error) {
	defer rows.Close()

	var out []tips.TipTransaction
	for rows.Next() {
		var tx tips.TipTransaction
		var date string
		var at, original sql.NullInt64
		if err := rows.Scan(&tx.ID, &tx.StoreID, &date, &at, &tx.Amount, &tx.Adjusted, &original); err != nil {
			return nil, err
		}
		d, err := tips.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("tip transaction %s: %w", tx.ID, err)
		}
		tx.Date = d
		tx.PaymentTime = clockFrom(at)
		tx.OriginalPaymentTime = clockFrom(original)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SaveCashTipDay upserts a daily cash amount.
func (s *Store) SaveCashTipDay(ctx context.Context, cd tips.CashTipDay) error {
	return s.SaveCashTipDays(ctx, []tips.CashTipDay{cd})
}

// SaveCashTipDays upserts a batch of daily cash amounts in one transaction.
func (s *Store) SaveCashTipDays(ctx context.Context, days []tips.CashTipDay) error {
	return s.inTx(ctx, func(q querier) error {
		for _, cd := range days {
			if err := saveCashTipDay(ctx, q, cd); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveCashTipDay(ctx context.Context, q querier, cd tips.CashTipDay) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cash_tip_days (id, store_id, cash_date, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cash_date = excluded.cash_date,
			amount = excluded.amount
	`, cd.ID, cd.StoreID, tips.FormatDate(cd.Date), cd.Amount)
	if err != nil {
		return wrapSaveError("cash tips", cd.ID, err)
	}
	return nil
}

// CashTipDays returns the store's cash days in the period.
func (s *Store) CashTipDays(ctx context.Context, storeID tips.StoreID, period tips.Period) ([]tips.CashTipDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, cash_date, amount FROM cash_tip_days
		WHERE store_id = ? AND cash_date BETWEEN ? AND ?
		ORDER BY id
	`, storeID, tips.FormatDate(period.Start), tips.FormatDate(period.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.CashTipDay
	for rows.Next() {
		var cd tips.CashTipDay
		var date string
		if err := rows.Scan(&cd.ID, &cd.StoreID, &date, &cd.Amount); err != nil {
			return nil, err
		}
		if cd.Date, err = tips.ParseDate(date); err != nil {
			return nil, fmt.Errorf("cash tips %s: %w", cd.ID, err)
		}
		out = append(out, cd)
	}
	return out, rows.Err()
}

// =============================================================================
// CALCULATION STORE (locked wrappers over calcStore)
// =============================================================================

func (s *Store) CreateCalculation(ctx context.Context, calc tips.TipCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.CreateCalculation(ctx, calc)
}

func (s *Store) GetCalculation(ctx context.Context, id tips.CalculationID) (*tips.TipCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calcStore{q: s.db}.GetCalculation(ctx, id)
}

func (s *Store) ActiveCalculation(ctx context.Context, storeID tips.StoreID) (*tips.TipCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calcStore{q: s.db}.ActiveCalculation(ctx, storeID)
}

func (s *Store) DeleteCalculation(ctx context.Context, id tips.CalculationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.DeleteCalculation(ctx, id)
}

func (s *Store) MarkCompleted(ctx context.Context, calc tips.TipCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.MarkCompleted(ctx, calc)
}

func (s *Store) TipStatuses(ctx context.Context, calcID tips.CalculationID) ([]tips.EmployeeTipStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calcStore{q: s.db}.TipStatuses(ctx, calcID)
}

func (s *Store) SetTipStatus(ctx context.Context, st tips.EmployeeTipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.SetTipStatus(ctx, st)
}

func (s *Store) ReplaceResults(ctx context.Context, calcID tips.CalculationID, rows []tips.TipCalculationResult) error {
	return s.WithTx(ctx, func(cs tips.CalculationStore) error {
		return cs.ReplaceResults(ctx, calcID, rows)
	})
}

func (s *Store) Results(ctx context.Context, calcID tips.CalculationID) ([]tips.TipCalculationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calcStore{q: s.db}.Results(ctx, calcID)
}

func (s *Store) GetResult(ctx context.Context, id tips.ResultID) (*tips.TipCalculationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calcStore{q: s.db}.GetResult(ctx, id)
}

func (s *Store) UpdateResult(ctx context.Context, row tips.TipCalculationResult, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.UpdateResult(ctx, row, expectedVersion)
}

func (s *Store) DeleteResult(ctx context.Context, id tips.ResultID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.DeleteResult(ctx, id)
}

func (s *Store) AppendAudit(ctx context.Context, entry tips.ResultAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return calcStore{q: s.db}.AppendAudit(ctx, entry)
}

func (s *Store) AuditTrail(ctx context.Context, id tips.ResultID) ([]tips.ResultAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calcStore{q: s.db}.AuditTrail(ctx, id)
}

// =============================================================================
// CALC STORE - tips.CalculationStore over a querier (db or tx)
// =============================================================================

type calcStore struct {
	q querier
}

const calcColumns = "id, store_id, period_start, period_end, status, created_by, created_at, completed_at"

func (c calcStore) CreateCalculation(ctx context.Context, calc tips.TipCalculation) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO tip_calculations (`+calcColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, calc.ID, calc.StoreID, tips.FormatDate(calc.Period.Start), tips.FormatDate(calc.Period.End),
		string(calc.Status), calc.CreatedBy, formatTime(calc.CreatedAt), nullTime(calc.CompletedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			existing, _ := c.ActiveCalculation(ctx, calc.StoreID)
			e := &tips.ActiveCalculationError{StoreID: calc.StoreID}
			if existing != nil {
				e.Existing = existing.ID
			}
			return e
		}
		return fmt.Errorf("failed to create calculation: %w", err)
	}
	return nil
}

func (c calcStore) GetCalculation(ctx context.Context, id tips.CalculationID) (*tips.TipCalculation, error) {
	calcs, err := c.queryCalculations(ctx, "SELECT "+calcColumns+" FROM tip_calculations WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(calcs) == 0 {
		return nil, tips.ErrCalculationNotFound
	}
	return &calcs[0], nil
}

func (c calcStore) ActiveCalculation(ctx context.Context, storeID tips.StoreID) (*tips.TipCalculation, error) {
	calcs, err := c.queryCalculations(ctx,
		"SELECT "+calcColumns+" FROM tip_calculations WHERE store_id = ? AND status = ?",
		storeID, string(tips.StatusProcessing))
	if err != nil {
		return nil, err
	}
	if len(calcs) == 0 {
		return nil, nil
	}
	return &calcs[0], nil
}

func (c calcStore) queryCalculations(ctx context.Context, query string, args ...any) ([]tips.TipCalculation, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.TipCalculation
	for rows.Next() {
		var calc tips.TipCalculation
		var start, end, status, created string
		var completed sql.NullString
		if err := rows.Scan(&calc.ID, &calc.StoreID, &start, &end, &status, &calc.CreatedBy, &created, &completed); err != nil {
			return nil, err
		}
		if calc.Period.Start, err = tips.ParseDate(start); err != nil {
			return nil, err
		}
		if calc.Period.End, err = tips.ParseDate(end); err != nil {
			return nil, err
		}
		calc.Status = tips.CalculationStatus(status)
		calc.CreatedAt = parseTime(created)
		if completed.Valid {
			t := parseTime(completed.String)
			calc.CompletedAt = &t
		}
		out = append(out, calc)
	}
	return out, rows.Err()
}

func (c calcStore) DeleteCalculation(ctx context.Context, id tips.CalculationID) error {
	// Statuses and results cascade.
	_, err := c.q.ExecContext(ctx, "DELETE FROM tip_calculations WHERE id = ?", id)
	return err
}

func (c calcStore) MarkCompleted(ctx context.Context, calc tips.TipCalculation) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE tip_calculations SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, string(tips.StatusCompleted), nullTime(calc.CompletedAt), calc.ID, string(tips.StatusProcessing))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := c.GetCalculation(ctx, calc.ID); err != nil {
			return err
		}
		return tips.ErrCalculationCompleted
	}
	return nil
}

func (c calcStore) TipStatuses(ctx context.Context, calcID tips.CalculationID) ([]tips.EmployeeTipStatus, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT employee, tipped FROM employee_tip_statuses
		WHERE calculation_id = ? ORDER BY employee
	`, calcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.EmployeeTipStatus
	for rows.Next() {
		st := tips.EmployeeTipStatus{CalculationID: calcID}
		if err := rows.Scan(&st.Employee, &st.Tipped); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (c calcStore) SetTipStatus(ctx context.Context, st tips.EmployeeTipStatus) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO employee_tip_statuses (calculation_id, employee, tipped)
		VALUES (?, ?, ?)
		ON CONFLICT(calculation_id, employee) DO UPDATE SET tipped = excluded.tipped
	`, st.CalculationID, st.Employee, st.Tipped)
	if err != nil {
		if isForeignKeyError(err) {
			return tips.ErrCalculationNotFound
		}
		return err
	}
	return nil
}

const resultColumns = "id, calculation_id, employee, tips, cash_tips, archived, version, updated_at, updated_by"

func (c calcStore) ReplaceResults(ctx context.Context, calcID tips.CalculationID, rows []tips.TipCalculationResult) error {
	if _, err := c.q.ExecContext(ctx, "DELETE FROM tip_calculation_results WHERE calculation_id = ?", calcID); err != nil {
		return err
	}
	for _, r := range rows {
		_, err := c.q.ExecContext(ctx, `
			INSERT INTO tip_calculation_results (`+resultColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, calcID, r.Employee, r.Tips, r.CashTips, r.Archived, r.Version,
			formatTime(r.UpdatedAt), r.UpdatedBy)
		if err != nil {
			return fmt.Errorf("failed to write result for %s: %w", r.Employee, err)
		}
	}
	return nil
}

func (c calcStore) Results(ctx context.Context, calcID tips.CalculationID) ([]tips.TipCalculationResult, error) {
	return c.queryResults(ctx,
		"SELECT "+resultColumns+" FROM tip_calculation_results WHERE calculation_id = ? ORDER BY employee", calcID)
}

func (c calcStore) GetResult(ctx context.Context, id tips.ResultID) (*tips.TipCalculationResult, error) {
	rows, err := c.queryResults(ctx, "SELECT "+resultColumns+" FROM tip_calculation_results WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tips.ErrResultNotFound
	}
	return &rows[0], nil
}

func (c calcStore) queryResults(ctx context.Context, query string, args ...any) ([]tips.TipCalculationResult, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.TipCalculationResult
	for rows.Next() {
		var r tips.TipCalculationResult
		var updated string
		if err := rows.Scan(&r.ID, &r.CalculationID, &r.Employee, &r.Tips, &r.CashTips,
			&r.Archived, &r.Version, &updated, &r.UpdatedBy); err != nil {
			return nil, err
		}
		r.UpdatedAt = parseTime(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateResult is a compare-and-swap on the version column.
func (c calcStore) UpdateResult(ctx context.Context, row tips.TipCalculationResult, expectedVersion int) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE tip_calculation_results
		SET tips = ?, cash_tips = ?, archived = ?, version = ?, updated_at = ?, updated_by = ?
		WHERE id = ? AND version = ?
	`, row.Tips, row.CashTips, row.Archived, row.Version, formatTime(row.UpdatedAt), row.UpdatedBy,
		row.ID, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := c.GetResult(ctx, row.ID); err != nil {
			return err
		}
		return tips.ErrConcurrentModification
	}
	return nil
}

func (c calcStore) DeleteResult(ctx context.Context, id tips.ResultID) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM tip_calculation_results WHERE id = ?", id)
	return err
}

func (c calcStore) AppendAudit(ctx context.Context, entry tips.ResultAudit) error {
	prev, err := json.Marshal(entry.Previous)
	if err != nil {
		return err
	}
	var current sql.NullString
	if entry.Current != nil {
		raw, err := json.Marshal(entry.Current)
		if err != nil {
			return err
		}
		current = sql.NullString{String: string(raw), Valid: true}
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO result_audit (id, result_id, action, actor, previous_json, current_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.ResultID, string(entry.Action), entry.Actor, string(prev), current,
		formatTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to append audit: %w", err)
	}
	return nil
}

func (c calcStore) AuditTrail(ctx context.Context, id tips.ResultID) ([]tips.ResultAudit, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, result_id, action, actor, previous_json, current_json, created_at
		FROM result_audit WHERE result_id = ? ORDER BY rowid
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tips.ResultAudit
	for rows.Next() {
		var a tips.ResultAudit
		var action, prev, created string
		var current sql.NullString
		if err := rows.Scan(&a.ID, &a.ResultID, &action, &a.Actor, &prev, &current, &created); err != nil {
			return nil, err
		}
		a.Action = tips.ResultAction(action)
		a.Timestamp = parseTime(created)
		if err := json.Unmarshal([]byte(prev), &a.Previous); err != nil {
			return nil, err
		}
		if current.Valid {
			var cur tips.TipCalculationResult
			if err := json.Unmarshal([]byte(current.String), &cur); err != nil {
				return nil, err
			}
			a.Current = &cur
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"result_audit", "tip_calculation_results", "employee_tip_statuses", "tip_calculations",
		"cash_tip_days", "tip_transactions", "shift_records",
		"distribution_patterns", "role_mappings", "stores",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullClock(c *tips.Clock) sql.NullInt64 {
	if c == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*c), Valid: true}
}

func clockFrom(v sql.NullInt64) *tips.Clock {
	if !v.Valid {
		return nil
	}
	c := tips.Clock(v.Int64)
	return &c
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// wrapSaveError reports a row saved for an unknown store as ErrStoreNotFound.
func wrapSaveError(kind, id string, err error) error {
	if isForeignKeyError(err) {
		return fmt.Errorf("failed to save %s %s: %w", kind, id, tips.ErrStoreNotFound)
	}
	return fmt.Errorf("failed to save %s %s: %w", kind, id, err)
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
