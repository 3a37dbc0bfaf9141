package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"conti/internal/core"
	"conti/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements store.Store on a SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func parseStamp(s string) time.Time {
	t, _ := core.ParseDateLike(s)
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

const expenseColumns = `id, created_at, date, description, category, amount, type, is_paid_by_kari, is_default`

func scanExpense(row scanner) (core.Expense, error) {
	var (
		e                   core.Expense
		createdAt, date     string
		category, shareType string
	)
	if err := row.Scan(&e.ID, &createdAt, &date, &e.Description, &category, &e.Amount, &shareType, &e.PaidByPartyB, &e.IsDefault); err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = parseStamp(createdAt)
	if t, ok := core.ParseDateLike(date); ok {
		e.Date = core.DateOf(t)
	}
	e.Category = core.Category(category)
	e.Type = core.SharingType(shareType)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, store.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	createdAt := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (created_at, date, description, category, amount, type, is_paid_by_kari, is_default)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt, e.Date.String(), e.Description, string(e.Category), e.Amount, string(e.Type), e.PaidByPartyB, e.IsDefault)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.CreatedAt = parseStamp(createdAt)

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"date", e.Date.String(),
		"amount", e.Amount,
		"type", e.Type)
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, description = ?, category = ?, amount = ?, type = ?, is_paid_by_kari = ?, is_default = ?
		 WHERE id = ?`,
		e.Date.String(), e.Description, string(e.Category), e.Amount, string(e.Type), e.PaidByPartyB, e.IsDefault, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) LatestIncome(ctx context.Context) (core.Income, error) {
	var (
		in        core.Income
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, adolfo_income, kari_income, total_income, adolfo_percentage, kari_percentage
		 FROM income ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&in.ID, &createdAt, &in.PartyAIncome, &in.PartyBIncome, &in.TotalIncome, &in.PartyAPercentage, &in.PartyBPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, store.ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get latest income: %w", err)
	}
	in.CreatedAt = parseStamp(createdAt)
	return in, nil
}

func (r *SQLiteRepository) InsertIncome(ctx context.Context, in core.Income) (core.Income, error) {
	createdAt := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (created_at, adolfo_income, kari_income, total_income, adolfo_percentage, kari_percentage)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		createdAt, in.PartyAIncome, in.PartyBIncome, in.TotalIncome, in.PartyAPercentage, in.PartyBPercentage)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	in.CreatedAt = parseStamp(createdAt)
	return in, nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.Income) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE income SET adolfo_income = ?, kari_income = ?, total_income = ?, adolfo_percentage = ?, kari_percentage = ?
		 WHERE id = ?`,
		in.PartyAIncome, in.PartyBIncome, in.TotalIncome, in.PartyAPercentage, in.PartyBPercentage, in.ID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return expectOne(res)
}

const debtColumns = `id, created_at, year, month, adolfo_debt, kari_debt`

func scanDebt(row scanner) (core.Debt, error) {
	var (
		d         core.Debt
		createdAt string
	)
	if err := row.Scan(&d.ID, &createdAt, &d.Year, &d.Month, &d.PartyADebt, &d.PartyBDebt); err != nil {
		return core.Debt{}, err
	}
	d.CreatedAt = parseStamp(createdAt)
	return d, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+debtColumns+` FROM debt ORDER BY year, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindDebt(ctx context.Context, year int, month string) (core.Debt, error) {
	d, err := scanDebt(r.db.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debt WHERE year = ? AND month = ?`, year, month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Debt{}, store.ErrNotFound
	}
	if err != nil {
		return core.Debt{}, fmt.Errorf("find debt %s %d: %w", month, year, err)
	}
	return d, nil
}

func (r *SQLiteRepository) InsertDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	createdAt := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO debt (created_at, year, month, adolfo_debt, kari_debt) VALUES (?, ?, ?, ?, ?)`,
		createdAt, d.Year, d.Month, d.PartyADebt, d.PartyBDebt)
	if err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}
	d.CreatedAt = parseStamp(createdAt)
	return d, nil
}

func (r *SQLiteRepository) UpdateDebt(ctx context.Context, d core.Debt) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE debt SET adolfo_debt = ?, kari_debt = ? WHERE id = ?`,
		d.PartyADebt, d.PartyBDebt, d.ID)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) ListTotals(ctx context.Context) ([]core.TotalExpenses, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, created_at, total, adolfo, kari FROM total_expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list totals: %w", err)
	}
	defer rows.Close()

	var out []core.TotalExpenses
	for rows.Next() {
		var (
			t         core.TotalExpenses
			createdAt string
		)
		if err := rows.Scan(&t.ID, &createdAt, &t.Total, &t.PartyA, &t.PartyB); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		t.CreatedAt = parseStamp(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteAllTotals(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM total_expenses`); err != nil {
		return fmt.Errorf("delete totals: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertTotals(ctx context.Context, t core.ExpenseTotals) (core.TotalExpenses, error) {
	createdAt := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO total_expenses (created_at, total, adolfo, kari) VALUES (?, ?, ?, ?)`,
		createdAt, t.Total, t.PartyA, t.PartyB)
	if err != nil {
		return core.TotalExpenses{}, fmt.Errorf("create totals: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.TotalExpenses{}, fmt.Errorf("create totals: %w", err)
	}
	return core.TotalExpenses{ID: id, CreatedAt: parseStamp(createdAt), ExpenseTotals: t}, nil
}

func (r *SQLiteRepository) ListSavings(ctx context.Context) ([]core.Saving, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, created_at, user, type, amount, currency FROM savings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var out []core.Saving
	for rows.Next() {
		var (
			s                    core.Saving
			user, kind, currency string
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &user, &kind, &s.Amount, &currency); err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		s.User, s.Type, s.Currency = core.Party(user), core.AccountType(kind), core.Currency(currency)
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertSavings writes a snapshot in one transaction. Entries that carry a
// created_at keep it.
func (r *SQLiteRepository) InsertSavings(ctx context.Context, entries []core.Saving) ([]core.Saving, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin savings tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO savings (created_at, user, type, amount, currency) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare savings insert: %w", err)
	}
	defer stmt.Close()

	out := make([]core.Saving, 0, len(entries))
	stamp := r.stamp()
	for _, e := range entries {
		if e.CreatedAt == "" {
			e.CreatedAt = stamp
		}
		if e.Currency == "" {
			e.Currency = core.EUR
		}
		res, err := stmt.ExecContext(ctx, e.CreatedAt, string(e.User), string(e.Type), e.Amount, string(e.Currency))
		if err != nil {
			return nil, fmt.Errorf("create saving: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("create saving: %w", err)
		}
		out = append(out, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit savings: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteSavingsByDate(ctx context.Context, dateKey string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings WHERE substr(created_at, 1, 10) = ?`, dateKey)
	if err != nil {
		return fmt.Errorf("delete savings for %s: %w", dateKey, err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Savings snapshot deleted", "date", dateKey, "rows", n)
	return nil
}
