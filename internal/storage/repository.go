package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/settings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes the API and
	// the worker's pending pass instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("Expense schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
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
	return r.now().UTC().Format(timeLayout)
}

func toNullDecimal(n core.Number) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: n.Decimal, Valid: n.Valid}
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: expense id %q", core.ErrNotFound, id)
	}
	return n, nil
}

// Append implements sheets.ExpenseWriter
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (string, error) {
	ids, err := r.AppendBill(ctx, []core.Expense{e})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AppendBill inserts every item of a bill in one transaction.
func (r *SQLiteRepository) AppendBill(ctx context.Context, items []core.Expense) ([]string, error) {
	for _, e := range items {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	saved := make([]ExpenseItem, 0, len(items))
	for _, e := range items {
		item, err := qtx.CreateExpenseItem(ctx, r.createParams(e))
		if err != nil {
			return nil, fmt.Errorf("create expense item %q: %w", e.ItemName, err)
		}
		saved = append(saved, item)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bill: %w", err)
	}

	ids := make([]string, len(saved))
	for i, item := range saved {
		ids[i] = strconv.FormatInt(item.ID, 10)
		slog.InfoContext(ctx, "Expense item saved to SQLite",
			log.FieldExpenseID, item.ID,
			log.FieldReceiptID, item.ReceiptID,
			"item_name", item.ItemName,
			"category", item.Category,
			"bill_date", item.BillDate)
	}
	return ids, nil
}

func (r *SQLiteRepository) createParams(e core.Expense) CreateExpenseItemParams {
	if e.ReceiptID == "" {
		e.ReceiptID = uuid.NewString()
	}
	if e.InputType == "" {
		e.InputType = core.InputText
	}
	createdAt := r.stamp()
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt.UTC().Format(timeLayout)
	}
	return CreateExpenseItemParams{
		ReceiptID: e.ReceiptID,
		UserID:    e.UserID,
		StoreName: e.StoreName,
		BillDate:  e.Date.String(),
		ItemName:  e.ItemName,
		Quantity:  e.Quantity,
		UnitPrice: toNullDecimal(e.UnitPrice),
		Category:  e.Category,
		InputType: string(e.InputType),
		CreatedAt: createdAt,
	}
}

// ListExpenses implements sheets.ExpenseLister
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	items, err := r.queries.ListExpenseItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expense items: %w", err)
	}
	out := make([]core.Expense, 0, len(items))
	for _, it := range items {
		e, err := it.toCore()
		if err != nil {
			// Rows are written through Append, so this means manual edits.
			slog.WarnContext(ctx, "Skipping unreadable expense item", log.FieldExpenseID, it.ID, log.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (it ExpenseItem) toCore() (core.Expense, error) {
	d, err := core.ParseDate(it.BillDate)
	if err != nil {
		return core.Expense{}, err
	}
	created, _ := time.Parse(timeLayout, it.CreatedAt)
	e := core.Expense{
		ID:        strconv.FormatInt(it.ID, 10),
		ReceiptID: it.ReceiptID,
		UserID:    it.UserID,
		StoreName: it.StoreName,
		Date:      d,
		ItemName:  it.ItemName,
		Quantity:  it.Quantity,
		Category:  it.Category,
		InputType: core.InputType(it.InputType),
		CreatedAt: created,
	}
	if it.UnitPrice.Valid {
		e.UnitPrice = core.NewNumber(it.UnitPrice.Decimal)
	}
	return e, nil
}

// UpdateExpense implements sheets.ExpenseEditor. The row goes back to
// pending so the worker mirrors the new values.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	id, err := parseID(e.ID)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateExpenseItem(ctx, UpdateExpenseItemParams{
		StoreName: e.StoreName,
		BillDate:  e.Date.String(),
		ItemName:  e.ItemName,
		Quantity:  e.Quantity,
		UnitPrice: toNullDecimal(e.UnitPrice),
		Category:  e.Category,
		UpdatedAt: r.stamp(),
		ID:        id,
		UserID:    e.UserID,
	})
	if err != nil {
		return fmt.Errorf("update expense item: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Expense item updated", log.FieldExpenseID, id)
	return nil
}

// DeleteExpense implements sheets.ExpenseEditor as a soft delete.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := r.queries.SoftDeleteExpenseItem(ctx, n, userID, r.stamp())
	if err != nil {
		return fmt.Errorf("delete expense item: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Expense item deleted", log.FieldExpenseID, n)
	return nil
}

// GetExpense retrieves a single item by ID, deleted or not.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	it, err := r.queries.GetExpenseItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense item by id: %w", err)
	}
	return it.toCore()
}

// Categories implements sheets.TaxonomyReader
func (r *SQLiteRepository) Categories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// PendingSyncExpense represents minimal data needed for sync queue messages
type PendingSyncExpense struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncExpenses returns items that still need to reach Google Sheets
func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.queries.GetPendingSyncItems(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync items: %w", err)
	}
	out := make([]PendingSyncExpense, len(rows))
	for i, row := range rows {
		created, _ := time.Parse(timeLayout, row.CreatedAt)
		out[i] = PendingSyncExpense{ID: row.ID, Version: row.Version, CreatedAt: created}
	}
	return out, nil
}

// MarkSynced marks an item as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkItemSynced(ctx, id); err != nil {
		return fmt.Errorf("mark expense item synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense item marked as synced", log.FieldExpenseID, id)
	return nil
}

// MarkSyncError marks an item as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkItemSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark expense item sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense item marked with sync error", log.FieldExpenseID, id)
	return nil
}

// GetGoal implements sheets.GoalStore
func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, month string) (core.Goal, error) {
	g, err := r.queries.GetGoal(ctx, userID, month)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	updated, _ := time.Parse(timeLayout, g.UpdatedAt)
	return core.Goal{UserID: g.UserID, Month: g.Month, Description: g.Description, UpdatedAt: updated}, nil
}

// UpsertGoal implements sheets.GoalStore
func (r *SQLiteRepository) UpsertGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertGoal(ctx, Goal{
		UserID:      g.UserID,
		Month:       g.Month,
		Description: g.Description,
		UpdatedAt:   r.stamp(),
	}); err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal saved", log.FieldUserID, g.UserID, log.FieldMonth, g.Month)
	return nil
}

// LoadProfile implements settings.Repository
func (r *SQLiteRepository) LoadProfile(ctx context.Context, userID string) (settings.Profile, error) {
	doc, err := r.queries.GetProfile(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Profile{}, core.ErrNotFound
	}
	if err != nil {
		return settings.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	var p settings.Profile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return settings.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	p.UserID = userID
	return p, nil
}

// SaveProfile implements settings.Repository
func (r *SQLiteRepository) SaveProfile(ctx context.Context, p settings.Profile) error {
	if p.UserID == "" {
		return core.ErrEmptyUserID
	}
	p.Dirty = false
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.queries.UpsertProfile(ctx, p.UserID, string(doc), r.stamp()); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
