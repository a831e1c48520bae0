package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339Nano

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ExpenseItem is a row of expense_items.
type ExpenseItem struct {
	ID         int64
	ReceiptID  string
	UserID     string
	StoreName  string
	BillDate   string
	ItemName   string
	Quantity   decimal.Decimal
	UnitPrice  decimal.NullDecimal
	Category   string
	InputType  string
	CreatedAt  string
	UpdatedAt  string
	DeletedAt  sql.NullString
	SyncStatus string
	Version    int64
}

const expenseItemColumns = `id, receipt_id, user_id, store_name, bill_date, item_name, quantity, unit_price,
       category, input_type, created_at, updated_at, deleted_at, sync_status, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpenseItem(row rowScanner) (ExpenseItem, error) {
	var i ExpenseItem
	err := row.Scan(
		&i.ID,
		&i.ReceiptID,
		&i.UserID,
		&i.StoreName,
		&i.BillDate,
		&i.ItemName,
		&i.Quantity,
		&i.UnitPrice,
		&i.Category,
		&i.InputType,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
		&i.SyncStatus,
		&i.Version,
	)
	return i, err
}

const createExpenseItem = `-- name: CreateExpenseItem :one
INSERT INTO expense_items (receipt_id, user_id, store_name, bill_date, item_name, quantity, unit_price,
                           category, input_type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseItemColumns

type CreateExpenseItemParams struct {
	ReceiptID string
	UserID    string
	StoreName string
	BillDate  string
	ItemName  string
	Quantity  decimal.Decimal
	UnitPrice decimal.NullDecimal
	Category  string
	InputType string
	CreatedAt string
}

func (q *Queries) CreateExpenseItem(ctx context.Context, arg CreateExpenseItemParams) (ExpenseItem, error) {
	row := q.db.QueryRowContext(ctx, createExpenseItem,
		arg.ReceiptID,
		arg.UserID,
		arg.StoreName,
		arg.BillDate,
		arg.ItemName,
		arg.Quantity.String(),
		arg.UnitPrice,
		arg.Category,
		arg.InputType,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanExpenseItem(row)
}

const getExpenseItem = `-- name: GetExpenseItem :one
SELECT ` + expenseItemColumns + `
FROM expense_items
WHERE id = ?`

func (q *Queries) GetExpenseItem(ctx context.Context, id int64) (ExpenseItem, error) {
	return scanExpenseItem(q.db.QueryRowContext(ctx, getExpenseItem, id))
}

const listExpenseItemsByUser = `-- name: ListExpenseItemsByUser :many
SELECT ` + expenseItemColumns + `
FROM expense_items
WHERE user_id = ? AND deleted_at IS NULL
ORDER BY id`

func (q *Queries) ListExpenseItemsByUser(ctx context.Context, userID string) ([]ExpenseItem, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseItemsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseItem
	for rows.Next() {
		i, err := scanExpenseItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateExpenseItem = `-- name: UpdateExpenseItem :execrows
UPDATE expense_items
SET store_name = ?, bill_date = ?, item_name = ?, quantity = ?, unit_price = ?, category = ?,
    updated_at = ?, sync_status = 'pending', version = version + 1
WHERE id = ? AND user_id = ? AND deleted_at IS NULL`

type UpdateExpenseItemParams struct {
	StoreName string
	BillDate  string
	ItemName  string
	Quantity  decimal.Decimal
	UnitPrice decimal.NullDecimal
	Category  string
	UpdatedAt string
	ID        int64
	UserID    string
}

func (q *Queries) UpdateExpenseItem(ctx context.Context, arg UpdateExpenseItemParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpenseItem,
		arg.StoreName,
		arg.BillDate,
		arg.ItemName,
		arg.Quantity.String(),
		arg.UnitPrice,
		arg.Category,
		arg.UpdatedAt,
		arg.ID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const softDeleteExpenseItem = `-- name: SoftDeleteExpenseItem :execrows
UPDATE expense_items
SET deleted_at = ?, updated_at = ?, version = version + 1
WHERE id = ? AND user_id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteExpenseItem(ctx context.Context, id int64, userID, at string) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteExpenseItem, at, at, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getPendingSyncItems = `-- name: GetPendingSyncItems :many
SELECT id, version, created_at
FROM expense_items
WHERE sync_status = 'pending' AND deleted_at IS NULL
ORDER BY created_at
LIMIT ?`

type GetPendingSyncItemsRow struct {
	ID        int64
	Version   int64
	CreatedAt string
}

func (q *Queries) GetPendingSyncItems(ctx context.Context, limit int64) ([]GetPendingSyncItemsRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncItems, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPendingSyncItemsRow
	for rows.Next() {
		var i GetPendingSyncItemsRow
		if err := rows.Scan(&i.ID, &i.Version, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markItemSynced = `-- name: MarkItemSynced :exec
UPDATE expense_items SET sync_status = 'synced' WHERE id = ?`

func (q *Queries) MarkItemSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markItemSynced, id)
	return err
}

const markItemSyncError = `-- name: MarkItemSyncError :exec
UPDATE expense_items SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkItemSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markItemSyncError, id)
	return err
}

const listCategories = `-- name: ListCategories :many
SELECT name FROM categories ORDER BY sort_order, name`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getGoal = `-- name: GetGoal :one
SELECT user_id, month, description, updated_at FROM goals WHERE user_id = ? AND month = ?`

type Goal struct {
	UserID      string
	Month       string
	Description string
	UpdatedAt   string
}

func (q *Queries) GetGoal(ctx context.Context, userID, month string) (Goal, error) {
	var g Goal
	err := q.db.QueryRowContext(ctx, getGoal, userID, month).Scan(&g.UserID, &g.Month, &g.Description, &g.UpdatedAt)
	return g, err
}

const upsertGoal = `-- name: UpsertGoal :exec
INSERT INTO goals (user_id, month, description, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, month) DO UPDATE SET description = excluded.description, updated_at = excluded.updated_at`

func (q *Queries) UpsertGoal(ctx context.Context, g Goal) error {
	_, err := q.db.ExecContext(ctx, upsertGoal, g.UserID, g.Month, g.Description, g.UpdatedAt)
	return err
}

const getProfile = `-- name: GetProfile :one
SELECT document FROM user_profiles WHERE user_id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID string) (string, error) {
	var doc string
	err := q.db.QueryRowContext(ctx, getProfile, userID).Scan(&doc)
	return doc, err
}

const upsertProfile = `-- name: UpsertProfile :exec
INSERT INTO user_profiles (user_id, document, updated_at) VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`

func (q *Queries) UpsertProfile(ctx context.Context, userID, document, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, userID, document, updatedAt)
	return err
}
