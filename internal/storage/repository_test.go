package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetcare/internal/core"
	"budgetcare/internal/settings"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func item(user, name, qty string, price *string) core.Expense {
	e := core.Expense{
		ReceiptID: "r-1",
		UserID:    user,
		StoreName: "Coop",
		Date:      core.NewDate(2024, 1, 2),
		ItemName:  name,
		Quantity:  decimal.RequireFromString(qty),
		Category:  "Food",
		InputType: core.InputVoice,
	}
	if price != nil {
		e.UnitPrice = core.NewNumber(decimal.RequireFromString(*price))
	}
	return e
}

func strPtr(s string) *string { return &s }

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if v, err := SchemaVersion(path); err != nil || v != 0 {
		t.Fatalf("fresh database: version %d err %v", v, err)
	}
	first, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first != 2 {
		t.Fatalf("expected schema version 2, got %d", first)
	}
	second, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second != first {
		t.Fatalf("second run moved version %d -> %d", first, second)
	}
	if v, err := SchemaVersion(path); err != nil || v != first {
		t.Fatalf("schema version %d err %v", v, err)
	}
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id1, err := repo.Append(ctx, item("u1", "Milk", "2", strPtr("1.105")))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := repo.Append(ctx, item("u1", "Mystery", "1", nil)); err != nil {
		t.Fatalf("append pending: %v", err)
	}
	if _, err := repo.Append(ctx, item("u2", "Other user", "1", strPtr("9"))); err != nil {
		t.Fatalf("append u2: %v", err)
	}

	got, err := repo.ListExpenses(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].ID != id1 || got[0].UnitPrice.Decimal.String() != "1.105" || got[0].Quantity.String() != "2" {
		t.Fatalf("unexpected first item %+v", got[0])
	}
	if got[1].UnitPrice.Valid {
		t.Fatalf("expected pending price to stay NULL")
	}
	if got[0].Date.String() != "2024-01-02" || got[0].InputType != core.InputVoice || got[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected fields %+v", got[0])
	}
}

func TestAppendBillRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.db.ExecContext(ctx, `CREATE TRIGGER reject_bus BEFORE INSERT ON expense_items
		WHEN NEW.item_name = 'Bus' BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err = repo.AppendBill(ctx, []core.Expense{
		item("u1", "Milk", "2", strPtr("1")),
		item("u1", "Bus", "1", strPtr("2")),
	})
	if err == nil {
		t.Fatalf("expected the second insert to fail")
	}
	if got, _ := repo.ListExpenses(ctx, "u1"); len(got) != 0 {
		t.Fatalf("failed bill left %d items stored", len(got))
	}

	ids, err := repo.AppendBill(ctx, []core.Expense{
		item("u1", "Milk", "2", strPtr("1")),
		item("u1", "Bread", "1", strPtr("2")),
	})
	if err != nil || len(ids) != 2 {
		t.Fatalf("append bill: ids=%v err=%v", ids, err)
	}
	got, _ := repo.ListExpenses(ctx, "u1")
	if len(got) != 2 || got[0].ID != ids[0] || got[1].ID != ids[1] {
		t.Fatalf("unexpected items %+v", got)
	}
}

func TestUpdateAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, _ := repo.Append(ctx, item("u1", "Milk", "1", strPtr("1")))

	e := item("u1", "Oat milk", "3", strPtr("2.5"))
	e.ID = id
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("update: %v", err)
	}
	e.UserID = "intruder"
	if err := repo.UpdateExpense(ctx, e); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}

	list, _ := repo.ListExpenses(ctx, "u1")
	if len(list) != 1 || list[0].ItemName != "Oat milk" {
		t.Fatalf("update not visible: %+v", list)
	}

	if err := repo.DeleteExpense(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteExpense(ctx, "u1", id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, "u1", "not-a-number"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for bad id, got %v", err)
	}
	list, _ = repo.ListExpenses(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("expected deleted item to be hidden, got %d", len(list))
	}
}

func TestSyncStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id1, _ := repo.Append(ctx, item("u1", "A", "1", strPtr("1")))
	_, _ = repo.Append(ctx, item("u1", "B", "1", strPtr("1")))

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d (err=%v)", len(pending), err)
	}
	if err := repo.MarkSynced(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, pending[1].ID); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, _ = repo.GetPendingSyncExpenses(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected none pending, got %d", len(pending))
	}

	// Editing puts the row back in the queue.
	e := item("u1", "A2", "1", strPtr("1"))
	e.ID = id1
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, _ = repo.GetPendingSyncExpenses(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("expected edited row pending at version 2, got %+v", pending)
	}

	got, err := repo.GetExpense(ctx, pending[0].ID)
	if err != nil || got.ItemName != "A2" {
		t.Fatalf("get expense: %+v err=%v", got, err)
	}
	if _, err := repo.GetExpense(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCategoriesSeeded(t *testing.T) {
	cats, err := newTestRepo(t).Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != len(core.Categories) || cats[0] != "Retail" || cats[len(cats)-1] != "Other" {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.GetGoal(ctx, "u1", "2024-02"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, desc := range []string{"Spend less on travel", "Save 200"} {
		if err := repo.UpsertGoal(ctx, core.Goal{UserID: "u1", Month: "2024-02", Description: desc}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	g, err := repo.GetGoal(ctx, "u1", "2024-02")
	if err != nil || g.Description != "Save 200" || g.UpdatedAt.IsZero() {
		t.Fatalf("unexpected goal %+v err=%v", g, err)
	}
	if err := repo.UpsertGoal(ctx, core.Goal{UserID: "u1", Month: "Feb", Description: "x"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	repo.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	if _, err := repo.LoadProfile(ctx, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	store := settings.NewStore(repo)
	saved, err := store.Update(ctx, "u1",
		settings.SetField{Field: settings.FieldFirstName, Value: "Ada"},
		settings.SetField{Field: settings.FieldIncome, Value: "30000"},
	)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}

	loaded, err := repo.LoadProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.FirstName != "Ada" || loaded.FinancialDetails.Income != "30000" || loaded.Dirty {
		t.Fatalf("unexpected profile %+v", loaded)
	}
	if !loaded.UpdatedAt.Equal(saved.UpdatedAt) {
		t.Fatalf("expected updated at %v, got %v", saved.UpdatedAt, loaded.UpdatedAt)
	}
}
