package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"budgetcare/internal/amqp"
	"budgetcare/internal/core"
	"budgetcare/internal/storage"

	"github.com/shopspring/decimal"
)

type fakeMirror struct {
	mu      sync.Mutex
	rows    map[string]core.Expense
	deleted []string
	fail    error
}

func newFakeMirror() *fakeMirror { return &fakeMirror{rows: map[string]core.Expense{}} }

func (m *fakeMirror) UpsertExpense(_ context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	m.rows[e.ID] = e
	return "Expenses!A2:L2", nil
}

func (m *fakeMirror) DeleteExpense(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || e.UserID != userID {
		return core.ErrNotFound
	}
	delete(m.rows, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type fakeConsumer struct {
	events []*amqp.ExpenseEvent
	errs   []error
}

func (c *fakeConsumer) Consume(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error {
	for _, ev := range c.events {
		c.errs = append(c.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func appendItem(t *testing.T, repo *storage.SQLiteRepository, name string) string {
	t.Helper()
	id, err := repo.Append(context.Background(), core.Expense{
		UserID:    "u1",
		Date:      core.NewDate(2024, 1, 2),
		ItemName:  name,
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: core.NewNumber(decimal.NewFromInt(5)),
		Category:  "Food",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return id
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	mirror := newFakeMirror()
	w := NewSyncWorker(repo, mirror, 0)

	id := appendItem(t, repo, "Milk")
	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventRecorded, "u1", id, 1)); err != nil {
		t.Fatalf("recorded: %v", err)
	}
	if got := mirror.rows[id]; got.ItemName != "Milk" {
		t.Fatalf("expected mirrored row, got %+v", got)
	}
	if pending, _ := repo.GetPendingSyncExpenses(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected row marked synced, %d pending", len(pending))
	}

	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventDeleted, "u1", id, 0)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if len(mirror.deleted) != 1 {
		t.Fatalf("expected one deletion, got %v", mirror.deleted)
	}
	// Deleting again and syncing a vanished or foreign id are no-ops.
	for _, ev := range []*amqp.ExpenseEvent{
		amqp.NewExpenseEvent(amqp.EventDeleted, "u1", id, 0),
		amqp.NewExpenseEvent(amqp.EventUpdated, "u1", "999", 0),
		amqp.NewExpenseEvent(amqp.EventRecorded, "u1", "9b2f-uuid", 0),
	} {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("%s %s: %v", ev.Type, ev.ID, err)
		}
	}
}

func TestHandleEventMirrorFailure(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	mirror := newFakeMirror()
	mirror.fail = errors.New("quota exceeded")
	w := NewSyncWorker(repo, mirror, 10)

	id := appendItem(t, repo, "Milk")
	if err := w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.EventRecorded, "u1", id, 1)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	// Marked as error, so the pending pass does not retry it forever.
	if pending, _ := repo.GetPendingSyncExpenses(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
}

func TestProcessPendingExpenses(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	mirror := newFakeMirror()
	w := NewSyncWorker(repo, mirror, 2)

	for _, name := range []string{"A", "B", "C"} {
		appendItem(t, repo, name)
	}
	n, err := w.ProcessPendingExpenses(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first pass: n=%d err=%v", n, err)
	}
	n, _ = w.ProcessPendingExpenses(ctx)
	if n != 1 || len(mirror.rows) != 3 {
		t.Fatalf("second pass: n=%d rows=%d", n, len(mirror.rows))
	}
	if n, _ := w.ProcessPendingExpenses(ctx); n != 0 {
		t.Fatalf("expected nothing left, got %d", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := newRepo(t)
	mirror := newFakeMirror()
	w := NewSyncWorker(repo, mirror, 10)
	id := appendItem(t, repo, "Milk")
	consumer := &fakeConsumer{events: []*amqp.ExpenseEvent{amqp.NewExpenseEvent(amqp.EventRecorded, "u1", id, 1)}}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx, consumer, time.Hour); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run: %v", err)
	}
	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	if _, ok := mirror.rows[id]; !ok {
		t.Fatal("expected item mirrored during run")
	}
}
