package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgetcare/internal/amqp"
	"budgetcare/internal/cache"
	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/sheets"

	"github.com/google/uuid"
)

var (
	// ErrEmptyBill is returned for a bill without line items.
	ErrEmptyBill = errors.New("bill has no items")
	// ErrIncompleteItem is returned when a line item lacks its quantity,
	// unit price or category.
	ErrIncompleteItem = errors.New("item needs quantity, unit price and category")
)

// Repository is the storage an ExpenseService writes through.
type Repository interface {
	sheets.ExpenseWriter
	sheets.ExpenseLister
	sheets.ExpenseEditor
}

// Publisher announces expense changes, typically over AMQP.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.ExpenseEvent) error
}

// BillItem is one line of a bill as typed, spoken or scanned by the user.
type BillItem struct {
	ItemName  string
	Quantity  core.Number
	UnitPrice core.Number
	Category  string
}

// Bill groups the items bought together at one store on one day.
type Bill struct {
	StoreName string
	BillDate  string // YYYY-MM-DD; empty means today
	InputType core.InputType
	Items     []BillItem
}

// ItemUpdate replaces the editable fields of a stored line item. Empty
// StoreName and BillDate keep the stored values.
type ItemUpdate struct {
	StoreName *string
	BillDate  string
	BillItem
}

// ExpenseService orchestrates expense operations across the storage backend,
// the raw-record cache and the event publisher.
type ExpenseService struct {
	repo      Repository
	publisher Publisher
	cache     *cache.LRUCache[[]core.Expense]
	now       func() time.Time
}

// NewExpenseService wires the service. publisher and c may be nil.
func NewExpenseService(repo Repository, publisher Publisher, c *cache.LRUCache[[]core.Expense]) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		cache:     c,
		now:       time.Now,
	}
}

// RecordBill validates every item, then stores them under one receipt id in
// a single write. Nothing is stored when any item is incomplete or the write
// fails.
func (s *ExpenseService) RecordBill(ctx context.Context, userID string, bill Bill) ([]core.Expense, error) {
	items, err := s.billExpenses(userID, bill)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.AppendBill(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("save bill: %w", err)
	}
	for i := range items {
		items[i].ID = ids[i]
		s.publish(ctx, amqp.EventRecorded, items[i], 1)
	}
	s.invalidate(userID)

	log.NewStructuredLogger(log.FromContext(ctx)).LogBillRecorded(ctx, userID, items[0].ReceiptID, len(items))
	return items, nil
}

func (s *ExpenseService) billExpenses(userID string, bill Bill) ([]core.Expense, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUserID
	}
	if len(bill.Items) == 0 {
		return nil, ErrEmptyBill
	}
	date, err := s.billDate(bill.BillDate)
	if err != nil {
		return nil, err
	}
	input := bill.InputType
	if input == "" {
		input = core.InputText
	}
	if !input.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidInput, input)
	}

	receipt := uuid.NewString()
	now := s.now().UTC()
	out := make([]core.Expense, 0, len(bill.Items))
	for i, it := range bill.Items {
		if err := it.complete(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		e := core.Expense{
			ReceiptID: receipt,
			UserID:    userID,
			StoreName: strings.TrimSpace(bill.StoreName),
			Date:      date,
			ItemName:  strings.TrimSpace(it.ItemName),
			Quantity:  it.Quantity.Decimal,
			UnitPrice: it.UnitPrice,
			Category:  strings.TrimSpace(it.Category),
			InputType: input,
			CreatedAt: now,
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (it BillItem) complete() error {
	if !it.Quantity.Valid || !it.UnitPrice.Valid || strings.TrimSpace(it.Category) == "" {
		return ErrIncompleteItem
	}
	return nil
}

func (s *ExpenseService) billDate(raw string) (core.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return core.DateOf(s.now().UTC()), nil
	}
	return core.ParseDate(raw)
}

// List returns the user's live line items, served from the cache when
// possible.
func (s *ExpenseService) List(ctx context.Context, userID string) ([]core.Expense, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.ErrEmptyUserID
	}
	load := func(ctx context.Context) ([]core.Expense, error) {
		return s.repo.ListExpenses(ctx, userID)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.GetOrLoad(ctx, userID, load)
}

// Raw returns the user's items in the list-endpoint shape consumed by the
// analytics pipeline.
func (s *ExpenseService) Raw(ctx context.Context, userID string) ([]core.RawExpense, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	raw := make([]core.RawExpense, len(items))
	for i, e := range items {
		raw[i] = e.Raw()
	}
	return raw, nil
}

// Update replaces one line item. It returns core.ErrNotFound when the user
// has no such item.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, upd ItemUpdate) (core.Expense, error) {
	if err := upd.complete(); err != nil {
		return core.Expense{}, err
	}
	current, err := s.find(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}

	e := current
	e.ItemName = strings.TrimSpace(upd.ItemName)
	e.Quantity = upd.Quantity.Decimal
	e.UnitPrice = upd.UnitPrice
	e.Category = strings.TrimSpace(upd.Category)
	if upd.StoreName != nil {
		e.StoreName = strings.TrimSpace(*upd.StoreName)
	}
	if strings.TrimSpace(upd.BillDate) != "" {
		if e.Date, err = core.ParseDate(upd.BillDate); err != nil {
			return core.Expense{}, err
		}
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.invalidate(userID)
	s.publish(ctx, amqp.EventUpdated, e, 0)
	return e, nil
}

// Delete removes one line item.
func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrEmptyUserID
	}
	if err := s.repo.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate(userID)
	s.publish(ctx, amqp.EventDeleted, core.Expense{ID: id, UserID: userID}, 0)
	return nil
}

func (s *ExpenseService) find(ctx context.Context, userID, id string) (core.Expense, error) {
	items, err := s.repo.ListExpenses(ctx, userID)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *ExpenseService) invalidate(userID string) {
	if s.cache != nil {
		s.cache.Delete(userID)
	}
}

// publish is best effort: the write already succeeded locally.
func (s *ExpenseService) publish(ctx context.Context, typ amqp.EventType, e core.Expense, version int64) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewExpenseEvent(typ, e.UserID, e.ID, version)
	if err := s.publisher.Publish(ctx, *ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEvent, typ,
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
	}
}
