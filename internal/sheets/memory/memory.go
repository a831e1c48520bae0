package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/settings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	cats     []string
	items    []core.Expense
	goals    map[string]core.Goal // user|month
	profiles map[string]settings.Profile
}

func New(cats []string) *Store {
	return &Store{
		cats:     dedupe(cats),
		goals:    map[string]core.Goal{},
		profiles: map[string]settings.Profile{},
	}
}

// seedExpense is one line of seed_expenses.json.
type seedExpense struct {
	UserID string `json:"user_id"`
	core.RawExpense
}

// NewFromFiles seeds the store from base/seed_categories.txt and
// base/seed_expenses.json. Missing files fall back to defaults.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.Categories
	}
	s := New(cats)

	b, err := os.ReadFile(filepath.Join(base, "seed_expenses.json"))
	if err != nil {
		return s
	}
	var seeds []seedExpense
	if err := json.Unmarshal(b, &seeds); err != nil {
		slog.Warn("Ignoring unreadable seed expenses", log.FieldError, err)
		return s
	}
	for _, se := range seeds {
		e, err := fromSeed(se)
		if err != nil {
			slog.Warn("Skipping seed expense", "item", se.ItemName, log.FieldError, err)
			continue
		}
		s.items = append(s.items, e)
	}
	return s
}

func fromSeed(se seedExpense) (core.Expense, error) {
	d, err := core.ParseDate(se.BillDate)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:        uuid.NewString(),
		UserID:    se.UserID,
		Date:      d,
		ItemName:  se.ItemName,
		Quantity:  se.Quantity.Or(decimal.Zero),
		UnitPrice: se.UnitPrice,
		Category:  se.Category,
		InputType: core.InputText,
		CreatedAt: time.Now().UTC(),
	}
	if se.StoreName != nil {
		e.StoreName = *se.StoreName
	}
	return e, e.Validate()
}

// Append stores the expense and returns its id.
func (s *Store) Append(ctx context.Context, e core.Expense) (string, error) {
	ids, err := s.AppendBill(ctx, []core.Expense{e})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AppendBill validates every item before storing any of them.
func (s *Store) AppendBill(_ context.Context, items []core.Expense) ([]string, error) {
	for _, e := range items {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	ids := make([]string, len(items))
	for i, e := range items {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		s.items = append(s.items, e)
		ids[i] = e.ID
	}
	return ids, nil
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(e.UserID, e.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	e.ReceiptID = s.items[i].ReceiptID
	e.CreatedAt = s.items[i].CreatedAt
	s.items[i] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Store) indexOf(userID, id string) int {
	for i, e := range s.items {
		if e.ID == id && e.UserID == userID {
			return i
		}
	}
	return -1
}

// Categories returns the seeded category list.
func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats...), nil
}

func (s *Store) GetGoal(_ context.Context, userID, month string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[userID+"|"+month]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) UpsertGoal(_ context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = time.Now().UTC()
	}
	s.goals[g.UserID+"|"+g.Month] = g
	return nil
}

func (s *Store) LoadProfile(_ context.Context, userID string) (settings.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return settings.Profile{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, p settings.Profile) error {
	if p.UserID == "" {
		return core.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
