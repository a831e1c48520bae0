package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetcare/internal/analytics"
	"budgetcare/internal/core"
	"budgetcare/internal/log"

	"golang.org/x/sync/errgroup"
)

// GoalReader reads a user's savings goal for one month.
type GoalReader interface {
	GetGoal(ctx context.Context, userID, month string) (core.Goal, error)
}

// DashboardView is a dashboard plus the goal of the current month, if any.
type DashboardView struct {
	analytics.Dashboard
	Goal *core.Goal
}

// DashboardService re-runs the analytics pipeline on every request over the
// user's raw records. Only raw records are cached, never pipeline output.
type DashboardService struct {
	expenses      *ExpenseService
	goals         GoalReader
	defaultWindow analytics.Window
	now           func() time.Time
}

// NewDashboardService wires the service. goals may be nil; a zero window
// means analytics.Month.
func NewDashboardService(expenses *ExpenseService, goals GoalReader, defaultWindow analytics.Window) *DashboardService {
	if defaultWindow == 0 {
		defaultWindow = analytics.Month
	}
	return &DashboardService{
		expenses:      expenses,
		goals:         goals,
		defaultWindow: defaultWindow,
		now:           time.Now,
	}
}

// DefaultWindow is the window used when a request does not name one.
func (s *DashboardService) DefaultWindow() analytics.Window { return s.defaultWindow }

// Build fetches the user's records and current goal concurrently and derives
// the dashboard. An empty history is not an error: the view reports NoData.
func (s *DashboardService) Build(ctx context.Context, userID string, window analytics.Window) (DashboardView, error) {
	if window == 0 {
		window = s.defaultWindow
	}
	if err := window.Validate(); err != nil {
		return DashboardView{}, err
	}
	today := core.DateOf(s.now().UTC())

	var (
		raw  []core.RawExpense
		goal *core.Goal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = s.expenses.Raw(gctx, userID)
		return err
	})
	if s.goals != nil {
		g.Go(func() error {
			got, err := s.goals.GetGoal(gctx, userID, today.YearMonth())
			switch {
			case errors.Is(err, core.ErrNotFound):
				return nil
			case err != nil:
				return fmt.Errorf("get goal: %w", err)
			}
			goal = &got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DashboardView{}, err
	}

	dash, err := analytics.Build(raw, analytics.Options{Window: window, Now: today})
	if err != nil && !errors.Is(err, core.ErrNoData) {
		return DashboardView{}, err
	}

	log.NewStructuredLogger(log.FromContext(ctx)).
		LogDashboardBuilt(ctx, userID, window.Days(), len(raw), len(dash.Issues), dash.MissingPrice)
	return DashboardView{Dashboard: dash, Goal: goal}, nil
}
