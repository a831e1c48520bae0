package sheets

import (
	"context"

	"budgetcare/internal/core"
	"budgetcare/internal/settings"
)

// Ports for outbound adapters. Every backend (memory, SQLite, Google Sheets)
// implements the full set.
type (
	ExpenseWriter interface {
		// Append stores one line item and returns its id.
		Append(ctx context.Context, e core.Expense) (ref string, err error)
		// AppendBill stores every item of one bill or none of them. Ids come
		// back in item order.
		AppendBill(ctx context.Context, items []core.Expense) ([]string, error)
	}

	// ExpenseLister returns every live line item of a user in insertion order.
	ExpenseLister interface {
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	}

	// ExpenseEditor changes or removes stored line items. Both return
	// core.ErrNotFound for an id the user does not own.
	ExpenseEditor interface {
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, userID, id string) error
	}

	TaxonomyReader interface {
		Categories(ctx context.Context) ([]string, error)
	}

	// GoalStore keeps one savings goal per user and month.
	GoalStore interface {
		GetGoal(ctx context.Context, userID, month string) (core.Goal, error)
		UpsertGoal(ctx context.Context, g core.Goal) error
	}

	ProfileStore = settings.Repository
)
