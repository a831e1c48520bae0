package backend

import (
	"context"

	"budgetcare/internal/services"
	"budgetcare/internal/sheets"
)

// Backend is the full storage surface the API needs: line items, the
// category taxonomy, monthly goals and user profiles.
type Backend interface {
	sheets.ExpenseWriter
	sheets.ExpenseLister
	sheets.ExpenseEditor
	sheets.TaxonomyReader
	sheets.GoalStore
	sheets.ProfileStore
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult bundles a backend with what travels alongside it.
type BackendResult struct {
	Backend Backend
	// Publisher is nil unless the backend announces writes over AMQP.
	Publisher services.Publisher
	// Ready reports whether the backend can serve traffic. Never nil.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific; credentials are read from the environment.
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory backend seed directory
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
