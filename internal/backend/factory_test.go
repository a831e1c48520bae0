package backend

import (
	"context"
	"path/filepath"
	"testing"

	"budgetcare/internal/config"
	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "memory", DataDir: "seed"})
	if err != nil || cfg.Type != MemoryBackend || cfg.DataDirectory != "seed" {
		t.Fatalf("unexpected %+v err=%v", cfg, err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite amqp without queue", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", AMQPURL: "amqp://localhost", AMQPExchange: "e"}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
	if got := GetBackendTypeStrings(); len(got) != 3 {
		t.Fatalf("unexpected backend types %v", got)
	}
}

func exerciseBackend(t *testing.T, res *BackendResult) {
	t.Helper()
	ctx := context.Background()
	if err := res.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}
	id, err := res.Backend.Append(ctx, core.Expense{
		ReceiptID: "r1",
		UserID:    "u1",
		Date:      core.NewDate(2024, 1, 2),
		ItemName:  "Bread",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: core.NewNumber(decimal.RequireFromString("2.40")),
		Category:  "Food",
		InputType: core.InputText,
	})
	if err != nil || id == "" {
		t.Fatalf("append: id=%q err=%v", id, err)
	}
	list, err := res.Backend.ListExpenses(ctx, "u1")
	if err != nil || len(list) == 0 || list[len(list)-1].ID != id {
		t.Fatalf("list: %+v err=%v", list, err)
	}
	if cats, err := res.Backend.Categories(ctx); err != nil || len(cats) == 0 {
		t.Fatalf("categories: %v err=%v", cats, err)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Close()
	if res.Publisher != nil {
		t.Fatal("memory backend must not publish")
	}
	exerciseBackend(t, res)
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "b.db"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Close()
	if res.Publisher != nil {
		t.Fatal("no publisher expected without AMQP URL")
	}
	exerciseBackend(t, res)
}

func TestCreateBackendInvalid(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "nope"}); err == nil {
		t.Fatal("expected error")
	}
}
