package google

import (
	"fmt"
	"strings"
	"time"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// Expenses tab layout, one line item per row, header in row 1:
//
//	A ID | B Receipt | C User | D Date | E Store | F Item | G Quantity |
//	H Unit price | I Category | J Input | K Created | L Deleted
const (
	colID = iota
	colReceipt
	colUser
	colDate
	colStore
	colItem
	colQuantity
	colPrice
	colCategory
	colInput
	colCreated
	colDeleted
	expenseColumns
)

// ExpenseHeader is the header row expected in the expenses tab.
var ExpenseHeader = []string{"ID", "Receipt", "User", "Date", "Store", "Item", "Quantity", "Unit price", "Category", "Input", "Created", "Deleted"}

var (
	goalHeader    = []string{"User", "Month", "Goal", "Updated"}
	profileHeader = []string{"User", "Profile", "Updated"}
)

func expenseRow(e core.Expense) []any {
	created := ""
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		e.ID,
		e.ReceiptID,
		e.UserID,
		e.Date.String(),
		e.StoreName,
		e.ItemName,
		e.Quantity.String(),
		e.UnitPrice.String(),
		e.Category,
		string(e.InputType),
		created,
		"",
	}
}

// parseExpenseRows converts the expenses tab into live line items of one
// user. The header, deleted rows and rows with an unreadable date are
// skipped; a blank or unreadable price leaves the price absent.
func parseExpenseRows(rows [][]string, userID string) []core.Expense {
	var out []core.Expense
	for i, row := range rows {
		if i == 0 && strings.EqualFold(safeGet(row, colID), ExpenseHeader[colID]) {
			continue
		}
		if safeGet(row, colID) == "" || safeGet(row, colUser) != userID || safeGet(row, colDeleted) != "" {
			continue
		}
		date, err := core.ParseDate(safeGet(row, colDate))
		if err != nil {
			continue
		}
		e := core.Expense{
			ID:        safeGet(row, colID),
			ReceiptID: safeGet(row, colReceipt),
			UserID:    userID,
			StoreName: safeGet(row, colStore),
			Date:      date,
			ItemName:  safeGet(row, colItem),
			Quantity:  decimal.Zero,
			Category:  safeGet(row, colCategory),
			InputType: core.InputType(safeGet(row, colInput)),
		}
		if q, err := core.ParseAmount(safeGet(row, colQuantity)); err == nil {
			e.Quantity = q
		}
		if p, err := core.ParseAmount(safeGet(row, colPrice)); err == nil {
			e.UnitPrice = core.NewNumber(p)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, safeGet(row, colCreated))
		out = append(out, e)
	}
	return out
}

// parseColumn returns the non-empty, non-comment first cells, deduplicated
// in order.
func parseColumn(rows [][]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		v := safeGet(row, 0)
		if v == "" || strings.HasPrefix(v, "#") {
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

// findRow returns the 1-based sheet row of the first match, or -1.
func findRow(rows [][]string, match func([]string) bool) int {
	for i, row := range rows {
		if match(row) {
			return i + 1
		}
	}
	return -1
}

func matchID(id string) func([]string) bool {
	return func(row []string) bool { return id != "" && safeGet(row, 0) == id }
}

func matchPair(a, b string) func([]string) bool {
	return func(row []string) bool { return safeGet(row, 0) == a && safeGet(row, 1) == b }
}

func matchLive(userID, id string) func([]string) bool {
	return func(row []string) bool {
		return id != "" && safeGet(row, colID) == id && safeGet(row, colUser) == userID && safeGet(row, colDeleted) == ""
	}
}

// columnName converts a 1-based column count to its letter (1 -> A, 27 -> AA).
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
