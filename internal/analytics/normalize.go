// Package analytics turns raw expense line items into the aggregates shown on
// the dashboard: daily and category totals, the trailing trend window and the
// KPI cards.
//
// Every function here is a pure function of its arguments. Callers fetch the
// raw records, run the pipeline and throw the result away when newer data
// arrives; nothing is cached or updated incrementally.
package analytics

import (
	"errors"
	"fmt"
	"strings"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// IssueKind classifies a per-record problem found during normalization.
type IssueKind string

const (
	IssueMalformedDate IssueKind = "malformed_date"
	IssueInvalidAmount IssueKind = "invalid_amount"
)

// Record is a validated, cost-bearing expense line ready for aggregation.
type Record struct {
	Date     core.Date
	Category string
	Cost     decimal.Decimal
}

// Issue reports a raw record that was excluded because of bad data.
type Issue struct {
	Index int    // position in the raw input
	ID    string // storage id of the raw record, when known
	Kind  IssueKind
	Err   error
}

func (i Issue) Error() string {
	return fmt.Sprintf("record %d: %v", i.Index, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// NormalizeResult holds the canonical records plus what was left out.
// Records without a unit price are expected (they are still waiting for a
// price upstream) so they are only counted, never reported as issues.
type NormalizeResult struct {
	Records      []Record
	Issues       []Issue
	MissingPrice int
}

// Normalize validates and coerces raw records. Records keep their input order.
// One bad record never stops the rest of the batch.
func Normalize(raw []core.RawExpense) NormalizeResult {
	res := NormalizeResult{Records: make([]Record, 0, len(raw))}
	for i, r := range raw {
		rec, err := normalizeOne(r)
		switch {
		case err == nil:
			res.Records = append(res.Records, rec)
		case errors.Is(err, core.ErrMissingPrice):
			res.MissingPrice++
		case errors.Is(err, core.ErrMalformedDate):
			res.Issues = append(res.Issues, Issue{Index: i, ID: r.ID, Kind: IssueMalformedDate, Err: err})
		default:
			res.Issues = append(res.Issues, Issue{Index: i, ID: r.ID, Kind: IssueInvalidAmount, Err: err})
		}
	}
	return res
}

func normalizeOne(r core.RawExpense) (Record, error) {
	if !r.UnitPrice.Valid {
		return Record{}, core.ErrMissingPrice
	}
	price := r.UnitPrice.Decimal
	qty := r.Quantity.Or(decimal.Zero)
	for _, d := range []decimal.Decimal{qty, price} {
		if d.IsNegative() {
			return Record{}, fmt.Errorf("%w: negative quantity or unit price", core.ErrInvalidAmount)
		}
		if err := core.CheckAmount(d); err != nil {
			return Record{}, err
		}
	}
	date, err := core.ParseDate(r.BillDate)
	if err != nil {
		return Record{}, err
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = core.DefaultCategory
	}
	return Record{Date: date, Category: category, Cost: qty.Mul(price)}, nil
}

// AsRaw reinterprets a canonical record as a raw one carrying the same cost.
func (r Record) AsRaw() core.RawExpense {
	return core.RawExpense{
		BillDate:  r.Date.String(),
		ItemName:  r.Category,
		Quantity:  core.NewNumber(decimal.NewFromInt(1)),
		UnitPrice: core.NewNumber(r.Cost),
		Category:  r.Category,
	}
}
