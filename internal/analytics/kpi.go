package analytics

import (
	"fmt"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// KPISummary holds the four dashboard cards. HighestSpendDay and TopCategory
// are nil when there was nothing to rank.
type KPISummary struct {
	TotalSpend        decimal.Decimal
	AverageDailySpend decimal.Decimal
	HighestSpendDay   *core.DayAmount
	TopCategory       *core.CategoryAmount
}

// DeriveKPIs computes the summary figures from the two aggregates.
//
// When several days or categories share the maximum, the one seen first
// during aggregation wins. An empty aggregate yields core.ErrNoData along
// with whatever could still be computed; callers render a "no data" state
// instead of zero-filled cards.
func DeriveKPIs(daily DailyTotals, categories CategoryTotals) (KPISummary, error) {
	var s KPISummary
	s.TotalSpend = daily.Total()
	s.AverageDailySpend = decimal.Zero
	if n := daily.Len(); n > 0 {
		s.AverageDailySpend = s.TotalSpend.Div(decimal.NewFromInt(int64(n)))
	}

	if date, amt, ok := daily.sums.max(); ok {
		s.HighestSpendDay = &core.DayAmount{Date: date, Amount: amt}
	}
	if name, amt, ok := categories.sums.max(); ok {
		s.TopCategory = &core.CategoryAmount{Name: name, Amount: amt}
	}

	switch {
	case s.HighestSpendDay == nil && s.TopCategory == nil:
		return s, core.ErrNoData
	case s.HighestSpendDay == nil:
		return s, fmt.Errorf("daily totals: %w", core.ErrNoData)
	case s.TopCategory == nil:
		return s, fmt.Errorf("category totals: %w", core.ErrNoData)
	}
	return s, nil
}
