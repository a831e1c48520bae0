package analytics

import (
	"sort"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// Intensity is the colour level of a calendar heatmap cell.
type Intensity int

const (
	IntensityNone Intensity = iota
	IntensityLow
	IntensityMedium
	IntensityHigh
)

var (
	lowCeiling    = decimal.NewFromInt(300)
	mediumCeiling = decimal.NewFromInt(600)
)

// HeatCell is one day of the spending heatmap.
type HeatCell struct {
	Date   core.Date
	Amount decimal.Decimal
	Level  Intensity
}

// IntensityOf buckets a daily amount: nothing spent, under 300, under 600,
// anything above.
func IntensityOf(amount decimal.Decimal) Intensity {
	switch {
	case amount.Sign() <= 0:
		return IntensityNone
	case amount.LessThan(lowCeiling):
		return IntensityLow
	case amount.LessThan(mediumCeiling):
		return IntensityMedium
	default:
		return IntensityHigh
	}
}

// Heatmap maps an ascending daily series to heatmap cells.
func Heatmap(series []core.DayAmount) []HeatCell {
	out := make([]HeatCell, 0, len(series))
	for _, p := range series {
		out = append(out, HeatCell{Date: p.Date, Amount: p.Amount, Level: IntensityOf(p.Amount)})
	}
	return out
}

// MonthlyTotals rolls daily totals up to YYYY-MM months, ascending.
func MonthlyTotals(daily DailyTotals) []core.MonthAmount {
	var months orderedSums[string]
	for _, p := range daily.Entries() {
		months.add(p.Date.YearMonth(), p.Amount)
	}
	out := make([]core.MonthAmount, 0, len(months.keys))
	for _, k := range months.keys {
		out = append(out, core.MonthAmount{Month: k, Amount: months.sums[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
