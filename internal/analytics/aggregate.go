package analytics

import (
	"sort"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// orderedSums accumulates amounts per key and remembers the order in which
// keys were first seen. That order is the tie-break for maxima.
type orderedSums[K comparable] struct {
	sums map[K]decimal.Decimal
	keys []K
}

func newOrderedSums[K comparable]() orderedSums[K] {
	return orderedSums[K]{sums: make(map[K]decimal.Decimal)}
}

func (o *orderedSums[K]) add(k K, v decimal.Decimal) {
	if o.sums == nil {
		o.sums = make(map[K]decimal.Decimal)
	}
	cur, ok := o.sums[k]
	if !ok {
		o.keys = append(o.keys, k)
		cur = decimal.Zero
	}
	o.sums[k] = cur.Add(v)
}

func (o orderedSums[K]) total() decimal.Decimal {
	t := decimal.Zero
	for _, k := range o.keys {
		t = t.Add(o.sums[k])
	}
	return t
}

// max returns the first-seen key holding the largest sum.
func (o orderedSums[K]) max() (K, decimal.Decimal, bool) {
	var (
		best    K
		bestAmt decimal.Decimal
	)
	if len(o.keys) == 0 {
		return best, bestAmt, false
	}
	best, bestAmt = o.keys[0], o.sums[o.keys[0]]
	for _, k := range o.keys[1:] {
		if v := o.sums[k]; v.GreaterThan(bestAmt) {
			best, bestAmt = k, v
		}
	}
	return best, bestAmt, true
}

// DailyTotals maps calendar dates to summed cost.
type DailyTotals struct {
	sums orderedSums[core.Date]
}

// Add adds amount to the total for date.
func (d *DailyTotals) Add(date core.Date, amount decimal.Decimal) {
	d.sums.add(core.DateOf(date.Time), amount)
}

// Len returns the number of distinct days.
func (d DailyTotals) Len() int { return len(d.sums.keys) }

// Get returns the total for a date.
func (d DailyTotals) Get(date core.Date) (decimal.Decimal, bool) {
	v, ok := d.sums.sums[core.DateOf(date.Time)]
	return v, ok
}

// Total sums every day.
func (d DailyTotals) Total() decimal.Decimal { return d.sums.total() }

// Entries returns the days in first-seen order.
func (d DailyTotals) Entries() []core.DayAmount {
	out := make([]core.DayAmount, 0, len(d.sums.keys))
	for _, k := range d.sums.keys {
		out = append(out, core.DayAmount{Date: k, Amount: d.sums.sums[k]})
	}
	return out
}

// Series returns the days sorted ascending by date, the order trend
// charts and the trailing window expect.
func (d DailyTotals) Series() []core.DayAmount {
	out := d.Entries()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// CategoryTotals maps category labels to summed cost.
type CategoryTotals struct {
	sums orderedSums[string]
}

// Add adds amount to the total for category.
func (c *CategoryTotals) Add(category string, amount decimal.Decimal) {
	c.sums.add(category, amount)
}

func (c CategoryTotals) Len() int { return len(c.sums.keys) }

func (c CategoryTotals) Get(category string) (decimal.Decimal, bool) {
	v, ok := c.sums.sums[category]
	return v, ok
}

func (c CategoryTotals) Total() decimal.Decimal { return c.sums.total() }

// Entries returns the categories in first-seen order.
func (c CategoryTotals) Entries() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(c.sums.keys))
	for _, k := range c.sums.keys {
		out = append(out, core.CategoryAmount{Name: k, Amount: c.sums.sums[k]})
	}
	return out
}

// Aggregate groups records into daily and category totals in a single pass.
// Empty input yields two empty aggregates.
func Aggregate(records []Record) (DailyTotals, CategoryTotals) {
	daily := DailyTotals{sums: newOrderedSums[core.Date]()}
	cats := CategoryTotals{sums: newOrderedSums[string]()}
	for _, r := range records {
		daily.Add(r.Date, r.Cost)
		cats.Add(r.Category, r.Cost)
	}
	return daily, cats
}
