package analytics

import (
	"time"

	"budgetcare/internal/core"
)

// Options controls a dashboard build.
type Options struct {
	Window Window    // trailing trend window; zero means Month
	Now    core.Date // reference day for the window; zero means today (UTC)
}

// Dashboard is everything the dashboard view renders, derived from one
// snapshot of raw records.
type Dashboard struct {
	Window       Window
	Now          core.Date
	Daily        []core.DayAmount // ascending
	Trend        []core.DayAmount // Daily restricted to the trailing window
	Categories   []core.CategoryAmount
	Monthly      []core.MonthAmount
	Heatmap      []HeatCell
	KPIs         KPISummary
	Issues       []Issue
	MissingPrice int
}

// NoData reports whether there was nothing to aggregate.
func (d Dashboard) NoData() bool {
	return len(d.Daily) == 0
}

// Build runs the full pipeline: normalize, aggregate, filter, derive.
// It returns core.ErrNoData together with a usable, empty dashboard when no
// record survived normalization.
func Build(raw []core.RawExpense, opts Options) (Dashboard, error) {
	if opts.Window == 0 {
		opts.Window = Month
	}
	if err := opts.Window.Validate(); err != nil {
		return Dashboard{}, err
	}
	if opts.Now.IsZero() {
		opts.Now = core.DateOf(time.Now().UTC())
	}

	norm := Normalize(raw)
	daily, cats := Aggregate(norm.Records)
	series := daily.Series()

	kpis, err := DeriveKPIs(daily, cats)
	return Dashboard{
		Window:       opts.Window,
		Now:          opts.Now,
		Daily:        series,
		Trend:        FilterTrailing(series, opts.Window, opts.Now),
		Categories:   cats.Entries(),
		Monthly:      MonthlyTotals(daily),
		Heatmap:      Heatmap(series),
		KPIs:         kpis,
		Issues:       norm.Issues,
		MissingPrice: norm.MissingPrice,
	}, err
}
