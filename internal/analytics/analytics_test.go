package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func num(s string) core.Number { return core.NewNumber(dec(s)) }

func raw(date, item, qty, price, category string) core.RawExpense {
	r := core.RawExpense{BillDate: date, ItemName: item, Category: category}
	if qty != "" {
		r.Quantity = num(qty)
	}
	if price != "" {
		r.UnitPrice = num(price)
	}
	return r
}

func scenario() []core.RawExpense {
	return []core.RawExpense{
		raw("2024-01-01", "Rent", "1", "1200", "Housing"),
		raw("2024-01-01", "Milk", "2", "3", "Groceries"),
		raw("2024-01-02", "Gas", "10", "4", "Transportation"),
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s got %s", want, got)
}

func TestPipelineScenario(t *testing.T) {
	norm := Normalize(scenario())
	require.Len(t, norm.Records, 3)
	require.Empty(t, norm.Issues)

	daily, cats := Aggregate(norm.Records)
	require.Equal(t, 2, daily.Len())
	v, ok := daily.Get(core.NewDate(2024, 1, 1))
	require.True(t, ok)
	assertDec(t, "1206", v)
	v, _ = daily.Get(core.NewDate(2024, 1, 2))
	assertDec(t, "40", v)

	want := map[string]string{"Housing": "1200", "Groceries": "6", "Transportation": "40"}
	require.Equal(t, len(want), cats.Len())
	for name, amt := range want {
		got, ok := cats.Get(name)
		require.True(t, ok, name)
		assertDec(t, amt, got)
	}

	kpis, err := DeriveKPIs(daily, cats)
	require.NoError(t, err)
	assertDec(t, "1246", kpis.TotalSpend)
	assertDec(t, "623", kpis.AverageDailySpend)
	require.NotNil(t, kpis.HighestSpendDay)
	assert.Equal(t, "2024-01-01", kpis.HighestSpendDay.Date.String())
	assertDec(t, "1206", kpis.HighestSpendDay.Amount)
	require.NotNil(t, kpis.TopCategory)
	assert.Equal(t, "Housing", kpis.TopCategory.Name)
	assertDec(t, "1200", kpis.TopCategory.Amount)
}

func TestNullPriceExcluded(t *testing.T) {
	in := scenario()
	in = append(in[:1], append([]core.RawExpense{raw("2024-01-01", "Mystery", "5", "", "Housing")}, in[1:]...)...)

	norm := Normalize(in)
	assert.Len(t, norm.Records, 3)
	assert.Empty(t, norm.Issues)
	assert.Equal(t, 1, norm.MissingPrice)

	daily, cats := Aggregate(norm.Records)
	assertDec(t, "1246", daily.Total())
	h, _ := cats.Get("Housing")
	assertDec(t, "1200", h)
}

func TestNormalizeEdgeCases(t *testing.T) {
	in := []core.RawExpense{
		raw("2024-01-03", "Free sample", "", "2.5", "Food"), // quantity missing
		raw("not-a-date", "Bad", "1", "1", "Food"),
		raw("2024-01-04", "Uncategorised", "1", "7", "  "),
		raw("2024-01-05", "Refund", "1", "-3", "Food"),
		raw("2024-01-06T10:00:00Z", "Timestamp", "1", "1", "Food"),
	}
	in[1].ID = "bad-1"

	norm := Normalize(in)
	require.Len(t, norm.Records, 3)

	assert.True(t, norm.Records[0].Cost.IsZero())
	assert.Equal(t, "2024-01-03", norm.Records[0].Date.String())
	assert.Equal(t, core.DefaultCategory, norm.Records[1].Category)
	assert.Equal(t, "2024-01-06", norm.Records[2].Date.String())

	require.Len(t, norm.Issues, 2)
	assert.Equal(t, IssueMalformedDate, norm.Issues[0].Kind)
	assert.Equal(t, 1, norm.Issues[0].Index)
	assert.Equal(t, "bad-1", norm.Issues[0].ID)
	assert.True(t, errors.Is(norm.Issues[0], core.ErrMalformedDate))
	assert.Equal(t, IssueInvalidAmount, norm.Issues[1].Kind)
	assert.ErrorIs(t, norm.Issues[1].Err, core.ErrInvalidAmount)
}

func TestOversizedAmountsAreIssues(t *testing.T) {
	doc := `[
		{"bill_date":"2024-01-01","item_name":"Typo","quantity":"1e2000000000","unit_price":"1e2000000000","category":"Food"},
		{"bill_date":"2024-01-01","item_name":"Scan","quantity":1,"unit_price":"1e50000000","category":"Food"},
		{"bill_date":"2024-01-01","item_name":"Tiny","quantity":1,"unit_price":"0.0000001","category":"Food"},
		{"bill_date":"2024-01-01","item_name":"Milk","quantity":2,"unit_price":3,"category":"Food"}
	]`
	var in []core.RawExpense
	require.NoError(t, json.Unmarshal([]byte(doc), &in))

	var norm NormalizeResult
	require.NotPanics(t, func() { norm = Normalize(in) })
	require.Len(t, norm.Records, 1)
	assertDec(t, "6", norm.Records[0].Cost)
	require.Len(t, norm.Issues, 3)
	for i, is := range norm.Issues {
		assert.Equal(t, i, is.Index)
		assert.Equal(t, IssueInvalidAmount, is.Kind)
		assert.ErrorIs(t, is, core.ErrInvalidAmount)
	}

	d, err := Build(in, Options{Window: Week, Now: core.NewDate(2024, 1, 2)})
	require.NoError(t, err)
	assert.Equal(t, "6.00", core.FormatAmount(core.RoundCents(d.KPIs.TotalSpend)))
}

func TestNormalizePreservesOrder(t *testing.T) {
	in := []core.RawExpense{
		raw("2024-03-01", "c", "1", "3", "C"),
		raw("2024-01-01", "a", "1", "1", "A"),
		raw("2024-02-01", "b", "1", "2", "B"),
	}
	norm := Normalize(in)
	require.Len(t, norm.Records, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{norm.Records[0].Category, norm.Records[1].Category, norm.Records[2].Category})
}

func TestEmptyInput(t *testing.T) {
	norm := Normalize(nil)
	daily, cats := Aggregate(norm.Records)
	assert.Zero(t, daily.Len())
	assert.Zero(t, cats.Len())

	kpis, err := DeriveKPIs(daily, cats)
	require.ErrorIs(t, err, core.ErrNoData)
	assert.True(t, kpis.TotalSpend.IsZero())
	assert.True(t, kpis.AverageDailySpend.IsZero())
	assert.Nil(t, kpis.HighestSpendDay)
	assert.Nil(t, kpis.TopCategory)
}

func TestDeriveKPIsPartialData(t *testing.T) {
	var daily DailyTotals
	daily.Add(core.NewDate(2024, 1, 1), dec("5"))
	kpis, err := DeriveKPIs(daily, CategoryTotals{})
	require.ErrorIs(t, err, core.ErrNoData)
	require.NotNil(t, kpis.HighestSpendDay)
	assert.Nil(t, kpis.TopCategory)
}

func TestTieBreakFirstSeen(t *testing.T) {
	in := []core.RawExpense{
		raw("2024-01-05", "x", "1", "10", "Travel"),
		raw("2024-01-02", "y", "1", "10", "Food"),
		raw("2024-01-09", "z", "1", "4", "Retail"),
	}
	daily, cats := Aggregate(Normalize(in).Records)
	kpis, err := DeriveKPIs(daily, cats)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", kpis.HighestSpendDay.Date.String())
	assert.Equal(t, "Travel", kpis.TopCategory.Name)

	// Reversing the input flips the winner.
	in[0], in[1] = in[1], in[0]
	daily, cats = Aggregate(Normalize(in).Records)
	kpis, err = DeriveKPIs(daily, cats)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", kpis.HighestSpendDay.Date.String())
	assert.Equal(t, "Food", kpis.TopCategory.Name)
}

func TestSeriesAscending(t *testing.T) {
	in := []core.RawExpense{
		raw("2024-02-10", "a", "1", "1", "A"),
		raw("2023-12-31", "b", "1", "1", "A"),
		raw("2024-01-15", "c", "1", "1", "A"),
	}
	daily, _ := Aggregate(Normalize(in).Records)
	s := daily.Series()
	require.Len(t, s, 3)
	assert.Equal(t, "2023-12-31", s[0].Date.String())
	assert.Equal(t, "2024-01-15", s[1].Date.String())
	assert.Equal(t, "2024-02-10", s[2].Date.String())
	assert.Equal(t, "2024-02-10", daily.Entries()[0].Date.String())
}

func TestFilterTrailing(t *testing.T) {
	now := core.NewDate(2024, 1, 31)
	series := []core.DayAmount{
		{Date: core.NewDate(2023, 12, 31), Amount: dec("1")}, // 31 days back
		{Date: core.NewDate(2024, 1, 1), Amount: dec("2")},   // 30 days back
		{Date: core.NewDate(2024, 1, 24), Amount: dec("3")},  // 7 days back
		{Date: core.NewDate(2024, 1, 25), Amount: dec("4")},
		{Date: core.NewDate(2024, 1, 31), Amount: dec("5")},
		{Date: core.NewDate(2024, 2, 1), Amount: dec("6")}, // future
	}

	cases := []struct {
		name  string
		w     Window
		now   core.Date
		dates []string
	}{
		{"week", Week, now, []string{"2024-01-24", "2024-01-25", "2024-01-31"}},
		{"month", Month, now, []string{"2024-01-01", "2024-01-24", "2024-01-25", "2024-01-31"}},
		{"now before data", Week, core.NewDate(2023, 1, 1), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterTrailing(series, tc.w, tc.now)
			require.NotNil(t, got)
			var dates []string
			for _, p := range got {
				dates = append(dates, p.Date.String())
			}
			assert.Equal(t, tc.dates, dates)
		})
	}
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		in   string
		want Window
		ok   bool
	}{
		{"7", Week, true},
		{"30", Month, true},
		{" week ", Week, true},
		{"MONTH", Month, true},
		{"14", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseWindow(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidWindow, tc.in)
	}
}

func TestIntensityOf(t *testing.T) {
	cases := map[string]Intensity{
		"0":      IntensityNone,
		"0.01":   IntensityLow,
		"299.99": IntensityLow,
		"300":    IntensityMedium,
		"599.99": IntensityMedium,
		"600":    IntensityHigh,
		"1206":   IntensityHigh,
	}
	for amt, want := range cases {
		assert.Equal(t, want, IntensityOf(dec(amt)), amt)
	}
}

func TestMonthlyTotals(t *testing.T) {
	in := []core.RawExpense{
		raw("2024-02-03", "a", "1", "5", "A"),
		raw("2024-01-10", "b", "1", "7", "A"),
		raw("2024-02-20", "c", "2", "1.5", "A"),
	}
	daily, _ := Aggregate(Normalize(in).Records)
	months := MonthlyTotals(daily)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-01", months[0].Month)
	assertDec(t, "7", months[0].Amount)
	assert.Equal(t, "2024-02", months[1].Month)
	assertDec(t, "8", months[1].Amount)
}

func TestBuild(t *testing.T) {
	in := append(scenario(), raw("garbage", "x", "1", "1", "A"), raw("2024-01-02", "pending", "1", "", "A"))
	d, err := Build(in, Options{Window: Week, Now: core.NewDate(2024, 1, 9)})
	require.NoError(t, err)
	assert.False(t, d.NoData())
	assert.Len(t, d.Daily, 2)
	require.Len(t, d.Trend, 1)
	assert.Equal(t, "2024-01-02", d.Trend[0].Date.String())
	assert.Len(t, d.Categories, 3)
	assert.Equal(t, "Housing", d.Categories[0].Name)
	require.Len(t, d.Heatmap, 2)
	assert.Equal(t, IntensityHigh, d.Heatmap[0].Level)
	assert.Equal(t, IntensityLow, d.Heatmap[1].Level)
	assert.Len(t, d.Issues, 1)
	assert.Equal(t, 1, d.MissingPrice)
	assertDec(t, "1246", d.KPIs.TotalSpend)
}

func TestBuildNoData(t *testing.T) {
	d, err := Build([]core.RawExpense{raw("2024-01-01", "x", "1", "", "A")}, Options{})
	require.ErrorIs(t, err, core.ErrNoData)
	assert.True(t, d.NoData())
	assert.Equal(t, Month, d.Window)
	assert.False(t, d.Now.IsZero())
	assert.Equal(t, 1, d.MissingPrice)
}

func TestBuildRejectsWindow(t *testing.T) {
	_, err := Build(scenario(), Options{Window: 14})
	require.ErrorIs(t, err, ErrInvalidWindow)
}

// randomRaw produces a reproducible batch of raw records, some of them broken.
func randomRaw(rng *rand.Rand, n int) []core.RawExpense {
	cats := append([]string{""}, core.Categories...)
	out := make([]core.RawExpense, 0, n)
	for i := 0; i < n; i++ {
		date := core.NewDate(2024, 1+rng.Intn(3), 1+rng.Intn(28)).String()
		if rng.Intn(20) == 0 {
			date = "??"
		}
		r := core.RawExpense{
			BillDate: date,
			ItemName: fmt.Sprintf("item-%d", i),
			Category: cats[rng.Intn(len(cats))],
		}
		if rng.Intn(10) != 0 {
			r.Quantity = core.NewNumber(decimal.NewFromInt(int64(rng.Intn(5))))
		}
		if rng.Intn(8) != 0 {
			r.UnitPrice = core.NewNumber(decimal.New(int64(rng.Intn(100000)), -2))
		}
		out = append(out, r)
	}
	return out
}

func TestPropertyDailySumEqualsCategorySum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		daily, cats := Aggregate(Normalize(randomRaw(rng, 1+rng.Intn(60))).Records)
		require.True(t, daily.Total().Equal(cats.Total()), "iteration %d: %s != %s", i, daily.Total(), cats.Total())
	}
}

func TestPropertyNormalizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		first := Normalize(randomRaw(rng, 40)).Records
		again := make([]core.RawExpense, 0, len(first))
		for _, r := range first {
			again = append(again, r.AsRaw())
		}
		second := Normalize(again)
		require.Empty(t, second.Issues)
		require.Len(t, second.Records, len(first))
		for j := range first {
			require.True(t, first[j].Cost.Equal(second.Records[j].Cost))
			require.Equal(t, first[j].Date, second.Records[j].Date)
			require.Equal(t, first[j].Category, second.Records[j].Category)
		}
	}
}

func TestPropertyMonthWindowKeepsRecentSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	now := core.NewDate(2024, 6, 30)
	for i := 0; i < 100; i++ {
		var daily DailyTotals
		for j := 0; j < 1+rng.Intn(10); j++ {
			daily.Add(core.NewDate(2024, 6, 30-rng.Intn(8)), decimal.NewFromInt(int64(rng.Intn(50))))
		}
		series := daily.Series()
		assert.Equal(t, series, FilterTrailing(series, Month, now))
	}
}

func TestPropertySingleDayAverageEqualsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		in := randomRaw(rng, 20)
		for j := range in {
			in[j].BillDate = "2024-04-04"
		}
		daily, cats := Aggregate(Normalize(in).Records)
		kpis, err := DeriveKPIs(daily, cats)
		if daily.Len() == 0 {
			require.ErrorIs(t, err, core.ErrNoData)
			continue
		}
		require.NoError(t, err)
		require.True(t, kpis.AverageDailySpend.Equal(kpis.TotalSpend))
	}
}
