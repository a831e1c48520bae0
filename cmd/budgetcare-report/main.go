// Command budgetcare-report prints the spending dashboard for a JSON export
// of expense records without starting the API.
//
//	budgetcare-report -window 7 -now 2024-01-09 expenses.json
//	cat expenses.json | budgetcare-report -format json
//
// Exit status is 2 when no record could be aggregated.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"budgetcare/internal/analytics"
	"budgetcare/internal/core"
	"budgetcare/internal/log"
)

const (
	exitOK     = 0
	exitError  = 1
	exitNoData = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := log.New(log.Config{Component: log.ComponentReport, Output: stderr, Level: log.ParseLevel(os.Getenv("LOG_LEVEL"))})

	fs := flag.NewFlagSet("budgetcare-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	windowFlag := fs.String("window", "30", "trailing trend window: 7, 30, week or month")
	nowFlag := fs.String("now", "", "reference day YYYY-MM-DD (default today, UTC)")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	window, err := analytics.ParseWindow(*windowFlag)
	if err != nil {
		logger.Error("Invalid window", log.FieldWindow, *windowFlag, log.FieldError, err)
		return exitError
	}
	var now core.Date
	if *nowFlag != "" {
		if now, err = core.ParseDate(*nowFlag); err != nil {
			logger.Error("Invalid reference day", log.FieldError, err)
			return exitError
		}
	}

	raw, err := readRecords(fs.Arg(0), stdin)
	if err != nil {
		logger.Error("Failed to read records", log.FieldError, err)
		return exitError
	}

	dash, err := analytics.Build(raw, analytics.Options{Window: window, Now: now})
	if err != nil && !errors.Is(err, core.ErrNoData) {
		logger.Error("Failed to build dashboard", log.FieldError, err)
		return exitError
	}
	for _, is := range dash.Issues {
		logger.Warn("Skipped record", log.FieldIndex, is.Index, log.FieldIssueKind, is.Kind, log.FieldError, is.Err)
	}

	switch *format {
	case "json":
		err = writeJSONReport(stdout, dash)
	case "text":
		err = writeTextReport(stdout, dash)
	default:
		logger.Error("Unknown format", "format", *format)
		return exitError
	}
	if err != nil {
		logger.Error("Failed to write report", log.FieldError, err)
		return exitError
	}

	if dash.NoData() {
		return exitNoData
	}
	return exitOK
}

// readRecords decodes a JSON array of records from path, or from stdin when
// path is empty or "-".
func readRecords(path string, stdin io.Reader) ([]core.RawExpense, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var raw []core.RawExpense
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return raw, nil
}

func writeTextReport(w io.Writer, d analytics.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Window\t%d days ending %s\n", d.Window.Days(), d.Now)
	if d.NoData() {
		fmt.Fprintln(tw, "No data\t")
		return tw.Flush()
	}

	k := d.KPIs
	fmt.Fprintf(tw, "Total spend\t%s\n", amount(k.TotalSpend))
	fmt.Fprintf(tw, "Average daily spend\t%s\n", amount(k.AverageDailySpend))
	if k.HighestSpendDay != nil {
		fmt.Fprintf(tw, "Highest spend day\t%s (%s)\n", k.HighestSpendDay.Date, amount(k.HighestSpendDay.Amount))
	}
	if k.TopCategory != nil {
		fmt.Fprintf(tw, "Top category\t%s (%s)\n", k.TopCategory.Name, amount(k.TopCategory.Amount))
	}
	if d.MissingPrice > 0 {
		fmt.Fprintf(tw, "Items awaiting price\t%d\n", d.MissingPrice)
	}

	fmt.Fprintln(tw, "\nCategory\tAmount")
	for _, c := range d.Categories {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, amount(c.Amount))
	}
	fmt.Fprintln(tw, "\nDay\tAmount")
	for _, p := range d.Trend {
		fmt.Fprintf(tw, "%s\t%s\n", p.Date, amount(p.Amount))
	}
	return tw.Flush()
}

type jsonPoint struct {
	Key    string      `json:"key"`
	Amount json.Number `json:"amount"`
}

type jsonReport struct {
	WindowDays        int         `json:"window_days"`
	Today             string      `json:"today"`
	NoData            bool        `json:"no_data"`
	TotalSpend        json.Number `json:"total_spend"`
	AverageDailySpend json.Number `json:"average_daily_spend"`
	HighestSpendDay   *jsonPoint  `json:"highest_spend_day"`
	TopCategory       *jsonPoint  `json:"top_category"`
	Categories        []jsonPoint `json:"categories"`
	Trend             []jsonPoint `json:"trend"`
	Issues            int         `json:"issues"`
	PendingPriceItems int         `json:"pending_price_items"`
}

func writeJSONReport(w io.Writer, d analytics.Dashboard) error {
	rep := jsonReport{
		WindowDays:        d.Window.Days(),
		Today:             d.Now.String(),
		NoData:            d.NoData(),
		TotalSpend:        json.Number(amount(d.KPIs.TotalSpend)),
		AverageDailySpend: json.Number(amount(d.KPIs.AverageDailySpend)),
		Categories:        []jsonPoint{},
		Trend:             []jsonPoint{},
		Issues:            len(d.Issues),
		PendingPriceItems: d.MissingPrice,
	}
	if p := d.KPIs.HighestSpendDay; p != nil {
		rep.HighestSpendDay = &jsonPoint{Key: p.Date.String(), Amount: json.Number(amount(p.Amount))}
	}
	if c := d.KPIs.TopCategory; c != nil {
		rep.TopCategory = &jsonPoint{Key: c.Name, Amount: json.Number(amount(c.Amount))}
	}
	for _, c := range d.Categories {
		rep.Categories = append(rep.Categories, jsonPoint{Key: c.Name, Amount: json.Number(amount(c.Amount))})
	}
	for _, p := range d.Trend {
		rep.Trend = append(rep.Trend, jsonPoint{Key: p.Date.String(), Amount: json.Number(amount(p.Amount))})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
