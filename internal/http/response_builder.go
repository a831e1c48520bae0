package http

import (
	"encoding/json"
	"time"

	"budgetcare/internal/analytics"
	"budgetcare/internal/core"
	"budgetcare/internal/services"
	"budgetcare/internal/settings"
)

// expenseResponse is a stored line item as returned by the history and
// write endpoints. Absent values are null.
type expenseResponse struct {
	ID        string       `json:"id"`
	ReceiptID string       `json:"receipt_id,omitempty"`
	StoreName *string      `json:"store_name"`
	BillDate  string       `json:"bill_date"`
	ItemName  string       `json:"item_name"`
	Quantity  json.Number  `json:"quantity"`
	UnitPrice *json.Number `json:"unit_price"`
	Total     *json.Number `json:"total"`
	Category  string       `json:"category"`
	InputType string       `json:"input_type,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
}

func newExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{
		ID:        e.ID,
		ReceiptID: e.ReceiptID,
		BillDate:  e.Date.String(),
		ItemName:  e.ItemName,
		Quantity:  json.Number(e.Quantity.String()),
		Category:  e.Category,
		InputType: string(e.InputType),
	}
	if e.StoreName != "" {
		name := e.StoreName
		resp.StoreName = &name
	}
	if e.UnitPrice.Valid {
		price := json.Number(e.UnitPrice.Decimal.String())
		total := money(e.Quantity.Mul(e.UnitPrice.Decimal))
		resp.UnitPrice = &price
		resp.Total = &total
	}
	if !e.CreatedAt.IsZero() {
		at := e.CreatedAt.UTC()
		resp.CreatedAt = &at
	}
	return resp
}

func newExpenseList(items []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, newExpenseResponse(e))
	}
	return out
}

type dayPoint struct {
	Date   string      `json:"date"`
	Amount json.Number `json:"amount"`
}

type categoryPoint struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

type monthPoint struct {
	Month  string      `json:"month"`
	Amount json.Number `json:"amount"`
}

type heatPoint struct {
	Date      string      `json:"date"`
	Amount    json.Number `json:"amount"`
	Intensity int         `json:"intensity"`
}

type kpiResponse struct {
	TotalSpend        json.Number    `json:"total_spend"`
	AverageDailySpend json.Number    `json:"average_daily_spend"`
	HighestSpendDay   *dayPoint      `json:"highest_spend_day"`
	TopCategory       *categoryPoint `json:"top_category"`
}

type issueResponse struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type goalResponse struct {
	Month     string     `json:"month"`
	Goal      string     `json:"goal"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// dashboardResponse is the body of GET /api/users/{userID}/dashboard.
type dashboardResponse struct {
	WindowDays        int             `json:"window_days"`
	Today             string          `json:"today"`
	NoData            bool            `json:"no_data"`
	KPIs              kpiResponse     `json:"kpis"`
	Daily             []dayPoint      `json:"daily"`
	Trend             []dayPoint      `json:"trend"`
	Categories        []categoryPoint `json:"categories"`
	Monthly           []monthPoint    `json:"monthly"`
	Heatmap           []heatPoint     `json:"heatmap"`
	Issues            []issueResponse `json:"issues"`
	PendingPriceItems int             `json:"pending_price_items"`
	Goal              *goalResponse   `json:"goal"`
	MonthlyIncome     *json.Number    `json:"monthly_income"`
}

func dayPoints(series []core.DayAmount) []dayPoint {
	out := make([]dayPoint, 0, len(series))
	for _, p := range series {
		out = append(out, dayPoint{Date: p.Date.String(), Amount: money(p.Amount)})
	}
	return out
}

// newDashboardResponse renders the view. p may be nil; with a profile the
// monthly income appears next to the goal.
func newDashboardResponse(v services.DashboardView, p *settings.Profile) dashboardResponse {
	d := v.Dashboard
	resp := dashboardResponse{
		WindowDays:        d.Window.Days(),
		Today:             d.Now.String(),
		NoData:            d.NoData(),
		Daily:             dayPoints(d.Daily),
		Trend:             dayPoints(d.Trend),
		Categories:        make([]categoryPoint, 0, len(d.Categories)),
		Monthly:           make([]monthPoint, 0, len(d.Monthly)),
		Heatmap:           make([]heatPoint, 0, len(d.Heatmap)),
		Issues:            make([]issueResponse, 0, len(d.Issues)),
		PendingPriceItems: d.MissingPrice,
		KPIs:              newKPIResponse(d.KPIs),
	}
	for _, c := range d.Categories {
		resp.Categories = append(resp.Categories, categoryPoint{Category: c.Name, Amount: money(c.Amount)})
	}
	for _, m := range d.Monthly {
		resp.Monthly = append(resp.Monthly, monthPoint{Month: m.Month, Amount: money(m.Amount)})
	}
	for _, h := range d.Heatmap {
		resp.Heatmap = append(resp.Heatmap, heatPoint{Date: h.Date.String(), Amount: money(h.Amount), Intensity: int(h.Level)})
	}
	for _, is := range d.Issues {
		resp.Issues = append(resp.Issues, issueResponse{Index: is.Index, ID: is.ID, Kind: string(is.Kind), Error: is.Error()})
	}
	if v.Goal != nil {
		g := newGoalResponse(*v.Goal)
		resp.Goal = &g
	}
	if p != nil {
		if income, ok := p.MonthlyIncome(); ok {
			m := money(income)
			resp.MonthlyIncome = &m
		}
	}
	return resp
}

func newKPIResponse(k analytics.KPISummary) kpiResponse {
	resp := kpiResponse{
		TotalSpend:        money(k.TotalSpend),
		AverageDailySpend: money(k.AverageDailySpend),
	}
	if k.HighestSpendDay != nil {
		resp.HighestSpendDay = &dayPoint{Date: k.HighestSpendDay.Date.String(), Amount: money(k.HighestSpendDay.Amount)}
	}
	if k.TopCategory != nil {
		resp.TopCategory = &categoryPoint{Category: k.TopCategory.Name, Amount: money(k.TopCategory.Amount)}
	}
	return resp
}

func newGoalResponse(g core.Goal) goalResponse {
	resp := goalResponse{Month: g.Month, Goal: g.Description}
	if !g.UpdatedAt.IsZero() {
		at := g.UpdatedAt.UTC()
		resp.UpdatedAt = &at
	}
	return resp
}
