package http

import (
	"fmt"
	"strings"

	"budgetcare/internal/core"
	"budgetcare/internal/services"
	"budgetcare/internal/settings"
)

// billItemRequest is one line of a bill. Amounts accept JSON numbers or
// numeric strings; anything else leaves them absent.
type billItemRequest struct {
	ItemName  string      `json:"item_name"`
	Quantity  core.Number `json:"quantity"`
	UnitPrice core.Number `json:"unit_price"`
	Category  string      `json:"category"`
}

func (it billItemRequest) toService() services.BillItem {
	return services.BillItem{
		ItemName:  sanitizeInput(it.ItemName),
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		Category:  sanitizeInput(it.Category),
	}
}

// billRequest is the body of POST /api/users/{userID}/expenses.
type billRequest struct {
	StoreName string            `json:"store_name"`
	BillDate  string            `json:"bill_date"`
	InputType string            `json:"input_type"`
	Items     []billItemRequest `json:"items"`
}

func (b billRequest) toService() services.Bill {
	bill := services.Bill{
		StoreName: sanitizeInput(b.StoreName),
		BillDate:  strings.TrimSpace(b.BillDate),
		InputType: core.InputType(strings.ToLower(strings.TrimSpace(b.InputType))),
		Items:     make([]services.BillItem, 0, len(b.Items)),
	}
	for _, it := range b.Items {
		bill.Items = append(bill.Items, it.toService())
	}
	return bill
}

// itemUpdateRequest is the body of PUT /api/users/{userID}/expenses/{id}.
type itemUpdateRequest struct {
	StoreName *string `json:"store_name"`
	BillDate  string  `json:"bill_date"`
	billItemRequest
}

func (u itemUpdateRequest) toService() services.ItemUpdate {
	upd := services.ItemUpdate{
		BillDate: strings.TrimSpace(u.BillDate),
		BillItem: u.billItemRequest.toService(),
	}
	if u.StoreName != nil {
		name := sanitizeInput(*u.StoreName)
		upd.StoreName = &name
	}
	return upd
}

// goalRequest is the body of PUT /api/users/{userID}/goals/{month}.
type goalRequest struct {
	Goal string `json:"goal"`
}

func (g goalRequest) toGoal(userID, month string) core.Goal {
	return core.Goal{
		UserID:      userID,
		Month:       strings.TrimSpace(month),
		Description: sanitizeInput(g.Goal),
	}
}

// profilePatchRequest is the body of PATCH /api/users/{userID}/profile:
// field updates applied in order.
type profilePatchRequest struct {
	Updates []settings.SetField `json:"updates"`
}

func (p profilePatchRequest) actions() ([]settings.Action, error) {
	if len(p.Updates) == 0 {
		return nil, fmt.Errorf("%w: no updates", errBadJSON)
	}
	out := make([]settings.Action, 0, len(p.Updates))
	for _, u := range p.Updates {
		out = append(out, settings.SetField{Field: strings.TrimSpace(u.Field), Value: u.Value})
	}
	return out, nil
}
