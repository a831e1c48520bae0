package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used for bill dates.
const DateLayout = "2006-01-02"

// DefaultCategory is assigned to line items that arrive without a category.
const DefaultCategory = "Other"

const (
	InputText  InputType = "text"
	InputVoice InputType = "voice"
	InputImage InputType = "image"
)

type (
	InputType string

	Date struct {
		time.Time
	}

	// RawExpense is one line item as emitted by the list-expenses endpoint.
	// Nothing about it is trusted.
	RawExpense struct {
		ID        string  `json:"id,omitempty"`
		StoreName *string `json:"store_name"`
		BillDate  string  `json:"bill_date"`
		ItemName  string  `json:"item_name"`
		Quantity  Number  `json:"quantity"`
		UnitPrice Number  `json:"unit_price"`
		Category  string  `json:"category"`
	}

	// Expense is a stored line item. Items recorded together from one bill
	// share a ReceiptID.
	Expense struct {
		ID        string
		ReceiptID string
		UserID    string
		StoreName string
		Date      Date
		ItemName  string
		Quantity  decimal.Decimal
		UnitPrice Number // may be absent while the price is still pending
		Category  string
		InputType InputType
		CreatedAt time.Time
	}

	// Goal is a user's savings goal for one calendar month.
	Goal struct {
		UserID      string
		Month       string // YYYY-MM
		Description string
		UpdatedAt   time.Time
	}
)

var (
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyItemName  = errors.New("empty item name")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyUserID    = errors.New("empty user id")
	ErrEmptyGoal      = errors.New("empty goal description")
	ErrInvalidInput   = errors.New("invalid input type")
	ErrMalformedDate  = errors.New("malformed date")
	ErrMissingPrice   = errors.New("missing unit price")
	ErrNoData         = errors.New("no data")
	ErrNotFound       = errors.New("not found")
	ErrInvalidYearMon = errors.New("invalid year-month")
)

// Categories offered to the user when recording an expense.
var Categories = []string{"Retail", "Food", "Clothing", "Travel", "Entertainment", "Utilities", DefaultCategory}

var yearMonthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD bill date. RFC 3339 timestamps are accepted
// and reduced to their calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// YearMonth formats the date as YYYY-MM.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

// DaysSince returns the whole number of days from d to other.
// Negative when other precedes d.
func (d Date) DaysSince(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// ValidateYearMonth checks a YYYY-MM month key.
func ValidateYearMonth(s string) error {
	if !yearMonthRe.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidYearMon, s)
	}
	return nil
}

func (t InputType) IsValid() bool {
	switch t {
	case InputText, InputVoice, InputImage:
		return true
	}
	return false
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.ItemName) == "" {
		return ErrEmptyItemName
	}
	if len(e.ItemName) > 200 {
		return errors.New("item name too long (max 200 characters)")
	}
	if e.Quantity.IsNegative() {
		return ErrInvalidAmount
	}
	if err := CheckAmount(e.Quantity); err != nil {
		return err
	}
	if e.UnitPrice.Valid {
		if e.UnitPrice.Decimal.IsNegative() {
			return ErrInvalidAmount
		}
		if err := CheckAmount(e.UnitPrice.Decimal); err != nil {
			return err
		}
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.InputType != "" && !e.InputType.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// Raw converts a stored expense into the list-endpoint shape.
func (e Expense) Raw() RawExpense {
	r := RawExpense{
		ID:        e.ID,
		BillDate:  e.Date.String(),
		ItemName:  e.ItemName,
		Quantity:  NewNumber(e.Quantity),
		UnitPrice: e.UnitPrice,
		Category:  e.Category,
	}
	if e.StoreName != "" {
		name := e.StoreName
		r.StoreName = &name
	}
	return r
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := ValidateYearMonth(g.Month); err != nil {
		return err
	}
	if strings.TrimSpace(g.Description) == "" {
		return ErrEmptyGoal
	}
	if len(g.Description) > 500 {
		return errors.New("goal description too long (max 500 characters)")
	}
	return nil
}
