package settings

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// Field names accepted by SetField. They match the JSON keys of Profile.
const (
	FieldFirstName             = "firstName"
	FieldLastName              = "lastName"
	FieldEmail                 = "email"
	FieldAddress               = "address"
	FieldPhone                 = "phone"
	FieldIncome                = "income"
	FieldGetsPension           = "getsPension"
	FieldPensionAmount         = "pensionAmount"
	FieldInvestsInStocks       = "investsInStocks"
	FieldYearlyStockInvestment = "yearlyStockInvestment"
	FieldAdditionalDetails     = "additionalDetails"
	FieldLanguage              = "language"
	FieldLargeText             = "largeText"
	FieldHighContrast          = "highContrast"
	FieldVoiceInput            = "voiceInput"
	FieldDefaultWindowDays     = "defaultWindowDays"
)

// Action is a change to a Profile.
type Action interface {
	apply(Profile) (Profile, error)
}

// SetField changes one field from its form value.
type SetField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Loaded replaces the state with a profile read from storage.
type Loaded struct {
	Profile Profile
}

// Saved marks the state as persisted at the given time.
type Saved struct {
	At time.Time
}

// Reset discards unsaved changes by returning to the given persisted profile.
type Reset struct {
	Persisted Profile
}

// Reduce applies an action and returns the next state. On error the
// previous state is returned unchanged.
func Reduce(state Profile, action Action) (Profile, error) {
	next, err := action.apply(state)
	if err != nil {
		return state, err
	}
	return next, nil
}

// ReduceAll applies actions in order and stops at the first error.
func ReduceAll(state Profile, actions ...Action) (Profile, error) {
	for i, a := range actions {
		next, err := Reduce(state, a)
		if err != nil {
			return state, fmt.Errorf("action %d: %w", i, err)
		}
		state = next
	}
	return state, nil
}

func (a Loaded) apply(Profile) (Profile, error) {
	p := a.Profile
	p.Dirty = false
	return p, nil
}

func (a Reset) apply(Profile) (Profile, error) {
	p := a.Persisted
	p.Dirty = false
	return p, nil
}

func (a Saved) apply(p Profile) (Profile, error) {
	p.Dirty = false
	p.UpdatedAt = a.At
	return p, nil
}

func (a SetField) apply(p Profile) (Profile, error) {
	before := p
	v := strings.TrimSpace(a.Value)

	switch a.Field {
	case FieldFirstName:
		p.FirstName = v
	case FieldLastName:
		p.LastName = v
	case FieldEmail:
		p.Email = v
	case FieldAddress:
		p.Address = orNA(v)
	case FieldPhone:
		if v != "" && !phoneRe.MatchString(v) {
			return p, ErrInvalidPhone
		}
		p.Phone = orNA(v)
	case FieldIncome:
		if v != "" && (!digitsRe.MatchString(v) || checkAmount(v) != nil) {
			return p, ErrInvalidIncome
		}
		p.FinancialDetails.Income = orNA(v)
	case FieldPensionAmount:
		if err := checkAmount(v); err != nil {
			return p, err
		}
		p.FinancialDetails.PensionAmount = orNA(v)
	case FieldYearlyStockInvestment:
		if err := checkAmount(v); err != nil {
			return p, err
		}
		p.FinancialDetails.YearlyStockInvestment = orNA(v)
	case FieldAdditionalDetails:
		p.FinancialDetails.AdditionalDetails = orNA(v)
	case FieldGetsPension, FieldInvestsInStocks, FieldLargeText, FieldHighContrast, FieldVoiceInput:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("%s: %w", a.Field, ErrInvalidBool)
		}
		switch a.Field {
		case FieldGetsPension:
			p.FinancialDetails.GetsPension = b
		case FieldInvestsInStocks:
			p.FinancialDetails.InvestsInStocks = b
		case FieldLargeText:
			p.Preferences.LargeText = b
		case FieldHighContrast:
			p.Preferences.HighContrast = b
		case FieldVoiceInput:
			p.Preferences.VoiceInput = b
		}
	case FieldLanguage:
		if !slices.Contains(Languages, v) {
			return p, fmt.Errorf("%w: %q", ErrInvalidLang, v)
		}
		p.Preferences.Language = v
	case FieldDefaultWindowDays:
		n, err := strconv.Atoi(v)
		if err != nil || (n != 7 && n != 30) {
			return p, ErrInvalidWindow
		}
		p.Preferences.DefaultWindowDays = n
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownField, a.Field)
	}

	if p != before {
		p.Dirty = true
	}
	return p, nil
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func checkAmount(s string) error {
	if s == "" || s == NotAvailable {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || core.CheckAmount(d) != nil {
		return ErrInvalidAmount
	}
	return nil
}
