// Package settings holds the user profile and preferences as a plain value
// plus a reducer. Rendering code and HTTP handlers never mutate a Profile in
// place: they describe a change as an Action, run it through Reduce and save
// the result explicitly through a Store.
package settings

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

// NotAvailable is stored in place of blank optional text fields.
const NotAvailable = "NA"

var (
	ErrInvalidPhone  = errors.New("phone number must be exactly 10 digits")
	ErrInvalidIncome = errors.New("annual income must be a valid number")
	ErrInvalidAmount = errors.New("amount must be a valid number")
	ErrUnknownField  = errors.New("unknown profile field")
	ErrInvalidBool   = errors.New("value must be true or false")
	ErrInvalidLang   = errors.New("unsupported language")
	ErrInvalidWindow = errors.New("default window must be 7 or 30")
)

var (
	phoneRe  = regexp.MustCompile(`^\d{10}$`)
	digitsRe = regexp.MustCompile(`^\d+$`)
)

// Languages the client ships translations for.
var Languages = []string{"en", "hi", "es"}

// FinancialDetails describes the user's income sources.
type FinancialDetails struct {
	Income                string `json:"income"`
	GetsPension           bool   `json:"getsPension"`
	PensionAmount         string `json:"pensionAmount"`
	InvestsInStocks       bool   `json:"investsInStocks"`
	YearlyStockInvestment string `json:"yearlyStockInvestment"`
	AdditionalDetails     string `json:"additionalDetails"`
}

// Preferences are the display options of the settings panel.
type Preferences struct {
	Language          string `json:"language"`
	LargeText         bool   `json:"largeText"`
	HighContrast      bool   `json:"highContrast"`
	VoiceInput        bool   `json:"voiceInput"`
	DefaultWindowDays int    `json:"defaultWindowDays"`
}

// Profile is the complete settings document for one user.
type Profile struct {
	UserID           string           `json:"userId"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Email            string           `json:"email"`
	Address          string           `json:"address"`
	Phone            string           `json:"phone"`
	FinancialDetails FinancialDetails `json:"financialDetails"`
	Preferences      Preferences      `json:"preferences"`
	UpdatedAt        time.Time        `json:"updatedAt"`

	// Dirty is set by every change and cleared when the profile is saved.
	Dirty bool `json:"hasChanges"`
}

// New returns the profile shown to a user who never saved one.
func New(userID string) Profile {
	return Profile{
		UserID:  userID,
		Address: NotAvailable,
		Phone:   NotAvailable,
		FinancialDetails: FinancialDetails{
			Income:                NotAvailable,
			PensionAmount:         NotAvailable,
			YearlyStockInvestment: NotAvailable,
			AdditionalDetails:     NotAvailable,
		},
		Preferences: Preferences{Language: "en", VoiceInput: true, DefaultWindowDays: 30},
	}
}

// Validate checks the fields the profile form refuses to submit.
func (p Profile) Validate() error {
	if p.Phone != NotAvailable && p.Phone != "" && !phoneRe.MatchString(p.Phone) {
		return ErrInvalidPhone
	}
	if p.FinancialDetails.Income != NotAvailable && p.FinancialDetails.Income != "" && !digitsRe.MatchString(p.FinancialDetails.Income) {
		return ErrInvalidIncome
	}
	if w := p.Preferences.DefaultWindowDays; w != 0 && w != 7 && w != 30 {
		return ErrInvalidWindow
	}
	return nil
}

// Sanitized replaces blank optional text with NotAvailable, the form the
// profile is persisted in.
func (p Profile) Sanitized() Profile {
	na := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return NotAvailable
		}
		return s
	}
	p.Address = na(p.Address)
	p.Phone = na(p.Phone)
	p.FinancialDetails.Income = na(p.FinancialDetails.Income)
	p.FinancialDetails.PensionAmount = na(p.FinancialDetails.PensionAmount)
	p.FinancialDetails.YearlyStockInvestment = na(p.FinancialDetails.YearlyStockInvestment)
	p.FinancialDetails.AdditionalDetails = na(p.FinancialDetails.AdditionalDetails)
	return p
}

// AnnualIncome returns the income as a number when one was given.
func (p Profile) AnnualIncome() (decimal.Decimal, bool) {
	return amountOf(p.FinancialDetails.Income)
}

// MonthlyIncome adds the pension to the annual income and spreads it over
// twelve months.
func (p Profile) MonthlyIncome() (decimal.Decimal, bool) {
	total, ok := p.AnnualIncome()
	if p.FinancialDetails.GetsPension {
		if pension, pok := amountOf(p.FinancialDetails.PensionAmount); pok {
			total = total.Add(pension)
			ok = true
		}
	}
	if !ok {
		return decimal.Zero, false
	}
	return total.Div(decimal.NewFromInt(12)), true
}

func amountOf(s string) (decimal.Decimal, bool) {
	if s == "" || s == NotAvailable {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || core.CheckAmount(d) != nil {
		return decimal.Zero, false
	}
	return d, true
}
