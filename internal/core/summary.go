package core

import "github.com/shopspring/decimal"

// DayAmount is an amount aggregated by calendar date.
type DayAmount struct {
	Date   Date
	Amount decimal.Decimal
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthAmount is an amount aggregated by YYYY-MM month key.
type MonthAmount struct {
	Month  string
	Amount decimal.Decimal
}
