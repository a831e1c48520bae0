package main

import (
	"budgetcare/internal/core"

	"github.com/shopspring/decimal"
)

func amount(d decimal.Decimal) string {
	return core.FormatAmount(core.RoundCents(d))
}
