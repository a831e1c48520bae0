package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is an optional exact decimal decoded from untrusted JSON.
//
// Decoding never fails: null, booleans, objects, strings that are not
// numbers and literals longer than 64 characters all produce an invalid
// Number. A JSON number or a numeric string produces a valid one; callers
// still bound its magnitude with CheckAmount.
type Number struct {
	Decimal decimal.Decimal
	Valid   bool
}

const maxNumberLiteral = 64

// NewNumber returns a valid Number holding d.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: d, Valid: true}
}

// NumberFromFloat is a convenience for tests and fixtures.
func NumberFromFloat(f float64) Number {
	return NewNumber(decimal.NewFromFloat(f))
}

// Or returns the value, or def when the number is absent.
func (n Number) Or(def decimal.Decimal) decimal.Decimal {
	if !n.Valid {
		return def
	}
	return n.Decimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > maxNumberLiteral {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(u)
	} else if b[0] != '-' && (b[0] < '0' || b[0] > '9') {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	*n = NewNumber(d)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(json.Number(n.Decimal.String()))
}

func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return n.Decimal.String()
}
