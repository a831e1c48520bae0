package analytics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budgetcare/internal/core"
)

// Window is the length of a trailing trend window in days.
type Window int

const (
	Week  Window = 7
	Month Window = 30
)

var ErrInvalidWindow = errors.New("invalid window")

// ParseWindow accepts "7", "30", "week" or "month".
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	w := Window(n)
	if err := w.Validate(); err != nil {
		return 0, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w != Week && w != Month {
		return fmt.Errorf("%w: %d days (supported: 7, 30)", ErrInvalidWindow, int(w))
	}
	return nil
}

func (w Window) Days() int { return int(w) }

// FilterTrailing keeps the days of an ascending series that fall within the
// trailing window ending at now. The boundary day is included and days after
// now are not, so a now that precedes every record gives an empty result.
// Missing days are not filled in.
func FilterTrailing(series []core.DayAmount, w Window, now core.Date) []core.DayAmount {
	now = core.DateOf(now.Time)
	out := make([]core.DayAmount, 0, len(series))
	for _, p := range series {
		age := p.Date.DaysSince(now)
		if age >= 0 && age <= w.Days() {
			out = append(out, p)
		}
	}
	return out
}
