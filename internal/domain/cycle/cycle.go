// Package cycle holds billing cycles and the calculation of the next billing date.
package cycle

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCycle = errors.New("billing cycle must be one of weekly, monthly, yearly")

// Cycle is the recurrence period of a subscription.
type Cycle string

const (
	Weekly  Cycle = "weekly"
	Monthly Cycle = "monthly"
	Yearly  Cycle = "yearly"
)

// Parse validates s as a billing cycle.
func Parse(s string) (Cycle, error) {
	c := Cycle(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCycle, s)
	}
	return c, nil
}

func (c Cycle) Valid() bool {
	switch c {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// NextBillingDate returns the billing date that follows current.
// Monthly and yearly cycles keep the day of month and clamp it to the last
// day of the target month. The result is a UTC calendar date.
// Callers must validate c first.
func NextBillingDate(current time.Time, c Cycle) time.Time {
	y, m, d := current.Date()

	switch c {
	case Weekly:
		return time.Date(y, m, d+7, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return clamp(y, m+1, d)
	case Yearly:
		return clamp(y+1, m, d)
	}
	panic(fmt.Sprintf("cycle: unknown billing cycle %q", string(c)))
}

// clamp builds y-m-d, pulling d back to the end of month m when m is shorter.
func clamp(y int, m time.Month, d int) time.Time {
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
