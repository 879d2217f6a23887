package calc

import (
	"sort"
	"time"

	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/shopspring/decimal"
)

// BreakLine describes one synthetic unpaid-break deduction to create:
// a negative-hours line netted against a truck-type group.
type BreakLine struct {
	TruckType    string
	ChargedHours decimal.Decimal
	RatePerHour  decimal.Decimal
}

// BreakLines derives unpaid-break deductions from the invoice's current
// lines. Positive-hour lines are grouped by truck type; each distinct job
// date in a group counts as one rostered shift, and the group's deduction
// is allowance × shifts at the rate of the group's first line. Lines
// already carrying the reserved marker are ignored, which makes the
// regeneration cycle (delete markers, recompute) idempotent.
func BreakLines(lines []rctidomain.RctiLine, allowanceHours decimal.Decimal, marker string) []BreakLine {
	if allowanceHours.Sign() <= 0 {
		return nil
	}

	type group struct {
		rate  decimal.Decimal
		dates map[time.Time]struct{}
	}
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, line := range lines {
		if line.IsBreakLine(marker) || line.ChargedHours.Sign() <= 0 {
			continue
		}
		g, ok := groups[line.TruckType]
		if !ok {
			g = &group{rate: line.RatePerHour, dates: make(map[time.Time]struct{})}
			groups[line.TruckType] = g
			order = append(order, line.TruckType)
		}
		day := time.Date(line.JobDate.Year(), line.JobDate.Month(), line.JobDate.Day(), 0, 0, 0, 0, time.UTC)
		g.dates[day] = struct{}{}
	}

	sort.Strings(order)

	out := make([]BreakLine, 0, len(order))
	for _, truckType := range order {
		g := groups[truckType]
		shifts := decimal.NewFromInt(int64(len(g.dates)))
		hours := allowanceHours.Mul(shifts)
		if hours.Sign() <= 0 {
			continue
		}
		out = append(out, BreakLine{
			TruckType:    truckType,
			ChargedHours: hours.Neg(),
			RatePerHour:  g.rate,
		})
	}
	return out
}
