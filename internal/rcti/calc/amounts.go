// Package calc holds the pure invoice arithmetic: line amounts, unpaid
// break synthesis, and totals aggregation. Everything operates on exact
// decimals; binary floats never touch money here.
package calc

import (
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/shopspring/decimal"
)

// LineAmounts is the computed money triple for one line.
type LineAmounts struct {
	AmountExGst  decimal.Decimal
	GstAmount    decimal.Decimal
	AmountIncGst decimal.Decimal
}

var one = decimal.NewFromInt(1)

// CalculateLineAmounts computes the ex-GST/GST/inc-GST amounts for
// hours × rate under the given GST registration and mode. Each output is
// rounded independently with banker's rounding to 2 decimal places, so
// repeated small lines cannot drift. Negative hours (break deductions)
// flow through with their sign preserved.
func CalculateLineAmounts(hours, rate decimal.Decimal, status rctidomain.GstStatus, mode rctidomain.GstMode, gstRate decimal.Decimal) LineAmounts {
	gross := hours.Mul(rate)

	if status == rctidomain.GstStatusNotRegistered {
		ex := gross.RoundBank(2)
		return LineAmounts{
			AmountExGst:  ex,
			GstAmount:    decimal.Zero,
			AmountIncGst: ex,
		}
	}

	if mode == rctidomain.GstModeInclusive {
		inc := gross.RoundBank(2)
		ex := inc.Div(one.Add(gstRate)).RoundBank(2)
		gst := inc.Sub(ex).RoundBank(2)
		return LineAmounts{
			AmountExGst:  ex,
			GstAmount:    gst,
			AmountIncGst: inc,
		}
	}

	ex := gross.RoundBank(2)
	gst := ex.Mul(gstRate).RoundBank(2)
	inc := ex.Add(gst).RoundBank(2)
	return LineAmounts{
		AmountExGst:  ex,
		GstAmount:    gst,
		AmountIncGst: inc,
	}
}
