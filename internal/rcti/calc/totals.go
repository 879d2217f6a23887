package calc

import (
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/shopspring/decimal"
)

// Totals is the invoice-level money triple.
type Totals struct {
	Subtotal decimal.Decimal
	Gst      decimal.Decimal
	Total    decimal.Decimal
}

// CalculateRctiTotals sums line amounts into the invoice subtotal, GST
// and total. Job, manual and break lines all participate; break lines
// carry negative amounts and net themselves off.
func CalculateRctiTotals(lines []rctidomain.RctiLine) Totals {
	subtotal := decimal.Zero
	gst := decimal.Zero
	total := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.AmountExGst)
		gst = gst.Add(line.GstAmount)
		total = total.Add(line.AmountIncGst)
	}
	return Totals{Subtotal: subtotal, Gst: gst, Total: total}
}
