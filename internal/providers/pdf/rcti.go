package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// RctiDocument is the render model for one recipient created tax
// invoice. All money fields arrive pre-formatted; the renderer does no
// arithmetic.
type RctiDocument struct {
	BusinessName string
	DriverName   string
	DriverEmail  string
	RctiNumber   string
	WeekEnding   string
	GstStatus    string
	Status       string

	Lines []RctiDocumentLine

	Subtotal string
	Gst      string

	Adjustments   []AdjustmentLine
	OriginalTotal string
	AmountPayable string
}

type RctiDocumentLine struct {
	JobDate     string
	Customer    string
	TruckType   string
	Description string
	Hours       string
	Rate        string
	Amount      string
}

// AdjustmentLine is one deduction or reimbursement applied at
// finalisation time.
type AdjustmentLine struct {
	Description string
	Amount      string
}

type RctiRenderer struct{}

func New() Renderer {
	return &RctiRenderer{}
}

func (r *RctiRenderer) RenderRcti(ctx context.Context, doc RctiDocument) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Recipient Created Tax Invoice", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(doc.BusinessName, props.Text{Style: fontstyle.Bold}),
			text.New("RCTI number: "+doc.RctiNumber, props.Text{Top: 6, Size: 9}),
			text.New("Week ending: "+doc.WeekEnding, props.Text{Top: 10, Size: 9}),
			text.New("Status: "+doc.Status, props.Text{Top: 14, Size: 9}),
		),
		col.New(6).Add(
			text.New("Subcontractor", props.Text{Style: fontstyle.Bold}),
			text.New(doc.DriverName, props.Text{Top: 6, Size: 9}),
			text.New(doc.DriverEmail, props.Text{Top: 10, Size: 9}),
			text.New("GST: "+doc.GstStatus, props.Text{Top: 14, Size: 9}),
		),
	)

	m.AddRow(8,
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Customer", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Truck", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Hours", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range doc.Lines {
		m.AddRow(7,
			text.NewCol(2, line.JobDate, props.Text{Size: 8}),
			text.NewCol(3, line.Customer, props.Text{Size: 8}),
			text.NewCol(2, line.TruckType, props.Text{Size: 8}),
			text.NewCol(2, line.Hours, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.Rate, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, line.Amount, props.Text{Size: 8, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "GST", props.Text{Size: 9}),
		text.NewCol(2, doc.Gst, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Invoice total", props.Text{Size: 9}),
		text.NewCol(2, doc.OriginalTotal, props.Text{Size: 9, Align: align.Right}),
	)

	if len(doc.Adjustments) > 0 {
		m.AddRow(9,
			text.NewCol(12, "Adjustments", props.Text{Style: fontstyle.Bold, Size: 10, Top: 2}),
		)
		for _, adj := range doc.Adjustments {
			m.AddRow(7,
				text.NewCol(8, adj.Description, props.Text{Size: 8}),
				col.New(2),
				text.NewCol(2, adj.Amount, props.Text{Size: 8, Align: align.Right}),
			)
		}
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount payable", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, doc.AmountPayable, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out.GetBytes()), nil
}
