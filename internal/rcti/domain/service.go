package domain

import (
	"context"
	"errors"
	"time"

	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	"github.com/shopspring/decimal"
)

type CreateRctiRequest struct {
	DriverID   string    `json:"driver_id"`
	WeekEnding time.Time `json:"week_ending"`
}

type ListRctiRequest struct {
	DriverID *string
	Status   *RctiStatus
}

type ListRctiResponse struct {
	Rctis []Rcti `json:"rctis"`
}

// LineInput carries a manual line create/update.
type LineInput struct {
	JobDate      time.Time       `json:"job_date"`
	Customer     string          `json:"customer"`
	TruckType    string          `json:"truck_type"`
	Description  string          `json:"description"`
	ChargedHours decimal.Decimal `json:"charged_hours"`
	RatePerHour  decimal.Decimal `json:"rate_per_hour"`
}

type UpdateGstRequest struct {
	GstStatus GstStatus `json:"gst_status"`
	GstMode   GstMode   `json:"gst_mode"`
}

// FinaliseRequest carries per-deduction amount overrides keyed by
// deduction ID. An entry with a nil amount is an explicit $0 skip.
type FinaliseRequest struct {
	Overrides map[string]*decimal.Decimal `json:"overrides"`
}

type FinaliseResponse struct {
	Rcti                     Rcti            `json:"rcti"`
	Applied                  int             `json:"applied"`
	TotalDeductionAmount     decimal.Decimal `json:"total_deduction_amount"`
	TotalReimbursementAmount decimal.Decimal `json:"total_reimbursement_amount"`
}

// RctiDetail is the read model consumed by the API and the PDF renderer.
// OriginalTotal is derived from the stored total and the net adjustment;
// the stored total stays the single source of truth.
type RctiDetail struct {
	Rcti          Rcti                                   `json:"rcti"`
	Lines         []RctiLine                             `json:"lines"`
	Applications  []deductiondomain.DeductionApplication `json:"applications"`
	NetAdjustment decimal.Decimal                        `json:"net_adjustment"`
	OriginalTotal decimal.Decimal                        `json:"original_total"`
}

type Service interface {
	Create(ctx context.Context, req CreateRctiRequest) (Rcti, error)
	List(ctx context.Context, req ListRctiRequest) (ListRctiResponse, error)
	GetByID(ctx context.Context, id string) (RctiDetail, error)

	AddLine(ctx context.Context, rctiID string, input LineInput) (RctiLine, error)
	UpdateLine(ctx context.Context, rctiID, lineID string, input LineInput) (RctiLine, error)
	DeleteLine(ctx context.Context, rctiID, lineID string) error

	UpdateGst(ctx context.Context, rctiID string, req UpdateGstRequest) (Rcti, error)

	Finalise(ctx context.Context, rctiID string, req FinaliseRequest) (FinaliseResponse, error)
	RevertToDraft(ctx context.Context, rctiID, reason string) (Rcti, error)
	MarkPaid(ctx context.Context, rctiID string) (Rcti, error)
}

var (
	ErrRctiNotFound      = errors.New("rcti_not_found")
	ErrRctiExists        = errors.New("rcti_exists")
	ErrRctiNotDraft      = errors.New("rcti_not_draft")
	ErrRctiNotFinalised  = errors.New("rcti_not_finalised")
	ErrRctiPaid          = errors.New("rcti_paid")
	ErrLineNotFound      = errors.New("rcti_line_not_found")
	ErrInvalidRctiID     = errors.New("invalid_rcti_id")
	ErrInvalidDriver     = errors.New("invalid_driver")
	ErrInvalidWeekEnding = errors.New("invalid_week_ending")
	ErrInvalidHours      = errors.New("invalid_charged_hours")
	ErrInvalidRate       = errors.New("invalid_rate_per_hour")
	ErrInvalidGstStatus  = errors.New("invalid_gst_status")
	ErrInvalidGstMode    = errors.New("invalid_gst_mode")
	ErrReservedCustomer  = errors.New("reserved_customer_marker")
)
