package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateDeductionRequest struct {
	DriverID       string           `json:"driver_id"`
	Kind           Kind             `json:"kind"`
	Description    string           `json:"description"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	AmountPerCycle *decimal.Decimal `json:"amount_per_cycle,omitempty"`
	Frequency      Frequency        `json:"frequency"`
	StartDate      time.Time        `json:"start_date"`
}

type UpdateDeductionRequest struct {
	Description    *string          `json:"description,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	AmountPerCycle *decimal.Decimal `json:"amount_per_cycle,omitempty"`
	Frequency      *Frequency       `json:"frequency,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
}

type ListDeductionRequest struct {
	DriverID *string
	Status   *Status
}

type ListDeductionResponse struct {
	Deductions []Deduction `json:"deductions"`
}

// AppliedPeriod is the scheduler's view of a deduction's most recent
// application: the amount recorded and the invoice week it covered. A
// zero amount marks an explicit skip.
type AppliedPeriod struct {
	Amount     decimal.Decimal `json:"amount"`
	WeekEnding time.Time       `json:"week_ending"`
}

func (p AppliedPeriod) IsSkip() bool { return p.Amount.IsZero() }

// PendingDeduction previews what the applicator would do for a period,
// without side effects.
type PendingDeduction struct {
	Deduction     Deduction       `json:"deduction"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
}

// ApplyResult summarises one applicator pass. Applied counts only
// non-zero applications.
type ApplyResult struct {
	Applied                  int
	TotalDeductionAmount     decimal.Decimal
	TotalReimbursementAmount decimal.Decimal
}

// ReversalResult summarises an un-finalisation pass.
type ReversalResult struct {
	Reversed int
}

// Applicator mutates the deduction ledger for an invoice. ApplyToRcti
// must be called inside the invoice finalisation transaction; reversal
// manages its own transactions.
type Applicator interface {
	ApplyToRcti(ctx context.Context, tx *gorm.DB, rctiID, driverID snowflake.ID, weekEnding time.Time, overrides map[string]*decimal.Decimal) (ApplyResult, error)
	RemoveFromRcti(ctx context.Context, rctiID snowflake.ID) (ReversalResult, error)
	ApplicationsForRcti(ctx context.Context, rctiID snowflake.ID) ([]DeductionApplication, error)
}

type Service interface {
	Applicator

	Create(ctx context.Context, req CreateDeductionRequest) (Deduction, error)
	List(ctx context.Context, req ListDeductionRequest) (ListDeductionResponse, error)
	GetByID(ctx context.Context, id string) (Deduction, error)
	Update(ctx context.Context, id string, req UpdateDeductionRequest) (Deduction, error)
	Delete(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (Deduction, error)

	PendingForDriver(ctx context.Context, driverID string, weekEnding time.Time) ([]PendingDeduction, error)
}

var (
	ErrDeductionNotFound   = errors.New("deduction_not_found")
	ErrDeductionNotActive  = errors.New("deduction_not_active")
	ErrDeductionHasHistory = errors.New("deduction_has_history")
	ErrInvalidDeductionID  = errors.New("invalid_deduction_id")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidFrequency    = errors.New("invalid_frequency")
	ErrInvalidTotalAmount  = errors.New("invalid_total_amount")
	ErrInvalidCycleAmount  = errors.New("invalid_amount_per_cycle")
	ErrInvalidStartDate    = errors.New("invalid_start_date")
	ErrInvalidOverride     = errors.New("invalid_override_amount")
	ErrInvalidDriver       = errors.New("invalid_driver")
)
