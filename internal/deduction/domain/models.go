// Package domain contains persistence models for the deduction ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Kind distinguishes money withheld from money paid back.
type Kind string

const (
	KindDeduction     Kind = "DEDUCTION"
	KindReimbursement Kind = "REIMBURSEMENT"
)

// Frequency controls how often a deduction falls due.
type Frequency string

const (
	FrequencyOnce        Frequency = "ONCE"
	FrequencyWeekly      Frequency = "WEEKLY"
	FrequencyFortnightly Frequency = "FORTNIGHTLY"
	FrequencyMonthly     Frequency = "MONTHLY"
)

// Status models the deduction lifecycle. Cancelled is a soft state:
// deductions with application history are never hard-deleted.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Deduction is a depleting balance scheduled against a driver's RCTIs.
// Invariant: AmountPaid + AmountRemaining == TotalAmount.
type Deduction struct {
	ID              snowflake.ID     `gorm:"primaryKey" json:"id"`
	DriverID        snowflake.ID     `gorm:"not null;index:ix_deductions_driver_status" json:"driver_id"`
	Kind            Kind             `gorm:"type:text;not null;default:'DEDUCTION'" json:"kind"`
	Description     string           `gorm:"type:text;not null" json:"description"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	AmountPaid      decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"amount_paid"`
	AmountRemaining decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"amount_remaining"`
	AmountPerCycle  *decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount_per_cycle,omitempty"`
	Frequency       Frequency        `gorm:"type:text;not null;default:'ONCE'" json:"frequency"`
	StartDate       time.Time        `gorm:"type:date;not null" json:"start_date"`
	Status          Status           `gorm:"type:text;not null;default:'ACTIVE';index:ix_deductions_driver_status" json:"status"`
	CompletedAt     *time.Time       `gorm:"" json:"completed_at,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Deduction) TableName() string { return "deductions" }

// DeductionApplication is the immutable fact that a deduction was applied
// (or explicitly skipped with a zero amount) on one invoice. At most one
// application exists per deduction per invoice.
type DeductionApplication struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	DeductionID snowflake.ID    `gorm:"not null;uniqueIndex:ux_deduction_applications_period" json:"deduction_id"`
	RctiID      snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_deduction_applications_period" json:"rcti_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	AppliedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"applied_at"`
}

// TableName sets the database table name.
func (DeductionApplication) TableName() string { return "deduction_applications" }

// IsSkip reports whether the application recorded a deliberate $0 pass.
func (a DeductionApplication) IsSkip() bool { return a.Amount.IsZero() }

func ValidKind(k Kind) bool {
	return k == KindDeduction || k == KindReimbursement
}

func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyOnce, FrequencyWeekly, FrequencyFortnightly, FrequencyMonthly:
		return true
	default:
		return false
	}
}
