// Package domain contains persistence models for recipient created tax invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RctiStatus represents invoice lifecycle states.
type RctiStatus string

const (
	RctiStatusDraft     RctiStatus = "DRAFT"
	RctiStatusFinalised RctiStatus = "FINALISED"
	RctiStatusPaid      RctiStatus = "PAID"
)

// GstStatus indicates whether the payee is registered for GST.
type GstStatus string

const (
	GstStatusRegistered    GstStatus = "registered"
	GstStatusNotRegistered GstStatus = "not_registered"
)

// GstMode represents how GST is applied to entered amounts.
type GstMode string

const (
	GstModeExclusive GstMode = "exclusive" // entered amounts are pre-tax
	GstModeInclusive GstMode = "inclusive" // entered amounts already contain tax
)

// Rcti is a recipient created tax invoice for one driver and week.
// Subtotal/Gst/Total are derived caches recomputed whenever lines change;
// once finalised, Total carries the net deduction adjustment baked in.
type Rcti struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	DriverID   snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_rctis_driver_week" json:"driver_id"`
	WeekEnding time.Time       `gorm:"type:date;not null;uniqueIndex:ux_rctis_driver_week" json:"week_ending"`
	GstStatus  GstStatus       `gorm:"type:text;not null;default:'registered'" json:"gst_status"`
	GstMode    GstMode         `gorm:"type:text;not null;default:'exclusive'" json:"gst_mode"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	Gst        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"gst"`
	Total      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Status     RctiStatus      `gorm:"type:text;not null;default:'DRAFT'" json:"status"`

	PaidAt                *time.Time `gorm:"" json:"paid_at,omitempty"`
	RevertedToDraftAt     *time.Time `gorm:"" json:"reverted_to_draft_at,omitempty"`
	RevertedToDraftReason *string    `gorm:"type:text" json:"reverted_to_draft_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Rcti) TableName() string { return "rctis" }

// RctiLine is one charge line on an invoice. Negative ChargedHours encode
// an unpaid-break reduction.
type RctiLine struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	RctiID       snowflake.ID    `gorm:"not null;index" json:"rcti_id"`
	JobID        *snowflake.ID   `gorm:"index" json:"job_id,omitempty"`
	JobDate      time.Time       `gorm:"type:date;not null" json:"job_date"`
	Customer     string          `gorm:"type:text;not null" json:"customer"`
	TruckType    string          `gorm:"type:text;not null" json:"truck_type"`
	Description  string          `gorm:"type:text" json:"description"`
	ChargedHours decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"charged_hours"`
	RatePerHour  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate_per_hour"`
	AmountExGst  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_ex_gst"`
	GstAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"gst_amount"`
	AmountIncGst decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount_inc_gst"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (RctiLine) TableName() string { return "rcti_lines" }

// IsBreakLine reports whether the line is a synthesised unpaid-break
// deduction, identified by the reserved customer marker.
func (l RctiLine) IsBreakLine(marker string) bool {
	return l.Customer == marker
}

func ValidGstStatus(s GstStatus) bool {
	return s == GstStatusRegistered || s == GstStatusNotRegistered
}

func ValidGstMode(m GstMode) bool {
	return m == GstModeExclusive || m == GstModeInclusive
}
