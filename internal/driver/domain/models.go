// Package domain contains persistence models for drivers/subcontractors.
package domain

import (
	"context"
	"errors"
	"time"

	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Driver is a subcontractor paid by RCTI. GstStatus/GstMode seed each new
// invoice; BreakAllowanceHours is the unpaid break per rostered shift.
type Driver struct {
	ID                  snowflake.ID         `gorm:"primaryKey" json:"id"`
	Name                string               `gorm:"type:text;not null" json:"name"`
	Email               string               `gorm:"type:text;not null;default:''" json:"email"`
	GstStatus           rctidomain.GstStatus `gorm:"type:text;not null;default:'registered'" json:"gst_status"`
	GstMode             rctidomain.GstMode   `gorm:"type:text;not null;default:'exclusive'" json:"gst_mode"`
	BreakAllowanceHours decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0" json:"break_allowance_hours"`
	DefaultTruckType    string               `gorm:"type:text;not null;default:''" json:"default_truck_type"`
	Active              bool                 `gorm:"not null;default:true" json:"active"`
	CreatedAt           time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Driver) TableName() string { return "drivers" }

type CreateDriverRequest struct {
	Name                string               `json:"name"`
	Email               string               `json:"email"`
	GstStatus           rctidomain.GstStatus `json:"gst_status"`
	GstMode             rctidomain.GstMode   `json:"gst_mode"`
	BreakAllowanceHours decimal.Decimal      `json:"break_allowance_hours"`
	DefaultTruckType    string               `json:"default_truck_type"`
}

type UpdateDriverRequest struct {
	Name                *string               `json:"name,omitempty"`
	Email               *string               `json:"email,omitempty"`
	GstStatus           *rctidomain.GstStatus `json:"gst_status,omitempty"`
	GstMode             *rctidomain.GstMode   `json:"gst_mode,omitempty"`
	BreakAllowanceHours *decimal.Decimal      `json:"break_allowance_hours,omitempty"`
	DefaultTruckType    *string               `json:"default_truck_type,omitempty"`
	Active              *bool                 `json:"active,omitempty"`
}

type ListDriverResponse struct {
	Drivers []Driver `json:"drivers"`
}

type Service interface {
	Create(ctx context.Context, req CreateDriverRequest) (Driver, error)
	List(ctx context.Context) (ListDriverResponse, error)
	GetByID(ctx context.Context, id string) (Driver, error)
	Update(ctx context.Context, id string, req UpdateDriverRequest) (Driver, error)
}

var (
	ErrDriverNotFound  = errors.New("driver_not_found")
	ErrInvalidDriverID = errors.New("invalid_driver_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidBreak    = errors.New("invalid_break_allowance")
)
