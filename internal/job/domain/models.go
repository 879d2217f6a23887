// Package domain contains persistence models for trucking job records.
// The RCTI engine consumes these read-only; mutation belongs to the job
// tracking surface that feeds them in.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Job is one charged unit of work for a driver on a date.
type Job struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	DriverID     snowflake.ID    `gorm:"not null;index:ix_jobs_driver_date" json:"driver_id"`
	JobDate      time.Time       `gorm:"type:date;not null;index:ix_jobs_driver_date" json:"job_date"`
	Customer     string          `gorm:"type:text;not null;default:''" json:"customer"`
	TruckType    string          `gorm:"type:text;not null;default:''" json:"truck_type"`
	ChargedHours decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"charged_hours"`
	RatePerHour  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate_per_hour"`
	Description  string          `gorm:"type:text;not null;default:''" json:"description"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Job) TableName() string { return "jobs" }

type IngestJobRequest struct {
	DriverID     string          `json:"driver_id"`
	JobDate      time.Time       `json:"job_date"`
	Customer     string          `json:"customer"`
	TruckType    string          `json:"truck_type"`
	ChargedHours decimal.Decimal `json:"charged_hours"`
	RatePerHour  decimal.Decimal `json:"rate_per_hour"`
	Description  string          `json:"description"`
}

type ListJobRequest struct {
	DriverID   *string
	WeekEnding *time.Time
}

type ListJobResponse struct {
	Jobs []Job `json:"jobs"`
}

// Source is the narrow contract the invoice engine reads charge lines
// through.
type Source interface {
	ForWeek(ctx context.Context, driverID snowflake.ID, weekEnding time.Time) ([]Job, error)
}

type Service interface {
	Source

	Ingest(ctx context.Context, req IngestJobRequest) (Job, error)
	List(ctx context.Context, req ListJobRequest) (ListJobResponse, error)
}

var (
	ErrInvalidDriverID = errors.New("invalid_driver_id")
	ErrInvalidJobDate  = errors.New("invalid_job_date")
	ErrInvalidHours    = errors.New("invalid_charged_hours")
	ErrInvalidRate     = errors.New("invalid_rate_per_hour")
)
