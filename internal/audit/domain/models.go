// Package domain contains the persistence model for the payroll audit
// trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records one state-changing event on an invoice or deduction.
// Metadata carries event-specific detail such as reverted totals or the
// count of ledger applications.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	EntityType string            `gorm:"type:text;not null;index:ix_audit_logs_entity" json:"entity_type"`
	EntityID   snowflake.ID      `gorm:"not null;index:ix_audit_logs_entity" json:"entity_id"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	Actor      string            `gorm:"type:text;not null;default:''" json:"actor"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what callers hand the recorder; IDs and timestamps are filled
// in at write time.
type Entry struct {
	EntityType string
	EntityID   snowflake.ID
	Action     string
	Actor      string
	Metadata   map[string]interface{}
}

type ListRequest struct {
	EntityType *string
	EntityID   *snowflake.ID
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) ([]AuditLog, error)
}
