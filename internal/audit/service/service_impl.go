package service

import (
	"context"
	"time"

	"github.com/bldragon101/worklog/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
	}
}

// Record appends one audit event. Failures are logged but never bubble
// up; an audit write must not fail the business operation it describes.
func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	row := domain.AuditLog{
		ID:         s.genID.Generate(),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		Actor:      entry.Actor,
		Metadata:   datatypes.JSONMap(entry.Metadata),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("audit write failed",
			zap.String("entity_type", entry.EntityType),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.AuditLog, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.AuditLog{})
	if req.EntityType != nil {
		stmt = stmt.Where("entity_type = ?", *req.EntityType)
	}
	if req.EntityID != nil {
		stmt = stmt.Where("entity_id = ?", *req.EntityID)
	}

	var logs []domain.AuditLog
	if err := stmt.Order("created_at desc, id desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
