package service

import (
	"context"
	"strings"
	"time"

	"github.com/bldragon101/worklog/internal/job/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("job.service"),
		genID: p.GenID,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestJobRequest) (domain.Job, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(req.DriverID))
	if err != nil {
		return domain.Job{}, domain.ErrInvalidDriverID
	}
	if req.JobDate.IsZero() {
		return domain.Job{}, domain.ErrInvalidJobDate
	}
	if req.ChargedHours.Sign() <= 0 {
		return domain.Job{}, domain.ErrInvalidHours
	}
	if req.RatePerHour.IsNegative() {
		return domain.Job{}, domain.ErrInvalidRate
	}

	job := domain.Job{
		ID:           s.genID.Generate(),
		DriverID:     driverID,
		JobDate:      req.JobDate,
		Customer:     strings.TrimSpace(req.Customer),
		TruckType:    strings.TrimSpace(req.TruckType),
		ChargedHours: req.ChargedHours,
		RatePerHour:  req.RatePerHour,
		Description:  strings.TrimSpace(req.Description),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (s *Service) List(ctx context.Context, req domain.ListJobRequest) (domain.ListJobResponse, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Job{})
	if req.DriverID != nil {
		driverID, err := snowflake.ParseString(strings.TrimSpace(*req.DriverID))
		if err != nil {
			return domain.ListJobResponse{}, domain.ErrInvalidDriverID
		}
		stmt = stmt.Where("driver_id = ?", driverID)
	}
	if req.WeekEnding != nil {
		start, end := weekBounds(*req.WeekEnding)
		stmt = stmt.Where("job_date >= ? AND job_date <= ?", start, end)
	}

	var jobs []domain.Job
	if err := stmt.Order("job_date asc, id asc").Find(&jobs).Error; err != nil {
		return domain.ListJobResponse{}, err
	}
	return domain.ListJobResponse{Jobs: jobs}, nil
}

// ForWeek returns the driver's charge lines for the seven days ending on
// weekEnding, oldest first.
func (s *Service) ForWeek(ctx context.Context, driverID snowflake.ID, weekEnding time.Time) ([]domain.Job, error) {
	start, end := weekBounds(weekEnding)
	var jobs []domain.Job
	err := s.db.WithContext(ctx).
		Where("driver_id = ? AND job_date >= ? AND job_date <= ?", driverID, start, end).
		Order("job_date asc, id asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func weekBounds(weekEnding time.Time) (time.Time, time.Time) {
	end := time.Date(weekEnding.Year(), weekEnding.Month(), weekEnding.Day(), 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -6), end
}
