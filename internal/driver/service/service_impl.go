package service

import (
	"context"
	"strings"
	"time"

	"github.com/bldragon101/worklog/internal/driver/domain"
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
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
		log:   p.Log.Named("driver.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDriverRequest) (domain.Driver, error) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Driver{}, domain.ErrInvalidName
	}
	if req.BreakAllowanceHours.IsNegative() {
		return domain.Driver{}, domain.ErrInvalidBreak
	}
	gstStatus := req.GstStatus
	if gstStatus == "" {
		gstStatus = rctidomain.GstStatusRegistered
	}
	gstMode := req.GstMode
	if gstMode == "" {
		gstMode = rctidomain.GstModeExclusive
	}
	if !rctidomain.ValidGstStatus(gstStatus) {
		return domain.Driver{}, rctidomain.ErrInvalidGstStatus
	}
	if !rctidomain.ValidGstMode(gstMode) {
		return domain.Driver{}, rctidomain.ErrInvalidGstMode
	}

	now := time.Now().UTC()
	driver := domain.Driver{
		ID:                  s.genID.Generate(),
		Name:                strings.TrimSpace(req.Name),
		Email:               strings.TrimSpace(req.Email),
		GstStatus:           gstStatus,
		GstMode:             gstMode,
		BreakAllowanceHours: req.BreakAllowanceHours,
		DefaultTruckType:    strings.TrimSpace(req.DefaultTruckType),
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.db.WithContext(ctx).Create(&driver).Error; err != nil {
		return domain.Driver{}, err
	}
	return driver, nil
}

func (s *Service) List(ctx context.Context) (domain.ListDriverResponse, error) {
	var drivers []domain.Driver
	err := s.db.WithContext(ctx).
		Order("name asc, id asc").
		Find(&drivers).Error
	if err != nil {
		return domain.ListDriverResponse{}, err
	}
	return domain.ListDriverResponse{Drivers: drivers}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Driver, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Driver{}, domain.ErrInvalidDriverID
	}

	driver, err := loadDriver(ctx, s.db, driverID)
	if err != nil {
		return domain.Driver{}, err
	}
	if driver == nil {
		return domain.Driver{}, domain.ErrDriverNotFound
	}
	return *driver, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateDriverRequest) (domain.Driver, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Driver{}, domain.ErrInvalidDriverID
	}

	var updated domain.Driver
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		driver, err := loadDriver(ctx, tx, driverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return domain.ErrDriverNotFound
		}

		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return domain.ErrInvalidName
			}
			driver.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			driver.Email = strings.TrimSpace(*req.Email)
		}
		if req.GstStatus != nil {
			if !rctidomain.ValidGstStatus(*req.GstStatus) {
				return rctidomain.ErrInvalidGstStatus
			}
			driver.GstStatus = *req.GstStatus
		}
		if req.GstMode != nil {
			if !rctidomain.ValidGstMode(*req.GstMode) {
				return rctidomain.ErrInvalidGstMode
			}
			driver.GstMode = *req.GstMode
		}
		if req.BreakAllowanceHours != nil {
			if req.BreakAllowanceHours.IsNegative() {
				return domain.ErrInvalidBreak
			}
			driver.BreakAllowanceHours = *req.BreakAllowanceHours
		}
		if req.DefaultTruckType != nil {
			driver.DefaultTruckType = strings.TrimSpace(*req.DefaultTruckType)
		}
		if req.Active != nil {
			driver.Active = *req.Active
		}
		driver.UpdatedAt = time.Now().UTC()

		if err := tx.WithContext(ctx).Save(driver).Error; err != nil {
			return err
		}
		updated = *driver
		return nil
	})
	if err != nil {
		return domain.Driver{}, err
	}
	return updated, nil
}

func loadDriver(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Driver, error) {
	var driver domain.Driver
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM drivers WHERE id = ?`,
		id,
	).Scan(&driver).Error
	if err != nil {
		return nil, err
	}
	if driver.ID == 0 {
		return nil, nil
	}
	return &driver, nil
}
