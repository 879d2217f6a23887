package service

import (
	"context"
	"strings"
	"time"

	"github.com/bldragon101/worklog/internal/deduction/domain"
	"github.com/bldragon101/worklog/internal/deduction/schedule"
	"github.com/bldragon101/worklog/pkg/db"
	"github.com/bldragon101/worklog/pkg/telemetry"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *telemetry.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("deduction.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

// ApplyToRcti runs one ledger pass for an invoice inside the caller's
// transaction. Every due deduction either mutates its balance through a
// compare-and-swap on (amount_remaining, status) or, when that update
// hits zero rows because a concurrent pass got there first, is skipped
// silently with no application record. A $0 skip requested via override
// still records an application, which advances the schedule.
func (s *Service) ApplyToRcti(ctx context.Context, tx *gorm.DB, rctiID, driverID snowflake.ID, weekEnding time.Time, overrides map[string]*decimal.Decimal) (domain.ApplyResult, error) {
	for _, amount := range overrides {
		if amount != nil && amount.IsNegative() {
			return domain.ApplyResult{}, domain.ErrInvalidOverride
		}
	}

	deductions, err := s.listDueCandidates(ctx, tx, driverID, weekEnding)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	result := domain.ApplyResult{
		TotalDeductionAmount:     decimal.Zero,
		TotalReimbursementAmount: decimal.Zero,
	}
	now := time.Now().UTC()

	for _, d := range deductions {
		last, err := s.lastAppliedPeriod(ctx, tx, d.ID)
		if err != nil {
			return domain.ApplyResult{}, err
		}
		if !schedule.ShouldApply(d, weekEnding, last) {
			continue
		}

		amount, isSkip := resolveAmount(d, overrides)

		if !isSkip {
			updated, err := s.applyBalanceChange(ctx, tx, d, amount, now)
			if err != nil {
				return domain.ApplyResult{}, err
			}
			if !updated {
				// Another finalisation for this driver/period won the
				// race on this deduction; leave it untouched.
				s.log.Info("deduction skipped on optimistic-lock conflict",
					zap.String("deduction_id", d.ID.String()),
					zap.String("rcti_id", rctiID.String()),
				)
				s.metrics.RecordLedgerConflict()
				continue
			}
		}

		if err := s.insertApplication(ctx, tx, domain.DeductionApplication{
			ID:          s.genID.Generate(),
			DeductionID: d.ID,
			RctiID:      rctiID,
			Amount:      amount,
			AppliedAt:   now,
		}); err != nil {
			return domain.ApplyResult{}, err
		}

		if !isSkip {
			result.Applied++
			s.metrics.RecordLedgerApplication(string(d.Kind))
			if d.Kind == domain.KindReimbursement {
				result.TotalReimbursementAmount = result.TotalReimbursementAmount.Add(amount)
			} else {
				result.TotalDeductionAmount = result.TotalDeductionAmount.Add(amount)
			}
		}
	}

	return result, nil
}

// RemoveFromRcti reverses every application tied to the invoice. Each
// reversal runs in its own transaction; un-finalising is a rare
// administrative action, not a hot path.
func (s *Service) RemoveFromRcti(ctx context.Context, rctiID snowflake.ID) (domain.ReversalResult, error) {
	applications, err := s.ApplicationsForRcti(ctx, rctiID)
	if err != nil {
		return domain.ReversalResult{}, err
	}

	result := domain.ReversalResult{}
	for _, app := range applications {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.reverseApplication(ctx, tx, app)
		})
		if err != nil {
			return result, err
		}
		result.Reversed++
	}
	return result, nil
}

func (s *Service) ApplicationsForRcti(ctx context.Context, rctiID snowflake.ID) ([]domain.DeductionApplication, error) {
	var applications []domain.DeductionApplication
	err := s.db.WithContext(ctx).
		Where("rcti_id = ?", rctiID).
		Order("applied_at asc, id asc").
		Find(&applications).Error
	if err != nil {
		return nil, err
	}
	return applications, nil
}

// PendingForDriver previews the next invoice's deduction pass without
// touching any state.
func (s *Service) PendingForDriver(ctx context.Context, driverID string, weekEnding time.Time) ([]domain.PendingDeduction, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(driverID))
	if err != nil {
		return nil, domain.ErrInvalidDriver
	}

	deductions, err := s.listDueCandidates(ctx, s.db, id, weekEnding)
	if err != nil {
		return nil, err
	}

	pending := make([]domain.PendingDeduction, 0, len(deductions))
	for _, d := range deductions {
		last, err := s.lastAppliedPeriod(ctx, s.db, d.ID)
		if err != nil {
			return nil, err
		}
		if !schedule.ShouldApply(d, weekEnding, last) {
			continue
		}
		pending = append(pending, domain.PendingDeduction{
			Deduction:     d,
			DefaultAmount: defaultAmount(d),
		})
	}
	return pending, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateDeductionRequest) (domain.Deduction, error) {
	driverID, err := snowflake.ParseString(strings.TrimSpace(req.DriverID))
	if err != nil {
		return domain.Deduction{}, domain.ErrInvalidDriver
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.KindDeduction
	}
	if !domain.ValidKind(kind) {
		return domain.Deduction{}, domain.ErrInvalidKind
	}
	if !domain.ValidFrequency(req.Frequency) {
		return domain.Deduction{}, domain.ErrInvalidFrequency
	}
	if req.TotalAmount.Sign() <= 0 {
		return domain.Deduction{}, domain.ErrInvalidTotalAmount
	}
	if req.AmountPerCycle != nil && req.AmountPerCycle.Sign() <= 0 {
		return domain.Deduction{}, domain.ErrInvalidCycleAmount
	}
	if req.StartDate.IsZero() {
		return domain.Deduction{}, domain.ErrInvalidStartDate
	}

	now := time.Now().UTC()
	deduction := domain.Deduction{
		ID:              s.genID.Generate(),
		DriverID:        driverID,
		Kind:            kind,
		Description:     strings.TrimSpace(req.Description),
		TotalAmount:     req.TotalAmount,
		AmountPaid:      decimal.Zero,
		AmountRemaining: req.TotalAmount,
		AmountPerCycle:  req.AmountPerCycle,
		Frequency:       req.Frequency,
		StartDate:       req.StartDate,
		Status:          domain.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(&deduction).Error; err != nil {
		return domain.Deduction{}, err
	}
	return deduction, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDeductionRequest) (domain.ListDeductionResponse, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Deduction{})
	if req.DriverID != nil {
		driverID, err := snowflake.ParseString(strings.TrimSpace(*req.DriverID))
		if err != nil {
			return domain.ListDeductionResponse{}, domain.ErrInvalidDriver
		}
		stmt = stmt.Where("driver_id = ?", driverID)
	}
	if req.Status != nil {
		stmt = stmt.Where("status = ?", *req.Status)
	}

	var deductions []domain.Deduction
	if err := stmt.Order("created_at asc, id asc").Find(&deductions).Error; err != nil {
		return domain.ListDeductionResponse{}, err
	}
	return domain.ListDeductionResponse{Deductions: deductions}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Deduction, error) {
	deductionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Deduction{}, domain.ErrInvalidDeductionID
	}
	deduction, err := s.loadDeduction(ctx, s.db, deductionID, false)
	if err != nil {
		return domain.Deduction{}, err
	}
	if deduction == nil {
		return domain.Deduction{}, domain.ErrDeductionNotFound
	}
	return *deduction, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateDeductionRequest) (domain.Deduction, error) {
	deductionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Deduction{}, domain.ErrInvalidDeductionID
	}

	var updated domain.Deduction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deduction, err := s.loadDeduction(ctx, tx, deductionID, true)
		if err != nil {
			return err
		}
		if deduction == nil {
			return domain.ErrDeductionNotFound
		}
		if deduction.Status != domain.StatusActive {
			return domain.ErrDeductionNotActive
		}

		if req.Description != nil {
			deduction.Description = strings.TrimSpace(*req.Description)
		}
		if req.TotalAmount != nil {
			if req.TotalAmount.Sign() <= 0 || req.TotalAmount.LessThan(deduction.AmountPaid) {
				return domain.ErrInvalidTotalAmount
			}
			deduction.TotalAmount = *req.TotalAmount
			deduction.AmountRemaining = deduction.TotalAmount.Sub(deduction.AmountPaid)
		}
		if req.AmountPerCycle != nil {
			if req.AmountPerCycle.Sign() <= 0 {
				return domain.ErrInvalidCycleAmount
			}
			deduction.AmountPerCycle = req.AmountPerCycle
		}
		if req.Frequency != nil {
			if !domain.ValidFrequency(*req.Frequency) {
				return domain.ErrInvalidFrequency
			}
			deduction.Frequency = *req.Frequency
		}
		if req.StartDate != nil {
			if req.StartDate.IsZero() {
				return domain.ErrInvalidStartDate
			}
			deduction.StartDate = *req.StartDate
		}
		deduction.UpdatedAt = time.Now().UTC()

		if err := tx.WithContext(ctx).Save(deduction).Error; err != nil {
			return err
		}
		updated = *deduction
		return nil
	})
	if err != nil {
		return domain.Deduction{}, err
	}
	return updated, nil
}

// Delete hard-deletes a deduction only while it has no application
// history; anything applied at least once must stay for referential
// integrity and can only be cancelled.
func (s *Service) Delete(ctx context.Context, id string) error {
	deductionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidDeductionID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deduction, err := s.loadDeduction(ctx, tx, deductionID, true)
		if err != nil {
			return err
		}
		if deduction == nil {
			return domain.ErrDeductionNotFound
		}

		var count int64
		if err := tx.WithContext(ctx).
			Model(&domain.DeductionApplication{}).
			Where("deduction_id = ?", deductionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDeductionHasHistory
		}

		return tx.WithContext(ctx).
			Where("id = ?", deductionID).
			Delete(&domain.Deduction{}).Error
	})
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Deduction, error) {
	deductionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Deduction{}, domain.ErrInvalidDeductionID
	}

	var cancelled domain.Deduction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deduction, err := s.loadDeduction(ctx, tx, deductionID, true)
		if err != nil {
			return err
		}
		if deduction == nil {
			return domain.ErrDeductionNotFound
		}
		if deduction.Status != domain.StatusActive {
			return domain.ErrDeductionNotActive
		}

		deduction.Status = domain.StatusCancelled
		deduction.UpdatedAt = time.Now().UTC()
		if err := tx.WithContext(ctx).Save(deduction).Error; err != nil {
			return err
		}
		cancelled = *deduction
		return nil
	})
	if err != nil {
		return domain.Deduction{}, err
	}
	return cancelled, nil
}

// resolveAmount picks the amount for one due deduction. An override entry
// with a nil value is an explicit skip; a numeric override and the
// per-cycle default are both clamped to the remaining balance. A resolved
// amount of zero is a skip too: it records the application without
// touching the balance and is not counted as applied.
func resolveAmount(d domain.Deduction, overrides map[string]*decimal.Decimal) (decimal.Decimal, bool) {
	if override, ok := overrides[d.ID.String()]; ok {
		if override == nil {
			return decimal.Zero, true
		}
		amount := clamp(*override, d.AmountRemaining)
		return amount, amount.IsZero()
	}
	amount := defaultAmount(d)
	return amount, amount.IsZero()
}

func defaultAmount(d domain.Deduction) decimal.Decimal {
	if d.AmountPerCycle != nil {
		return clamp(*d.AmountPerCycle, d.AmountRemaining)
	}
	return d.AmountRemaining
}

func clamp(amount, remaining decimal.Decimal) decimal.Decimal {
	if amount.GreaterThan(remaining) {
		return remaining
	}
	return amount
}

// applyBalanceChange performs the optimistic-lock balance mutation: the
// UPDATE only lands if amount_remaining and status still match the
// values read at the start of the pass. A zero-row result means a
// concurrent transaction already applied this deduction for the cycle.
func (s *Service) applyBalanceChange(ctx context.Context, tx *gorm.DB, d domain.Deduction, amount decimal.Decimal, now time.Time) (bool, error) {
	newPaid := d.AmountPaid.Add(amount)
	newRemaining := d.TotalAmount.Sub(newPaid)

	status := domain.StatusActive
	var completedAt *time.Time
	if newRemaining.Sign() <= 0 {
		status = domain.StatusCompleted
		completedAt = &now
	}

	result := tx.WithContext(ctx).Exec(
		`UPDATE deductions
		 SET amount_paid = ?, amount_remaining = ?, status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND amount_remaining = ? AND status = ?`,
		newPaid,
		newRemaining,
		status,
		completedAt,
		now,
		d.ID,
		d.AmountRemaining,
		domain.StatusActive,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) reverseApplication(ctx context.Context, tx *gorm.DB, app domain.DeductionApplication) error {
	deduction, err := s.loadDeduction(ctx, tx, app.DeductionID, true)
	if err != nil {
		return err
	}
	if deduction == nil {
		return domain.ErrDeductionNotFound
	}

	newPaid := deduction.AmountPaid.Sub(app.Amount)
	newRemaining := deduction.TotalAmount.Sub(newPaid)
	now := time.Now().UTC()

	if err := tx.WithContext(ctx).Exec(
		`UPDATE deductions
		 SET amount_paid = ?, amount_remaining = ?, status = ?, completed_at = NULL, updated_at = ?
		 WHERE id = ?`,
		newPaid,
		newRemaining,
		domain.StatusActive,
		now,
		deduction.ID,
	).Error; err != nil {
		return err
	}

	return tx.WithContext(ctx).
		Where("id = ?", app.ID).
		Delete(&domain.DeductionApplication{}).Error
}

func (s *Service) listDueCandidates(ctx context.Context, tx *gorm.DB, driverID snowflake.ID, weekEnding time.Time) ([]domain.Deduction, error) {
	var deductions []domain.Deduction
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM deductions
		 WHERE driver_id = ? AND status = ? AND start_date <= ?
		 ORDER BY created_at asc, id asc`,
		driverID,
		domain.StatusActive,
		weekEnding,
	).Scan(&deductions).Error
	if err != nil {
		return nil, err
	}
	return deductions, nil
}

// lastAppliedPeriod joins the most recent application with the invoice
// week it covered, which is what the scheduler's cycle arithmetic runs
// on.
func (s *Service) lastAppliedPeriod(ctx context.Context, tx *gorm.DB, deductionID snowflake.ID) (*domain.AppliedPeriod, error) {
	var row struct {
		Amount     decimal.Decimal
		WeekEnding time.Time
		RctiID     snowflake.ID
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT da.amount, da.rcti_id, r.week_ending
		 FROM deduction_applications da
		 JOIN rctis r ON r.id = da.rcti_id
		 WHERE da.deduction_id = ?
		 ORDER BY r.week_ending DESC, da.applied_at DESC
		 LIMIT 1`,
		deductionID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.RctiID == 0 {
		return nil, nil
	}
	return &domain.AppliedPeriod{Amount: row.Amount, WeekEnding: row.WeekEnding}, nil
}

func (s *Service) loadDeduction(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Deduction, error) {
	query := `SELECT * FROM deductions WHERE id = ?`
	if forUpdate {
		query += db.ForUpdate(tx)
	}
	var deduction domain.Deduction
	err := tx.WithContext(ctx).Raw(query, id).Scan(&deduction).Error
	if err != nil {
		return nil, err
	}
	if deduction.ID == 0 {
		return nil, nil
	}
	return &deduction, nil
}

func (s *Service) insertApplication(ctx context.Context, tx *gorm.DB, app domain.DeductionApplication) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO deduction_applications (id, deduction_id, rcti_id, amount, applied_at)
		 VALUES (?, ?, ?, ?, ?)`,
		app.ID,
		app.DeductionID,
		app.RctiID,
		app.Amount,
		app.AppliedAt,
	).Error
}
