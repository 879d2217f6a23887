package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/bldragon101/worklog/internal/audit/domain"
	"github.com/bldragon101/worklog/internal/config"
	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	driverdomain "github.com/bldragon101/worklog/internal/driver/domain"
	jobdomain "github.com/bldragon101/worklog/internal/job/domain"
	"github.com/bldragon101/worklog/internal/rcti/calc"
	"github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/bldragon101/worklog/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Payroll    *config.PayrollConfigHolder
	Drivers    driverdomain.Service
	Jobs       jobdomain.Service
	Deductions deductiondomain.Service
	Audit      auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	payroll    *config.PayrollConfigHolder
	drivers    driverdomain.Service
	jobs       jobdomain.Source
	deductions deductiondomain.Applicator
	audit      auditdomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("rcti.service"),
		genID:      p.GenID,
		payroll:    p.Payroll,
		drivers:    p.Drivers,
		jobs:       p.Jobs,
		deductions: p.Deductions,
		audit:      p.Audit,
	}
}

// Create opens a draft invoice for the driver and week, imports the
// week's job records as charge lines and synthesises the unpaid-break
// deductions. One invoice per driver per week is enforced by the unique
// index, not by a pre-check.
func (s *Service) Create(ctx context.Context, req domain.CreateRctiRequest) (domain.Rcti, error) {
	driver, err := s.drivers.GetByID(ctx, req.DriverID)
	if err != nil {
		return domain.Rcti{}, domain.ErrInvalidDriver
	}
	if req.WeekEnding.IsZero() {
		return domain.Rcti{}, domain.ErrInvalidWeekEnding
	}
	weekEnding := dateOnly(req.WeekEnding)

	now := time.Now().UTC()
	rcti := domain.Rcti{
		ID:         s.genID.Generate(),
		DriverID:   driver.ID,
		WeekEnding: weekEnding,
		GstStatus:  driver.GstStatus,
		GstMode:    driver.GstMode,
		Subtotal:   decimal.Zero,
		Gst:        decimal.Zero,
		Total:      decimal.Zero,
		Status:     domain.RctiStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&rcti).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrRctiExists
			}
			return err
		}

		jobs, err := s.jobs.ForWeek(ctx, driver.ID, weekEnding)
		if err != nil {
			return err
		}

		gstRate := s.payroll.GSTRate()
		for _, job := range jobs {
			jobID := job.ID
			line := domain.RctiLine{
				ID:           s.genID.Generate(),
				RctiID:       rcti.ID,
				JobID:        &jobID,
				JobDate:      dateOnly(job.JobDate),
				Customer:     job.Customer,
				TruckType:    job.TruckType,
				Description:  job.Description,
				ChargedHours: job.ChargedHours,
				RatePerHour:  job.RatePerHour,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			applyAmounts(&line, rcti.GstStatus, rcti.GstMode, gstRate)
			if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
				return err
			}
		}

		return s.rebuildDerivedLines(ctx, tx, &rcti, driver.BreakAllowanceHours)
	})
	if err != nil {
		return domain.Rcti{}, err
	}
	return rcti, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRctiRequest) (domain.ListRctiResponse, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Rcti{})
	if req.DriverID != nil {
		driverID, err := snowflake.ParseString(strings.TrimSpace(*req.DriverID))
		if err != nil {
			return domain.ListRctiResponse{}, domain.ErrInvalidDriver
		}
		stmt = stmt.Where("driver_id = ?", driverID)
	}
	if req.Status != nil {
		stmt = stmt.Where("status = ?", *req.Status)
	}

	var rctis []domain.Rcti
	if err := stmt.Order("week_ending desc, id desc").Find(&rctis).Error; err != nil {
		return domain.ListRctiResponse{}, err
	}
	return domain.ListRctiResponse{Rctis: rctis}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.RctiDetail, error) {
	rctiID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.RctiDetail{}, domain.ErrInvalidRctiID
	}

	rcti, err := s.loadRcti(ctx, s.db, rctiID, false)
	if err != nil {
		return domain.RctiDetail{}, err
	}
	if rcti == nil {
		return domain.RctiDetail{}, domain.ErrRctiNotFound
	}

	lines, err := s.loadLines(ctx, s.db, rctiID)
	if err != nil {
		return domain.RctiDetail{}, err
	}
	applications, err := s.deductions.ApplicationsForRcti(ctx, rctiID)
	if err != nil {
		return domain.RctiDetail{}, err
	}
	netAdjustment, err := s.netAdjustment(ctx, s.db, rctiID)
	if err != nil {
		return domain.RctiDetail{}, err
	}

	return domain.RctiDetail{
		Rcti:          *rcti,
		Lines:         lines,
		Applications:  applications,
		NetAdjustment: netAdjustment,
		OriginalTotal: rcti.Total.Sub(netAdjustment),
	}, nil
}

func (s *Service) AddLine(ctx context.Context, rctiID string, input domain.LineInput) (domain.RctiLine, error) {
	if err := s.validateLineInput(input); err != nil {
		return domain.RctiLine{}, err
	}

	var created domain.RctiLine
	err := s.withDraft(ctx, rctiID, func(tx *gorm.DB, rcti *domain.Rcti, allowance decimal.Decimal) error {
		now := time.Now().UTC()
		line := domain.RctiLine{
			ID:           s.genID.Generate(),
			RctiID:       rcti.ID,
			JobDate:      dateOnly(input.JobDate),
			Customer:     strings.TrimSpace(input.Customer),
			TruckType:    strings.TrimSpace(input.TruckType),
			Description:  strings.TrimSpace(input.Description),
			ChargedHours: input.ChargedHours,
			RatePerHour:  input.RatePerHour,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		applyAmounts(&line, rcti.GstStatus, rcti.GstMode, s.payroll.GSTRate())
		if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
			return err
		}
		created = line
		return s.rebuildDerivedLines(ctx, tx, rcti, allowance)
	})
	if err != nil {
		return domain.RctiLine{}, err
	}
	return created, nil
}

func (s *Service) UpdateLine(ctx context.Context, rctiID, lineID string, input domain.LineInput) (domain.RctiLine, error) {
	if err := s.validateLineInput(input); err != nil {
		return domain.RctiLine{}, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.RctiLine{}, domain.ErrLineNotFound
	}

	var updated domain.RctiLine
	err = s.withDraft(ctx, rctiID, func(tx *gorm.DB, rcti *domain.Rcti, allowance decimal.Decimal) error {
		line, err := s.loadLine(ctx, tx, rcti.ID, id)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.ErrLineNotFound
		}
		if line.IsBreakLine(s.payroll.BreakLineMarker()) {
			return domain.ErrReservedCustomer
		}

		line.JobDate = dateOnly(input.JobDate)
		line.Customer = strings.TrimSpace(input.Customer)
		line.TruckType = strings.TrimSpace(input.TruckType)
		line.Description = strings.TrimSpace(input.Description)
		line.ChargedHours = input.ChargedHours
		line.RatePerHour = input.RatePerHour
		line.UpdatedAt = time.Now().UTC()
		applyAmounts(line, rcti.GstStatus, rcti.GstMode, s.payroll.GSTRate())

		if err := tx.WithContext(ctx).Save(line).Error; err != nil {
			return err
		}
		updated = *line
		return s.rebuildDerivedLines(ctx, tx, rcti, allowance)
	})
	if err != nil {
		return domain.RctiLine{}, err
	}
	return updated, nil
}

func (s *Service) DeleteLine(ctx context.Context, rctiID, lineID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return domain.ErrLineNotFound
	}

	return s.withDraft(ctx, rctiID, func(tx *gorm.DB, rcti *domain.Rcti, allowance decimal.Decimal) error {
		line, err := s.loadLine(ctx, tx, rcti.ID, id)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.ErrLineNotFound
		}
		if line.IsBreakLine(s.payroll.BreakLineMarker()) {
			return domain.ErrReservedCustomer
		}

		if err := tx.WithContext(ctx).
			Where("id = ?", id).
			Delete(&domain.RctiLine{}).Error; err != nil {
			return err
		}
		return s.rebuildDerivedLines(ctx, tx, rcti, allowance)
	})
}

// UpdateGst switches the invoice's GST registration or mode and
// recomputes every line from its stored hours and rate. The entered
// figures never change; only the tax split does.
func (s *Service) UpdateGst(ctx context.Context, rctiID string, req domain.UpdateGstRequest) (domain.Rcti, error) {
	if !domain.ValidGstStatus(req.GstStatus) {
		return domain.Rcti{}, domain.ErrInvalidGstStatus
	}
	if !domain.ValidGstMode(req.GstMode) {
		return domain.Rcti{}, domain.ErrInvalidGstMode
	}

	var out domain.Rcti
	err := s.withDraft(ctx, rctiID, func(tx *gorm.DB, rcti *domain.Rcti, allowance decimal.Decimal) error {
		rcti.GstStatus = req.GstStatus
		rcti.GstMode = req.GstMode

		lines, err := s.loadLines(ctx, tx, rcti.ID)
		if err != nil {
			return err
		}
		gstRate := s.payroll.GSTRate()
		now := time.Now().UTC()
		for i := range lines {
			applyAmounts(&lines[i], rcti.GstStatus, rcti.GstMode, gstRate)
			lines[i].UpdatedAt = now
			if err := tx.WithContext(ctx).Save(&lines[i]).Error; err != nil {
				return err
			}
		}

		if err := s.rebuildDerivedLines(ctx, tx, rcti, allowance); err != nil {
			return err
		}
		out = *rcti
		return nil
	})
	if err != nil {
		return domain.Rcti{}, err
	}
	return out, nil
}

// Finalise locks the draft, runs the deduction ledger pass inside the
// same transaction and bakes the net adjustment into the stored total.
// The status flip is a conditional UPDATE guarded on DRAFT, so two
// concurrent finalisations cannot both run the ledger pass.
func (s *Service) Finalise(ctx context.Context, rctiID string, req domain.FinaliseRequest) (domain.FinaliseResponse, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.FinaliseResponse{}, domain.ErrInvalidRctiID
	}

	var response domain.FinaliseResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rcti, err := s.loadRcti(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if rcti == nil {
			return domain.ErrRctiNotFound
		}

		now := time.Now().UTC()
		result := tx.WithContext(ctx).Exec(
			`UPDATE rctis SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			domain.RctiStatusFinalised,
			now,
			id,
			domain.RctiStatusDraft,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if rcti.Status == domain.RctiStatusPaid {
				return domain.ErrRctiPaid
			}
			return domain.ErrRctiNotDraft
		}

		applied, err := s.deductions.ApplyToRcti(ctx, tx, rcti.ID, rcti.DriverID, rcti.WeekEnding, req.Overrides)
		if err != nil {
			return err
		}

		netAdjustment := applied.TotalReimbursementAmount.Sub(applied.TotalDeductionAmount)
		rcti.Total = rcti.Total.Add(netAdjustment)
		rcti.Status = domain.RctiStatusFinalised
		rcti.UpdatedAt = now

		if err := tx.WithContext(ctx).Exec(
			`UPDATE rctis SET total = ?, updated_at = ? WHERE id = ?`,
			rcti.Total,
			now,
			id,
		).Error; err != nil {
			return err
		}

		response = domain.FinaliseResponse{
			Rcti:                     *rcti,
			Applied:                  applied.Applied,
			TotalDeductionAmount:     applied.TotalDeductionAmount,
			TotalReimbursementAmount: applied.TotalReimbursementAmount,
		}
		return nil
	})
	if err != nil {
		return domain.FinaliseResponse{}, err
	}

	s.log.Info("rcti finalised",
		zap.String("rcti_id", rctiID),
		zap.Int("deductions_applied", response.Applied),
	)
	_ = s.audit.Record(ctx, auditdomain.Entry{
		EntityType: "rcti",
		EntityID:   id,
		Action:     "finalised",
		Metadata: map[string]interface{}{
			"applied":              response.Applied,
			"total_deductions":     response.TotalDeductionAmount.String(),
			"total_reimbursements": response.TotalReimbursementAmount.String(),
			"total":                response.Rcti.Total.String(),
		},
	})
	return response, nil
}

// RevertToDraft reverses every deduction application on the invoice,
// restores the totals from the lines and reopens the draft. Paid
// invoices never revert.
func (s *Service) RevertToDraft(ctx context.Context, rctiID, reason string) (domain.Rcti, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.Rcti{}, domain.ErrInvalidRctiID
	}

	// The status flip happens first, under the row lock, so a concurrent
	// MarkPaid cannot land between the check and the reversal. Once the
	// invoice is back in draft no other transition can touch it while the
	// applications are being unwound.
	var out domain.Rcti
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.loadRcti(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrRctiNotFound
		}
		switch current.Status {
		case domain.RctiStatusPaid:
			return domain.ErrRctiPaid
		case domain.RctiStatusDraft:
			return domain.ErrRctiNotFinalised
		}

		lines, err := s.loadLines(ctx, tx, id)
		if err != nil {
			return err
		}
		totals := calc.CalculateRctiTotals(lines)

		now := time.Now().UTC()
		trimmed := strings.TrimSpace(reason)
		result := tx.WithContext(ctx).Exec(
			`UPDATE rctis
			 SET status = ?, subtotal = ?, gst = ?, total = ?,
			     reverted_to_draft_at = ?, reverted_to_draft_reason = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			domain.RctiStatusDraft,
			totals.Subtotal,
			totals.Gst,
			totals.Total,
			now,
			trimmed,
			now,
			id,
			domain.RctiStatusFinalised,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrRctiNotFinalised
		}

		current.Status = domain.RctiStatusDraft
		current.Subtotal = totals.Subtotal
		current.Gst = totals.Gst
		current.Total = totals.Total
		current.RevertedToDraftAt = &now
		current.RevertedToDraftReason = &trimmed
		current.UpdatedAt = now
		out = *current
		return nil
	})
	if err != nil {
		return domain.Rcti{}, err
	}

	reversed, err := s.deductions.RemoveFromRcti(ctx, id)
	if err != nil {
		return domain.Rcti{}, err
	}

	s.log.Info("rcti reverted to draft",
		zap.String("rcti_id", rctiID),
		zap.Int("applications_reversed", reversed.Reversed),
		zap.String("reason", reason),
	)
	_ = s.audit.Record(ctx, auditdomain.Entry{
		EntityType: "rcti",
		EntityID:   id,
		Action:     "reverted_to_draft",
		Metadata: map[string]interface{}{
			"reversed": reversed.Reversed,
			"reason":   strings.TrimSpace(reason),
			"total":    out.Total.String(),
		},
	})
	return out, nil
}

func (s *Service) MarkPaid(ctx context.Context, rctiID string) (domain.Rcti, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.Rcti{}, domain.ErrInvalidRctiID
	}

	var out domain.Rcti
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rcti, err := s.loadRcti(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if rcti == nil {
			return domain.ErrRctiNotFound
		}
		switch rcti.Status {
		case domain.RctiStatusPaid:
			return domain.ErrRctiPaid
		case domain.RctiStatusDraft:
			return domain.ErrRctiNotFinalised
		}

		now := time.Now().UTC()
		rcti.Status = domain.RctiStatusPaid
		rcti.PaidAt = &now
		rcti.UpdatedAt = now
		if err := tx.WithContext(ctx).Save(rcti).Error; err != nil {
			return err
		}
		out = *rcti
		return nil
	})
	if err != nil {
		return domain.Rcti{}, err
	}

	_ = s.audit.Record(ctx, auditdomain.Entry{
		EntityType: "rcti",
		EntityID:   id,
		Action:     "marked_paid",
		Metadata: map[string]interface{}{
			"total": out.Total.String(),
		},
	})
	return out, nil
}

// withDraft loads the invoice under a row lock, verifies it is still a
// draft and hands it to fn along with the driver's break allowance.
func (s *Service) withDraft(ctx context.Context, rctiID string, fn func(tx *gorm.DB, rcti *domain.Rcti, allowance decimal.Decimal) error) error {
	id, err := snowflake.ParseString(strings.TrimSpace(rctiID))
	if err != nil {
		return domain.ErrInvalidRctiID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rcti, err := s.loadRcti(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if rcti == nil {
			return domain.ErrRctiNotFound
		}
		if rcti.Status != domain.RctiStatusDraft {
			return domain.ErrRctiNotDraft
		}

		driver, err := s.drivers.GetByID(ctx, rcti.DriverID.String())
		if err != nil {
			return err
		}
		return fn(tx, rcti, driver.BreakAllowanceHours)
	})
}

// rebuildDerivedLines regenerates the unpaid-break lines from the
// current charge lines and refreshes the cached invoice totals. Runs
// after every line or GST mutation so breaks always match the roster.
func (s *Service) rebuildDerivedLines(ctx context.Context, tx *gorm.DB, rcti *domain.Rcti, allowance decimal.Decimal) error {
	marker := s.payroll.BreakLineMarker()

	if err := tx.WithContext(ctx).
		Where("rcti_id = ? AND customer = ?", rcti.ID, marker).
		Delete(&domain.RctiLine{}).Error; err != nil {
		return err
	}

	lines, err := s.loadLines(ctx, tx, rcti.ID)
	if err != nil {
		return err
	}

	gstRate := s.payroll.GSTRate()
	now := time.Now().UTC()
	for _, breakLine := range calc.BreakLines(lines, allowance, marker) {
		line := domain.RctiLine{
			ID:           s.genID.Generate(),
			RctiID:       rcti.ID,
			JobDate:      rcti.WeekEnding,
			Customer:     marker,
			TruckType:    breakLine.TruckType,
			Description:  "Unpaid break deduction",
			ChargedHours: breakLine.ChargedHours,
			RatePerHour:  breakLine.RatePerHour,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		applyAmounts(&line, rcti.GstStatus, rcti.GstMode, gstRate)
		if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
			return err
		}
		lines = append(lines, line)
	}

	totals := calc.CalculateRctiTotals(lines)
	rcti.Subtotal = totals.Subtotal
	rcti.Gst = totals.Gst
	rcti.Total = totals.Total
	rcti.UpdatedAt = now

	return tx.WithContext(ctx).Exec(
		`UPDATE rctis SET gst_status = ?, gst_mode = ?, subtotal = ?, gst = ?, total = ?, updated_at = ? WHERE id = ?`,
		rcti.GstStatus,
		rcti.GstMode,
		rcti.Subtotal,
		rcti.Gst,
		rcti.Total,
		now,
		rcti.ID,
	).Error
}

func (s *Service) validateLineInput(input domain.LineInput) error {
	if input.JobDate.IsZero() {
		return domain.ErrInvalidWeekEnding
	}
	if input.ChargedHours.Sign() <= 0 {
		return domain.ErrInvalidHours
	}
	if input.RatePerHour.Sign() < 0 {
		return domain.ErrInvalidRate
	}
	if strings.TrimSpace(input.Customer) == s.payroll.BreakLineMarker() {
		return domain.ErrReservedCustomer
	}
	return nil
}

func (s *Service) loadRcti(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Rcti, error) {
	query := `SELECT * FROM rctis WHERE id = ?`
	if forUpdate {
		query += db.ForUpdate(tx)
	}
	var rcti domain.Rcti
	err := tx.WithContext(ctx).Raw(query, id).Scan(&rcti).Error
	if err != nil {
		return nil, err
	}
	if rcti.ID == 0 {
		return nil, nil
	}
	return &rcti, nil
}

func (s *Service) loadLines(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID) ([]domain.RctiLine, error) {
	var lines []domain.RctiLine
	err := tx.WithContext(ctx).
		Where("rcti_id = ?", rctiID).
		Order("job_date asc, id asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) loadLine(ctx context.Context, tx *gorm.DB, rctiID, lineID snowflake.ID) (*domain.RctiLine, error) {
	var line domain.RctiLine
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM rcti_lines WHERE id = ? AND rcti_id = ?`,
		lineID,
		rctiID,
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

// netAdjustment sums the invoice's applications signed by deduction
// kind: reimbursements add, deductions subtract.
func (s *Service) netAdjustment(ctx context.Context, tx *gorm.DB, rctiID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Net decimal.Decimal
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE WHEN d.kind = ? THEN da.amount ELSE -da.amount END), 0) AS net
		 FROM deduction_applications da
		 JOIN deductions d ON d.id = da.deduction_id
		 WHERE da.rcti_id = ?`,
		deductiondomain.KindReimbursement,
		rctiID,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Net, nil
}

func applyAmounts(line *domain.RctiLine, status domain.GstStatus, mode domain.GstMode, gstRate decimal.Decimal) {
	amounts := calc.CalculateLineAmounts(line.ChargedHours, line.RatePerHour, status, mode, gstRate)
	line.AmountExGst = amounts.AmountExGst
	line.GstAmount = amounts.GstAmount
	line.AmountIncGst = amounts.AmountIncGst
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
