package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	auditdomain "github.com/bldragon101/worklog/internal/audit/domain"
	auditservice "github.com/bldragon101/worklog/internal/audit/service"
	"github.com/bldragon101/worklog/internal/config"
	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	deductionservice "github.com/bldragon101/worklog/internal/deduction/service"
	driverdomain "github.com/bldragon101/worklog/internal/driver/domain"
	driverservice "github.com/bldragon101/worklog/internal/driver/service"
	jobdomain "github.com/bldragon101/worklog/internal/job/domain"
	jobservice "github.com/bldragon101/worklog/internal/job/service"
	"github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	db           *gorm.DB
	node         *snowflake.Node
	rctiSvc      domain.Service
	driverSvc    driverdomain.Service
	jobSvc       jobdomain.Service
	deductionSvc deductiondomain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&driverdomain.Driver{},
		&jobdomain.Job{},
		&domain.Rcti{},
		&domain.RctiLine{},
		&deductiondomain.Deduction{},
		&deductiondomain.DeductionApplication{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	payroll, err := config.NewPayrollConfigHolder()
	require.NoError(t, err)

	driverSvc := driverservice.NewService(driverservice.ServiceParam{DB: db, Log: log, GenID: node})
	jobSvc := jobservice.NewService(jobservice.ServiceParam{DB: db, Log: log, GenID: node})
	deductionSvc := deductionservice.NewService(deductionservice.ServiceParam{DB: db, Log: log, GenID: node})
	auditSvc := auditservice.NewService(auditservice.ServiceParam{DB: db, Log: log, GenID: node})

	rctiSvc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		Payroll:    payroll,
		Drivers:    driverSvc,
		Jobs:       jobSvc,
		Deductions: deductionSvc,
		Audit:      auditSvc,
	})

	return &testEnv{
		db:           db,
		node:         node,
		rctiSvc:      rctiSvc,
		driverSvc:    driverSvc,
		jobSvc:       jobSvc,
		deductionSvc: deductionSvc,
	}
}

func (e *testEnv) seedDriver(t *testing.T) driverdomain.Driver {
	t.Helper()
	driver, err := e.driverSvc.Create(context.Background(), driverdomain.CreateDriverRequest{
		Name:                "Dale Carter",
		Email:               "dale@example.com",
		GstStatus:           domain.GstStatusRegistered,
		GstMode:             domain.GstModeExclusive,
		BreakAllowanceHours: d("0.5"),
		DefaultTruckType:    "Semi",
	})
	require.NoError(t, err)
	return driver
}

func (e *testEnv) seedJob(t *testing.T, driverID snowflake.ID, date time.Time, hours, rate string) {
	t.Helper()
	_, err := e.jobSvc.Ingest(context.Background(), jobdomain.IngestJobRequest{
		DriverID:     driverID.String(),
		JobDate:      date,
		Customer:     "Acme Haulage",
		TruckType:    "Semi",
		ChargedHours: d(hours),
		RatePerHour:  d(rate),
	})
	require.NoError(t, err)
}

func (e *testEnv) seedWeeklyDeduction(t *testing.T, driverID snowflake.ID, total, perCycle string) deductiondomain.Deduction {
	t.Helper()
	cycle := d(perCycle)
	deduction, err := e.deductionSvc.Create(context.Background(), deductiondomain.CreateDeductionRequest{
		DriverID:       driverID.String(),
		Kind:           deductiondomain.KindDeduction,
		Description:    "Truck repair repayment",
		TotalAmount:    d(total),
		AmountPerCycle: &cycle,
		Frequency:      deductiondomain.FrequencyWeekly,
		StartDate:      day(2025, 11, 3),
	})
	require.NoError(t, err)
	return deduction
}

func TestCreate_ImportsJobsAndSynthesisesBreaks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	env.seedJob(t, driver.ID, day(2025, 11, 3), "8", "45")
	env.seedJob(t, driver.ID, day(2025, 11, 4), "9", "45")

	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RctiStatusDraft, rcti.Status)
	assert.True(t, rcti.Subtotal.Equal(d("720.00")), "subtotal: %s", rcti.Subtotal)
	assert.True(t, rcti.Gst.Equal(d("72.00")), "gst: %s", rcti.Gst)
	assert.True(t, rcti.Total.Equal(d("792.00")), "total: %s", rcti.Total)

	detail, err := env.rctiSvc.GetByID(ctx, rcti.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Lines, 3)

	var breakLines []domain.RctiLine
	for _, line := range detail.Lines {
		if line.IsBreakLine("Unpaid Breaks") {
			breakLines = append(breakLines, line)
		}
	}
	require.Len(t, breakLines, 1, "two shifts on one truck type collapse into one break line")
	assert.True(t, breakLines[0].ChargedHours.Equal(d("-1.0")), "hours: %s", breakLines[0].ChargedHours)
	assert.True(t, breakLines[0].AmountIncGst.Equal(d("-49.50")), "inc: %s", breakLines[0].AmountIncGst)
}

func TestCreate_DuplicateWeekRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	_, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	_, err = env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	assert.ErrorIs(t, err, domain.ErrRctiExists)
}

func TestAddLine_RecomputesBreaksAndTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)
	assert.True(t, rcti.Total.IsZero())

	_, err = env.rctiSvc.AddLine(ctx, rcti.ID.String(), domain.LineInput{
		JobDate:      day(2025, 11, 5),
		Customer:     "Acme Haulage",
		TruckType:    "Semi",
		ChargedHours: d("10"),
		RatePerHour:  d("40"),
	})
	require.NoError(t, err)

	detail, err := env.rctiSvc.GetByID(ctx, rcti.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Lines, 2, "manual line plus synthesised break")
	// 10h*40 = 400 ex, break -0.5h*40 = -20 ex; subtotal 380, gst 38, total 418.
	assert.True(t, detail.Rcti.Total.Equal(d("418.00")), "total: %s", detail.Rcti.Total)
}

func TestAddLine_ReservedCustomerRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	_, err = env.rctiSvc.AddLine(ctx, rcti.ID.String(), domain.LineInput{
		JobDate:      day(2025, 11, 5),
		Customer:     "Unpaid Breaks",
		TruckType:    "Semi",
		ChargedHours: d("1"),
		RatePerHour:  d("40"),
	})
	assert.ErrorIs(t, err, domain.ErrReservedCustomer)
}

func TestUpdateGst_RecomputesAllLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	env.seedJob(t, driver.ID, day(2025, 11, 3), "8", "45")

	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)
	assert.True(t, rcti.Gst.Sign() > 0)

	updated, err := env.rctiSvc.UpdateGst(ctx, rcti.ID.String(), domain.UpdateGstRequest{
		GstStatus: domain.GstStatusNotRegistered,
		GstMode:   domain.GstModeExclusive,
	})
	require.NoError(t, err)

	assert.True(t, updated.Gst.IsZero(), "gst: %s", updated.Gst)
	assert.True(t, updated.Total.Equal(updated.Subtotal), "total %s != subtotal %s", updated.Total, updated.Subtotal)

	detail, err := env.rctiSvc.GetByID(ctx, rcti.ID.String())
	require.NoError(t, err)
	for _, line := range detail.Lines {
		assert.True(t, line.GstAmount.IsZero(), "line gst: %s", line.GstAmount)
	}
}

func TestFinalise_AppliesDeductionsAndBakesTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	env.seedJob(t, driver.ID, day(2025, 11, 3), "8", "45")
	env.seedJob(t, driver.ID, day(2025, 11, 4), "9", "45")
	env.seedWeeklyDeduction(t, driver.ID, "500", "100")

	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	resp, err := env.rctiSvc.Finalise(ctx, rcti.ID.String(), domain.FinaliseRequest{})
	require.NoError(t, err)

	assert.Equal(t, domain.RctiStatusFinalised, resp.Rcti.Status)
	assert.Equal(t, 1, resp.Applied)
	assert.True(t, resp.TotalDeductionAmount.Equal(d("100")))
	assert.True(t, resp.Rcti.Total.Equal(d("692.00")), "total: %s", resp.Rcti.Total)

	detail, err := env.rctiSvc.GetByID(ctx, rcti.ID.String())
	require.NoError(t, err)
	assert.True(t, detail.NetAdjustment.Equal(d("-100")), "net: %s", detail.NetAdjustment)
	assert.True(t, detail.OriginalTotal.Equal(d("792.00")), "original: %s", detail.OriginalTotal)

	// Draft-only mutations are now rejected.
	_, err = env.rctiSvc.AddLine(ctx, rcti.ID.String(), domain.LineInput{
		JobDate:      day(2025, 11, 5),
		Customer:     "Acme Haulage",
		TruckType:    "Semi",
		ChargedHours: d("1"),
		RatePerHour:  d("40"),
	})
	assert.ErrorIs(t, err, domain.ErrRctiNotDraft)

	// And so is a second finalisation.
	_, err = env.rctiSvc.Finalise(ctx, rcti.ID.String(), domain.FinaliseRequest{})
	assert.ErrorIs(t, err, domain.ErrRctiNotDraft)
}

func TestRevertToDraft_ReversesLedgerAndRestoresTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	env.seedJob(t, driver.ID, day(2025, 11, 3), "8", "45")
	deduction := env.seedWeeklyDeduction(t, driver.ID, "500", "100")

	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)
	lineTotal := rcti.Total

	_, err = env.rctiSvc.Finalise(ctx, rcti.ID.String(), domain.FinaliseRequest{})
	require.NoError(t, err)

	reverted, err := env.rctiSvc.RevertToDraft(ctx, rcti.ID.String(), "missed a load on Tuesday")
	require.NoError(t, err)

	assert.Equal(t, domain.RctiStatusDraft, reverted.Status)
	assert.True(t, reverted.Total.Equal(lineTotal), "total %s != %s", reverted.Total, lineTotal)
	require.NotNil(t, reverted.RevertedToDraftAt)
	require.NotNil(t, reverted.RevertedToDraftReason)
	assert.Equal(t, "missed a load on Tuesday", *reverted.RevertedToDraftReason)

	// The ledger application is undone.
	restored, err := env.deductionSvc.GetByID(ctx, deduction.ID.String())
	require.NoError(t, err)
	assert.True(t, restored.AmountRemaining.Equal(d("500")), "remaining: %s", restored.AmountRemaining)

	// A draft cannot be reverted again.
	_, err = env.rctiSvc.RevertToDraft(ctx, rcti.ID.String(), "again")
	assert.ErrorIs(t, err, domain.ErrRctiNotFinalised)
}

func TestRevertToDraft_PaymentLandingFirstWinsTheRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	env.seedJob(t, driver.ID, day(2025, 11, 3), "8", "45")
	deduction := env.seedWeeklyDeduction(t, driver.ID, "500", "100")

	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	_, err = env.rctiSvc.Finalise(ctx, rcti.ID.String(), domain.FinaliseRequest{})
	require.NoError(t, err)

	// A payment that commits before the revert transaction takes the
	// row lock must make the revert fail without unwinding anything.
	now := time.Now().UTC()
	require.NoError(t, env.db.Exec(
		`UPDATE rctis SET status = ?, paid_at = ? WHERE id = ?`,
		domain.RctiStatusPaid, now, rcti.ID,
	).Error)

	_, err = env.rctiSvc.RevertToDraft(ctx, rcti.ID.String(), "too late")
	assert.ErrorIs(t, err, domain.ErrRctiPaid)

	var current domain.Rcti
	require.NoError(t, env.db.Where("id = ?", rcti.ID).First(&current).Error)
	assert.Equal(t, domain.RctiStatusPaid, current.Status)
	assert.Nil(t, current.RevertedToDraftAt)

	// The ledger application stays in place.
	applied, err := env.deductionSvc.GetByID(ctx, deduction.ID.String())
	require.NoError(t, err)
	assert.True(t, applied.AmountRemaining.Equal(d("400")), "remaining: %s", applied.AmountRemaining)
}

func TestMarkPaid_StatusMachine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver := env.seedDriver(t)
	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	_, err = env.rctiSvc.MarkPaid(ctx, rcti.ID.String())
	assert.ErrorIs(t, err, domain.ErrRctiNotFinalised)

	_, err = env.rctiSvc.Finalise(ctx, rcti.ID.String(), domain.FinaliseRequest{})
	require.NoError(t, err)

	paid, err := env.rctiSvc.MarkPaid(ctx, rcti.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.RctiStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	// Paid is terminal.
	_, err = env.rctiSvc.MarkPaid(ctx, rcti.ID.String())
	assert.ErrorIs(t, err, domain.ErrRctiPaid)
	_, err = env.rctiSvc.RevertToDraft(ctx, rcti.ID.String(), "nope")
	assert.ErrorIs(t, err, domain.ErrRctiPaid)
	_, err = env.rctiSvc.Finalise(ctx, rcti.ID.String(), domain.FinaliseRequest{})
	assert.ErrorIs(t, err, domain.ErrRctiPaid)
}

func TestCreate_UsesDriverGstDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	driver, err := env.driverSvc.Create(ctx, driverdomain.CreateDriverRequest{
		Name:                "Sam Rigby",
		GstStatus:           domain.GstStatusNotRegistered,
		GstMode:             domain.GstModeInclusive,
		BreakAllowanceHours: decimal.Zero,
	})
	require.NoError(t, err)

	rcti, err := env.rctiSvc.Create(ctx, domain.CreateRctiRequest{
		DriverID:   driver.ID.String(),
		WeekEnding: day(2025, 11, 9),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.GstStatusNotRegistered, rcti.GstStatus)
	assert.Equal(t, domain.GstModeInclusive, rcti.GstMode)
}
