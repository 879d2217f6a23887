package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bldragon101/worklog/internal/deduction/domain"
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/bldragon101/worklog/pkg/telemetry"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
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

func newTestService(t *testing.T) (*gorm.DB, *Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Deduction{},
		&domain.DeductionApplication{},
		&rctidomain.Rcti{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	}).(*Service)

	return db, svc, node
}

func seedRcti(t *testing.T, db *gorm.DB, node *snowflake.Node, driverID snowflake.ID, weekEnding time.Time) snowflake.ID {
	t.Helper()
	rcti := rctidomain.Rcti{
		ID:         node.Generate(),
		DriverID:   driverID,
		WeekEnding: weekEnding,
		GstStatus:  rctidomain.GstStatusRegistered,
		GstMode:    rctidomain.GstModeExclusive,
		Status:     rctidomain.RctiStatusDraft,
	}
	require.NoError(t, db.Create(&rcti).Error)
	return rcti.ID
}

func seedWeeklyDeduction(t *testing.T, db *gorm.DB, node *snowflake.Node, driverID snowflake.ID, total, perCycle string, start time.Time) domain.Deduction {
	t.Helper()
	cycle := d(perCycle)
	deduction := domain.Deduction{
		ID:              node.Generate(),
		DriverID:        driverID,
		Kind:            domain.KindDeduction,
		Description:     "Truck repair repayment",
		TotalAmount:     d(total),
		AmountPaid:      decimal.Zero,
		AmountRemaining: d(total),
		AmountPerCycle:  &cycle,
		Frequency:       domain.FrequencyWeekly,
		StartDate:       start,
		Status:          domain.StatusActive,
	}
	require.NoError(t, db.Create(&deduction).Error)
	return deduction
}

func reload(t *testing.T, db *gorm.DB, id snowflake.ID) domain.Deduction {
	t.Helper()
	var out domain.Deduction
	require.NoError(t, db.Where("id = ?", id).First(&out).Error)
	return out
}

func TestApplyToRcti_DefaultPerCycleAmount(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	result, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Applied)
	assert.True(t, result.TotalDeductionAmount.Equal(d("100")))
	assert.True(t, result.TotalReimbursementAmount.IsZero())

	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountPaid.Equal(d("100")), "paid: %s", got.AmountPaid)
	assert.True(t, got.AmountRemaining.Equal(d("400")), "remaining: %s", got.AmountRemaining)
	assert.Equal(t, domain.StatusActive, got.Status)

	apps, err := svc.ApplicationsForRcti(ctx, rctiID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.True(t, apps[0].Amount.Equal(d("100")))
}

func TestApplyToRcti_OverrideAndSkip(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	fifty := d("50")
	result, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), map[string]*decimal.Decimal{
		deduction.ID.String(): &fifty,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.True(t, result.TotalDeductionAmount.Equal(d("50")))

	// Next cycle: explicit skip still records an application.
	skipRctiID := seedRcti(t, db, node, driverID, day(2025, 11, 16))
	result, err = svc.ApplyToRcti(ctx, db, skipRctiID, driverID, day(2025, 11, 16), map[string]*decimal.Decimal{
		deduction.ID.String(): nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)
	assert.True(t, result.TotalDeductionAmount.IsZero())

	apps, err := svc.ApplicationsForRcti(ctx, skipRctiID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.True(t, apps[0].IsSkip())

	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountRemaining.Equal(d("450")), "remaining: %s", got.AmountRemaining)
}

func TestApplyToRcti_ZeroOverrideBehavesLikeSkip(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	zero := decimal.Zero
	result, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), map[string]*decimal.Decimal{
		deduction.ID.String(): &zero,
	})
	require.NoError(t, err)

	// A $0 override is a skip: recorded for the schedule, not counted
	// as applied, balance untouched.
	assert.Equal(t, 0, result.Applied)
	assert.True(t, result.TotalDeductionAmount.IsZero())

	apps, err := svc.ApplicationsForRcti(ctx, rctiID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.True(t, apps[0].IsSkip())

	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountRemaining.Equal(d("500")), "remaining: %s", got.AmountRemaining)
	assert.True(t, got.AmountPaid.IsZero())
}

func TestApplyToRcti_ClampsToRemainingAndCompletes(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "100", "80", day(2025, 11, 3))

	firstRcti := seedRcti(t, db, node, driverID, day(2025, 11, 9))
	_, err := svc.ApplyToRcti(ctx, db, firstRcti, driverID, day(2025, 11, 9), nil)
	require.NoError(t, err)

	secondRcti := seedRcti(t, db, node, driverID, day(2025, 11, 16))
	result, err := svc.ApplyToRcti(ctx, db, secondRcti, driverID, day(2025, 11, 16), nil)
	require.NoError(t, err)

	// Only 20 was left; the per-cycle 80 clamps down.
	assert.True(t, result.TotalDeductionAmount.Equal(d("20")), "amount: %s", result.TotalDeductionAmount)

	got := reload(t, db, deduction.ID)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.True(t, got.AmountRemaining.IsZero())
	require.NotNil(t, got.CompletedAt)
}

func TestApplyToRcti_NegativeOverrideRejected(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	bad := d("-10")
	_, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), map[string]*decimal.Decimal{
		deduction.ID.String(): &bad,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOverride)

	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountRemaining.Equal(d("500")), "remaining: %s", got.AmountRemaining)
}

func TestApplyToRcti_SkipAdvancesWeeklySchedule(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))

	// Week 1: pays 100.
	week1 := seedRcti(t, db, node, driverID, day(2025, 11, 9))
	result, err := svc.ApplyToRcti(ctx, db, week1, driverID, day(2025, 11, 9), nil)
	require.NoError(t, err)
	assert.True(t, result.TotalDeductionAmount.Equal(d("100")))

	// Week 2: operator skips; balance untouched, schedule advances.
	week2 := seedRcti(t, db, node, driverID, day(2025, 11, 16))
	result, err = svc.ApplyToRcti(ctx, db, week2, driverID, day(2025, 11, 16), map[string]*decimal.Decimal{
		deduction.ID.String(): nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)

	// Week 3: due again, pays 100.
	week3 := seedRcti(t, db, node, driverID, day(2025, 11, 23))
	result, err = svc.ApplyToRcti(ctx, db, week3, driverID, day(2025, 11, 23), nil)
	require.NoError(t, err)
	assert.True(t, result.TotalDeductionAmount.Equal(d("100")))

	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountPaid.Equal(d("200")), "paid: %s", got.AmountPaid)
	assert.True(t, got.AmountRemaining.Equal(d("300")), "remaining: %s", got.AmountRemaining)
}

func counterValue(t *testing.T, name, labelName, labelValue string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestApplyToRcti_CountsLedgerApplications(t *testing.T) {
	db, svc, node := newTestService(t)
	svc.metrics = telemetry.NewMetrics()
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	result, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Applied)

	applied := counterValue(t, "worklog_deduction_applications_total", "kind", string(domain.KindDeduction))
	assert.Equal(t, 1.0, applied)

	// A skip does not count as an application.
	skipRcti := seedRcti(t, db, node, driverID, day(2025, 11, 16))
	_, err = svc.ApplyToRcti(ctx, db, skipRcti, driverID, day(2025, 11, 16), map[string]*decimal.Decimal{
		deduction.ID.String(): nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, "worklog_deduction_applications_total", "kind", string(domain.KindDeduction)))
}

func TestApplyBalanceChange_StaleSnapshotLosesRace(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))

	// Another transaction moves the balance after our snapshot was taken.
	require.NoError(t, db.Exec(
		`UPDATE deductions SET amount_paid = ?, amount_remaining = ? WHERE id = ?`,
		d("100"), d("400"), deduction.ID,
	).Error)

	updated, err := svc.applyBalanceChange(ctx, db, deduction, d("100"), time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, updated, "stale snapshot must not win")

	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountRemaining.Equal(d("400")), "remaining: %s", got.AmountRemaining)
}

func TestRemoveFromRcti_RestoresBalances(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "100", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	_, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, reload(t, db, deduction.ID).Status)

	result, err := svc.RemoveFromRcti(ctx, rctiID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reversed)

	got := reload(t, db, deduction.ID)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.True(t, got.AmountPaid.IsZero())
	assert.True(t, got.AmountRemaining.Equal(d("100")))
	assert.Nil(t, got.CompletedAt)

	apps, err := svc.ApplicationsForRcti(ctx, rctiID)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestDelete_RefusesHistory(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))
	rctiID := seedRcti(t, db, node, driverID, day(2025, 11, 9))

	_, err := svc.ApplyToRcti(ctx, db, rctiID, driverID, day(2025, 11, 9), nil)
	require.NoError(t, err)

	err = svc.Delete(ctx, deduction.ID.String())
	assert.ErrorIs(t, err, domain.ErrDeductionHasHistory)

	// Cancel is the soft path.
	cancelled, err := svc.Cancel(ctx, deduction.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// And a cancelled deduction cannot be edited.
	desc := "new description"
	_, err = svc.Update(ctx, deduction.ID.String(), domain.UpdateDeductionRequest{Description: &desc})
	assert.ErrorIs(t, err, domain.ErrDeductionNotActive)
}

func TestPendingForDriver_PreviewsWithoutSideEffects(t *testing.T) {
	db, svc, node := newTestService(t)
	ctx := context.Background()

	driverID := node.Generate()
	deduction := seedWeeklyDeduction(t, db, node, driverID, "500", "100", day(2025, 11, 3))

	pending, err := svc.PendingForDriver(ctx, driverID.String(), day(2025, 11, 9))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, deduction.ID, pending[0].Deduction.ID)
	assert.True(t, pending[0].DefaultAmount.Equal(d("100")))

	// Preview does not touch the ledger.
	got := reload(t, db, deduction.ID)
	assert.True(t, got.AmountRemaining.Equal(d("500")))

	// Before the start date nothing is due.
	pending, err = svc.PendingForDriver(ctx, driverID.String(), day(2025, 11, 2))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreate_Validation(t *testing.T) {
	_, svc, node := newTestService(t)
	ctx := context.Background()
	driverID := node.Generate().String()

	_, err := svc.Create(ctx, domain.CreateDeductionRequest{
		DriverID:    "not-a-snowflake!",
		Frequency:   domain.FrequencyOnce,
		TotalAmount: d("100"),
		StartDate:   day(2025, 11, 3),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDriver)

	_, err = svc.Create(ctx, domain.CreateDeductionRequest{
		DriverID:    driverID,
		Frequency:   "SOMETIMES",
		TotalAmount: d("100"),
		StartDate:   day(2025, 11, 3),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)

	_, err = svc.Create(ctx, domain.CreateDeductionRequest{
		DriverID:    driverID,
		Frequency:   domain.FrequencyOnce,
		TotalAmount: decimal.Zero,
		StartDate:   day(2025, 11, 3),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTotalAmount)

	created, err := svc.Create(ctx, domain.CreateDeductionRequest{
		DriverID:    driverID,
		Description: "Fuel card",
		Frequency:   domain.FrequencyOnce,
		TotalAmount: d("250"),
		StartDate:   day(2025, 11, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindDeduction, created.Kind)
	assert.True(t, created.AmountRemaining.Equal(d("250")))
}
