package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	"passage/pkg/requestcontext"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func candidateIn(stage models.Stage, enteredDaysAgo int) *models.Candidate {
	return &models.Candidate{
		ID:             id.NewCandidateID(),
		FullName:       "Sita Rai",
		Stage:          stage,
		StageEnteredAt: testNow.AddDate(0, 0, -enteredDaysAgo),
	}
}

func TestCalculate_OverdueAfterLimit(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	// Verification allows 2 days; 5 days in is a breach.
	report := engine.Calculate(testCtx(), candidateIn(models.StageVerified, 5))
	assert.Equal(t, 5, report.DaysElapsed)
	assert.Equal(t, 2, report.Limit)
	assert.Equal(t, StatusOverdue, report.Status)
}

func TestCalculate_OverdueBoundary(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	// Exactly at the limit is not yet a breach.
	atLimit := engine.Calculate(testCtx(), candidateIn(models.StageRegistered, 7))
	assert.NotEqual(t, StatusOverdue, atLimit.Status)

	pastLimit := engine.Calculate(testCtx(), candidateIn(models.StageRegistered, 8))
	assert.Equal(t, StatusOverdue, pastLimit.Status)
}

func TestCalculate_WarningBand(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	// registered limit 7, warning from ceil(7*0.8) = 6 days.
	tests := []struct {
		daysAgo int
		want    Status
	}{
		{0, StatusOnTrack},
		{5, StatusOnTrack},
		{6, StatusWarning},
		{7, StatusWarning},
		{8, StatusOverdue},
	}
	for _, tc := range tests {
		report := engine.Calculate(testCtx(), candidateIn(models.StageRegistered, tc.daysAgo))
		assert.Equal(t, tc.want, report.Status, "day %d", tc.daysAgo)
	}
}

func TestCalculate_ShortLimitStillWarns(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	// verified limit 2: warning threshold rounds up to 2, so day 2 warns and
	// day 3 breaches.
	assert.Equal(t, StatusWarning, engine.Calculate(testCtx(), candidateIn(models.StageVerified, 2)).Status)
	assert.Equal(t, StatusOverdue, engine.Calculate(testCtx(), candidateIn(models.StageVerified, 3)).Status)
}

func TestCalculate_DaysElapsedNeverNegative(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	zero := candidateIn(models.StageRegistered, 0)
	zero.StageEnteredAt = time.Time{}
	report := engine.Calculate(testCtx(), zero)
	assert.Equal(t, 0, report.DaysElapsed)
	assert.Equal(t, StatusOnTrack, report.Status)

	future := candidateIn(models.StageRegistered, 0)
	future.StageEnteredAt = testNow.AddDate(0, 0, 2)
	report = engine.Calculate(testCtx(), future)
	assert.Equal(t, 0, report.DaysElapsed)
	assert.GreaterOrEqual(t, report.DaysElapsed, 0)
}

func TestCalculate_PartialDaysTruncate(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	c := candidateIn(models.StageApplied, 0)
	c.StageEnteredAt = testNow.Add(-47 * time.Hour)
	assert.Equal(t, 1, engine.Calculate(testCtx(), c).DaysElapsed)
}

func TestCalculate_TerminalStageExempt(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	report := engine.Calculate(testCtx(), candidateIn(models.StageDeparted, 400))
	assert.Equal(t, StatusExempt, report.Status)
	assert.Equal(t, 0, report.Limit)
}

func TestIsCritical(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	// verified limit 2, grace 3: critical strictly past day 5.
	assert.False(t, engine.IsCritical(engine.Calculate(testCtx(), candidateIn(models.StageVerified, 5))))
	assert.True(t, engine.IsCritical(engine.Calculate(testCtx(), candidateIn(models.StageVerified, 6))))

	// Never critical without a breach.
	onTrack := engine.Calculate(testCtx(), candidateIn(models.StageRegistered, 1))
	assert.False(t, engine.IsCritical(onTrack))
}

func TestSummarize(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	candidates := []*models.Candidate{
		candidateIn(models.StageRegistered, 1),  // on track
		candidateIn(models.StageRegistered, 6),  // warning
		candidateIn(models.StageVerified, 5),    // overdue, within grace
		candidateIn(models.StageVerified, 10),   // overdue and critical
		candidateIn(models.StageDeparted, 100),  // exempt
	}

	summary := engine.Summarize(testCtx(), candidates)
	assert.Equal(t, 1, summary.OnTrack)
	assert.Equal(t, 1, summary.Warning)
	assert.Equal(t, 2, summary.Overdue)
	assert.Equal(t, 1, summary.Exempt)
	require.Len(t, summary.Critical, 1)
	assert.Equal(t, candidates[3].ID, summary.Critical[0].ID)
}

func TestPolicyLimits(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		stage models.Stage
		limit int
	}{
		{models.StageRegistered, 7},
		{models.StageVerified, 2},
		{models.StageApplied, 14},
		{models.StageOfferAccepted, 10},
		{models.StageVisaProcessing, 30},
	}
	for _, tc := range tests {
		limit, ok := policy.Limit(tc.stage)
		require.True(t, ok, tc.stage)
		assert.Equal(t, tc.limit, limit, tc.stage)
	}

	_, ok := policy.Limit(models.StageDeparted)
	assert.False(t, ok)
}

func TestWithWarningRatio(t *testing.T) {
	engine := NewEngine(DefaultPolicy(), WithWarningRatio(0.5))

	// registered limit 7, warning from ceil(7*0.5) = 4 days.
	assert.Equal(t, StatusOnTrack, engine.Calculate(testCtx(), candidateIn(models.StageRegistered, 3)).Status)
	assert.Equal(t, StatusWarning, engine.Calculate(testCtx(), candidateIn(models.StageRegistered, 4)).Status)
}
