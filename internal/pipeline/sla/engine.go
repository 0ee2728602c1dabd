package sla

import (
	"context"
	"math"
	"time"

	pipelinemetrics "passage/internal/pipeline/metrics"
	"passage/internal/pipeline/models"
	"passage/pkg/requestcontext"
)

// Status classifies a candidate's time in stage against policy.
type Status string

const (
	StatusOnTrack Status = "ON_TRACK"
	StatusWarning Status = "WARNING"
	StatusOverdue Status = "OVERDUE"
	// StatusExempt marks stages without an SLA limit (terminal stages).
	StatusExempt Status = "EXEMPT"
)

// Report is the SLA computation result for one candidate.
type Report struct {
	DaysElapsed int    `json:"daysElapsed"`
	Limit       int    `json:"slaLimit"`
	Status      Status `json:"status"`
}

// Engine evaluates candidates against a policy table.
type Engine struct {
	policy PolicyTable
	// warningRatio is the fraction of the limit at which a candidate enters
	// WARNING, the early-alert band below a hard breach.
	warningRatio float64
	// criticalGraceDays is how far past the limit a breach escalates to
	// critical for dashboard alerting.
	criticalGraceDays int
	metrics           *pipelinemetrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithWarningRatio overrides the default 0.8 warning band.
func WithWarningRatio(r float64) Option {
	return func(e *Engine) {
		if r > 0 && r <= 1 {
			e.warningRatio = r
		}
	}
}

// WithCriticalGraceDays overrides the default 3-day critical grace.
func WithCriticalGraceDays(days int) Option {
	return func(e *Engine) {
		if days >= 0 {
			e.criticalGraceDays = days
		}
	}
}

// WithMetrics enables classification metrics.
func WithMetrics(m *pipelinemetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds an engine over the given policy.
func NewEngine(policy PolicyTable, opts ...Option) *Engine {
	e := &Engine{
		policy:            policy,
		warningRatio:      0.8,
		criticalGraceDays: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate classifies the candidate's time in their current stage.
//
// A zero or future StageEnteredAt counts as zero days elapsed rather than an
// error so dashboard rendering stays resilient to malformed timestamps.
func (e *Engine) Calculate(ctx context.Context, c *models.Candidate) Report {
	days := e.daysElapsed(requestcontext.Now(ctx), c.StageEnteredAt)

	limit, tracked := e.policy.Limit(c.Stage)
	report := Report{DaysElapsed: days, Limit: limit}
	switch {
	case !tracked:
		report.Status = StatusExempt
	case days > limit:
		report.Status = StatusOverdue
	case days >= warningThreshold(limit, e.warningRatio):
		report.Status = StatusWarning
	default:
		report.Status = StatusOnTrack
	}

	if e.metrics != nil {
		e.metrics.SLAStatusScans.WithLabelValues(string(report.Status)).Inc()
	}
	return report
}

// IsCritical reports whether a breach has escalated past the grace window.
// Critical is strictly derived: it implies OVERDUE.
func (e *Engine) IsCritical(report Report) bool {
	return report.Status == StatusOverdue && report.DaysElapsed > report.Limit+e.criticalGraceDays
}

// Summary aggregates SLA classifications across a collection for dashboards.
type Summary struct {
	OnTrack  int                `json:"onTrack"`
	Warning  int                `json:"warning"`
	Overdue  int                `json:"overdue"`
	Exempt   int                `json:"exempt"`
	Critical []models.Candidate `json:"critical,omitempty"`
}

// Summarize classifies every candidate and collects the critical ones.
func (e *Engine) Summarize(ctx context.Context, candidates []*models.Candidate) Summary {
	var s Summary
	for _, c := range candidates {
		report := e.Calculate(ctx, c)
		switch report.Status {
		case StatusOnTrack:
			s.OnTrack++
		case StatusWarning:
			s.Warning++
		case StatusOverdue:
			s.Overdue++
			if e.IsCritical(report) {
				s.Critical = append(s.Critical, *c.Clone())
			}
		case StatusExempt:
			s.Exempt++
		}
	}
	return s
}

func (e *Engine) daysElapsed(now, enteredAt time.Time) int {
	if enteredAt.IsZero() || enteredAt.After(now) {
		return 0
	}
	return int(now.Sub(enteredAt).Hours() / 24)
}

// warningThreshold is the day count at which WARNING starts: the configured
// fraction of the limit, rounded up so short limits still get a warning band.
func warningThreshold(limit int, ratio float64) int {
	return int(math.Ceil(float64(limit) * ratio))
}
