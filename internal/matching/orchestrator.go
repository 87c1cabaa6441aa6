// Package matching finds compatible nearby donors for a newly published
// blood request and hands them to the notification dispatcher.
package matching

import (
	"context"
	"errors"
	"time"

	"bloodlink/internal/metrics"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type DonorFinder interface {
	FindMatches(ctx context.Context, req *types.BloodRequest) ([]types.Match, error)
}

type Notifier interface {
	NotifyAll(ctx context.Context, matches []types.Match, req *types.BloodRequest) []types.NotificationOutcome
}

// Orchestrator runs matching and notification once for a freshly persisted
// request.
type Orchestrator struct {
	logger   logrus.FieldLogger
	finder   DonorFinder
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewOrchestrator(logger logrus.FieldLogger, finder DonorFinder, notifier Notifier, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		finder:   finder,
		notifier: notifier,
		metrics:  m,
	}
}

// Run matches donors for req and notifies them. The request has already been
// committed, so store and delivery failures degrade to an empty or partial
// result instead of an error. The only error returned is
// types.ErrInvalidBloodType.
func (o *Orchestrator) Run(ctx context.Context, req *types.BloodRequest) (*types.MatchResult, error) {
	started := time.Now()
	entry := o.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"blood_type": req.BloodType,
	})

	runResult := "matched"

	matches, err := o.finder.FindMatches(ctx, req)
	switch {
	case errors.Is(err, types.ErrInvalidBloodType):
		return nil, err
	case err != nil:
		entry.WithError(err).Error("donor matching failed, continuing without matches")
		matches = nil
		runResult = "store_unavailable"
	case len(matches) == 0:
		runResult = "no_matches"
	}

	result := &types.MatchResult{
		Matches: make([]types.Match, 0, len(matches)),
	}
	result.Matches = append(result.Matches, matches...)

	if len(result.Matches) > 0 {
		best := result.Matches[0]
		result.BestMatch = &best
	}

	result.Outcomes = o.notifier.NotifyAll(ctx, result.Matches, req)

	var sent, failed int
	for _, outcome := range result.Outcomes {
		if outcome.Success {
			sent++
		} else {
			failed++
		}
	}

	entry.WithFields(logrus.Fields{
		"matched":       len(result.Matches),
		"notified":      sent,
		"notify_failed": failed,
		"duration_ms":   time.Since(started).Milliseconds(),
	}).Info("matching run finished")

	if o.metrics != nil {
		o.metrics.ObserveMatchRun(runResult, len(result.Matches), time.Since(started))
		o.metrics.ObserveOutcomes(result.Outcomes)
	}

	return result, nil
}
