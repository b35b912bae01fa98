package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/nearmi/localhunt-backend/internal/app/service"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// recomputeTimeout bounds a single full pass.
const recomputeTimeout = 30 * time.Minute

// RatingScheduler periodically rebuilds every vendor
// aggregate from its approved reviews, repairing drift left by failed
// incremental updates.
type RatingScheduler struct {
	cron    *cron.Cron
	ratings service.RatingService
	spec    string

	mu      sync.Mutex
	running bool
}

// NewRatingScheduler builds the job. spec is a standard five-field cron
// expression.
func NewRatingScheduler(ratings service.RatingService, spec string) *RatingScheduler {
	return &RatingScheduler{
		cron:    cron.New(),
		ratings: ratings,
		spec:    spec,
	}
}

// Start registers the job and starts the cron runner.
func (s *RatingScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.RunOnce)
	if err != nil {
		logger.Error("Failed to add cron job for rating recompute", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Rating scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce performs one recompute pass. Overlapping runs are skipped.
func (s *RatingScheduler) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn("Rating recompute still running, skipping this tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()

	logger.Info("Starting scheduled rating recompute")
	report, err := s.ratings.RecomputeAll(ctx)
	if err != nil {
		logger.Error("Scheduled rating recompute failed", err)
		return
	}
	logger.Info("Scheduled rating recompute finished", map[string]interface{}{
		"vendors":   report.Vendors,
		"corrected": report.Corrected,
		"failed":    report.Failed,
	})
}

// Stop halts the cron runner. Waits for a running pass to finish.
func (s *RatingScheduler) Stop() {
	logger.Info("Stopping rating scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Rating scheduler stopped")
}
