package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRatings struct {
	calls   int32
	release chan struct{}
}

func (c *countingRatings) ApplyRatingDelta(context.Context, string, float64, int) (model.RatingSummary, error) {
	return model.RatingSummary{}, nil
}

func (c *countingRatings) RecomputeVendorRating(context.Context, string) (model.RatingSummary, error) {
	return model.RatingSummary{}, nil
}

func (c *countingRatings) RecomputeAll(context.Context) (*service.RecomputeReport, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.release != nil {
		<-c.release
	}
	return &service.RecomputeReport{}, nil
}

func TestRatingScheduler_RunOnce(t *testing.T) {
	ratings := &countingRatings{}
	s := NewRatingScheduler(ratings, "30 3 * * *")

	s.RunOnce()
	s.RunOnce()

	assert.EqualValues(t, 2, atomic.LoadInt32(&ratings.calls))
}

func TestRatingScheduler_SkipsOverlappingRun(t *testing.T) {
	ratings := &countingRatings{release: make(chan struct{})}
	s := NewRatingScheduler(ratings, "30 3 * * *")

	done := make(chan struct{})
	go func() {
		s.RunOnce()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ratings.calls) == 1
	}, time.Second, 5*time.Millisecond)

	// second tick while the first is still running
	s.RunOnce()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ratings.calls))

	close(ratings.release)
	<-done
}

func TestRatingScheduler_InvalidSpec(t *testing.T) {
	s := NewRatingScheduler(&countingRatings{}, "not a cron spec")
	assert.Error(t, s.Start())
}

func TestRatingScheduler_StartStop(t *testing.T) {
	s := NewRatingScheduler(&countingRatings{}, "@every 1h")
	require.NoError(t, s.Start())
	s.Stop()
}
