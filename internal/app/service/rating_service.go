package service

import (
	"context"
	"errors"
	"math"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/metrics"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

var (
	ErrRatingConflict     = errors.New("rating update conflicted with concurrent writers, please retry")
	ErrRatingUpdateFailed = errors.New("failed to update vendor rating")
)

const (
	ratingModeIncremental = "incremental"
	ratingModeRecompute   = "recompute"
)

// RecomputeReport summarises a full recompute pass over every vendor.
type RecomputeReport struct {
	Vendors   int `json:"vendors"`
	Corrected int `json:"corrected"`
	Failed    int `json:"failed"`
}

// RatingService maintains averageRating/totalReviews on vendors.
type RatingService interface {
	// ApplyRatingDelta adjusts the aggregate in O(1) inside a transaction.
	ApplyRatingDelta(ctx context.Context, vendorID string, ratingDelta float64, reviewCountDelta int) (model.RatingSummary, error)
	// RecomputeVendorRating rebuilds the aggregate from every approved review.
	RecomputeVendorRating(ctx context.Context, vendorID string) (model.RatingSummary, error)
	RecomputeAll(ctx context.Context) (*RecomputeReport, error)
}

type ratingService struct {
	vendorRepo repository.VendorRepository
}

func NewRatingService(vendorRepo repository.VendorRepository) RatingService {
	return &ratingService{vendorRepo: vendorRepo}
}

// round2 rounds to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// NextRating applies a (ratingDelta, countDelta) pair to the current
// aggregate. The running total is snapped to an integer since individual
// ratings are integral, which keeps repeated edits from accumulating the
// rounding error of the stored average.
func NextRating(current model.RatingSummary, ratingDelta float64, countDelta int) model.RatingSummary {
	currentTotal := 0.0
	if current.TotalReviews > 0 {
		currentTotal = math.Round(current.AverageRating * float64(current.TotalReviews))
	}

	newCount := current.TotalReviews + countDelta
	if newCount <= 0 {
		return model.RatingSummary{}
	}

	average := round2((currentTotal + ratingDelta) / float64(newCount))
	if math.IsNaN(average) || math.IsInf(average, 0) || average < 0 {
		average = 0
	}
	return model.RatingSummary{AverageRating: average, TotalReviews: newCount}
}

// AggregateRatings computes the aggregate of a complete set of approved ratings.
func AggregateRatings(ratings []int) model.RatingSummary {
	if len(ratings) == 0 {
		return model.RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return model.RatingSummary{
		AverageRating: round2(float64(sum) / float64(len(ratings))),
		TotalReviews:  len(ratings),
	}
}

func (s *ratingService) ApplyRatingDelta(ctx context.Context, vendorID string, ratingDelta float64, reviewCountDelta int) (model.RatingSummary, error) {
	logger.Debug("Applying rating delta", map[string]interface{}{
		"vendor_id":    vendorID,
		"rating_delta": ratingDelta,
		"count_delta":  reviewCountDelta,
	})

	summary, err := s.vendorRepo.UpdateRating(ctx, vendorID, func(current model.RatingSummary) model.RatingSummary {
		return NextRating(current, ratingDelta, reviewCountDelta)
	})
	metrics.ObserveRatingUpdate(ratingModeIncremental, err)
	if err != nil {
		return model.RatingSummary{}, s.ratingError(err, vendorID, ratingModeIncremental)
	}

	logger.Info("Vendor rating updated", map[string]interface{}{
		"vendor_id":      vendorID,
		"average_rating": summary.AverageRating,
		"total_reviews":  summary.TotalReviews,
	})
	return summary, nil
}

func (s *ratingService) RecomputeVendorRating(ctx context.Context, vendorID string) (model.RatingSummary, error) {
	_, next, err := s.recompute(ctx, vendorID)
	return next, err
}

// recompute rebuilds the aggregate with the approved ratings read under the
// vendor lock, so deltas serialized behind it apply on top of the result.
func (s *ratingService) recompute(ctx context.Context, vendorID string) (model.RatingSummary, model.RatingSummary, error) {
	var previous model.RatingSummary
	next, err := s.vendorRepo.RebuildRating(ctx, vendorID, func(current model.RatingSummary, approved []int) model.RatingSummary {
		previous = current
		return AggregateRatings(approved)
	})
	metrics.ObserveRatingUpdate(ratingModeRecompute, err)
	if err != nil {
		return model.RatingSummary{}, model.RatingSummary{}, s.ratingError(err, vendorID, ratingModeRecompute)
	}

	logger.Debug("Vendor rating recomputed", map[string]interface{}{
		"vendor_id":      vendorID,
		"average_rating": next.AverageRating,
		"total_reviews":  next.TotalReviews,
	})
	return previous, next, nil
}

func (s *ratingService) RecomputeAll(ctx context.Context) (*RecomputeReport, error) {
	ids, err := s.vendorRepo.ListIDs(ctx)
	if err != nil {
		logger.Error("Failed to list vendors for rating recompute", err)
		return nil, ErrRatingUpdateFailed
	}

	report := &RecomputeReport{Vendors: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		previous, next, err := s.recompute(ctx, id)
		if err != nil {
			report.Failed++
			continue
		}
		if ratingDrifted(previous, next) {
			report.Corrected++
			metrics.RatingDriftCorrectedTotal.Inc()
			logger.Warn("Rating drift corrected", map[string]interface{}{
				"vendor_id":        id,
				"stored_average":   previous.AverageRating,
				"stored_total":     previous.TotalReviews,
				"computed_average": next.AverageRating,
				"computed_total":   next.TotalReviews,
			})
		}
	}

	logger.Info("Rating recompute finished", map[string]interface{}{
		"vendors":   report.Vendors,
		"corrected": report.Corrected,
		"failed":    report.Failed,
	})
	return report, nil
}

func ratingDrifted(stored, computed model.RatingSummary) bool {
	return stored.TotalReviews != computed.TotalReviews ||
		math.Round(stored.AverageRating*100) != math.Round(computed.AverageRating*100)
}

// ratingError logs the store error and returns a domain error in its place.
func (s *ratingService) ratingError(err error, vendorID, mode string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		logger.Warn("Rating update on missing vendor", map[string]interface{}{
			"vendor_id": vendorID,
			"mode":      mode,
		})
		return ErrVendorNotFound
	case errors.Is(err, repository.ErrConflict):
		logger.Error("Rating update retries exhausted", err, map[string]interface{}{
			"vendor_id": vendorID,
			"mode":      mode,
		})
		return ErrRatingConflict
	default:
		logger.Error("Rating update failed", err, map[string]interface{}{
			"vendor_id": vendorID,
			"mode":      mode,
		})
		return ErrRatingUpdateFailed
	}
}
