package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

var (
	ErrReviewNotFound      = errors.New("review not found")
	ErrReviewAlreadyExists = errors.New("you have already reviewed this vendor")
	ErrReviewAccessDenied  = errors.New("you do not have access to this review")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrOwnVendorReview     = errors.New("vendors cannot review their own listing")
	ErrAlreadyReported     = errors.New("you have already reported this review")
	ErrEmptyReply          = errors.New("reply text is required")
)

const (
	DefaultReviewPageSize = 20
	MaxReviewPageSize     = 100
)

type ReviewInput struct {
	Rating  int
	Comment string
}

type ReviewMutation struct {
	Rating  *int
	Comment *string
}

// ReviewService covers the review lifecycle. Every transition that changes
// the set of approved ratings for a vendor updates that vendor's aggregate.
type ReviewService interface {
	CreateReview(ctx context.Context, user *model.User, vendorID string, input ReviewInput) (*model.Review, error)
	UpdateReview(ctx context.Context, userID uint, reviewID string, input ReviewMutation) (*model.Review, error)
	DeleteReview(ctx context.Context, userID uint, role model.UserRole, reviewID string) error
	ReportReview(ctx context.Context, userID uint, reviewID string) (*model.Review, error)
	ReplyToReview(ctx context.Context, userID uint, role model.UserRole, reviewID, text string) (*model.Review, error)
	ListVendorReviews(ctx context.Context, vendorID string, page, pageSize int) ([]model.Review, int64, error)
	ListUserReviews(ctx context.Context, userID uint) ([]model.Review, error)
	ListFlaggedReviews(ctx context.Context) ([]model.Review, error)
	UpdateReviewStatus(ctx context.Context, reviewID, status string) (*model.Review, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	vendorRepo repository.VendorRepository
	ratings    RatingService
}

func NewReviewService(reviewRepo repository.ReviewRepository, vendorRepo repository.VendorRepository, ratings RatingService) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		vendorRepo: vendorRepo,
		ratings:    ratings,
	}
}

func validRating(r int) bool {
	return r >= model.MinRating && r <= model.MaxRating
}

// applyDelta runs the incremental rating update. The review write has already
// committed, so a failure here is logged and left for the recompute job.
func (s *reviewService) applyDelta(ctx context.Context, vendorID string, ratingDelta float64, countDelta int) {
	if _, err := s.ratings.ApplyRatingDelta(ctx, vendorID, ratingDelta, countDelta); err != nil {
		logger.Error("Rating delta not applied, left for recompute", err, map[string]interface{}{
			"vendor_id":    vendorID,
			"rating_delta": ratingDelta,
			"count_delta":  countDelta,
		})
	}
}

func (s *reviewService) recompute(ctx context.Context, vendorID string) {
	if _, err := s.ratings.RecomputeVendorRating(ctx, vendorID); err != nil {
		logger.Error("Rating recompute failed", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
	}
}

func (s *reviewService) findReview(ctx context.Context, reviewID string) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		logger.Error("Failed to load review", err, map[string]interface{}{
			"review_id": reviewID,
		})
		return nil, err
	}
	return review, nil
}

func reviewError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReviewNotFound
	}
	return err
}

func (s *reviewService) CreateReview(ctx context.Context, user *model.User, vendorID string, input ReviewInput) (*model.Review, error) {
	logger.Info("Creating review", map[string]interface{}{
		"vendor_id": vendorID,
		"user_id":   user.ID,
		"rating":    input.Rating,
	})

	if !validRating(input.Rating) {
		return nil, ErrInvalidRating
	}

	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	if vendor.Status != model.VendorStatusApproved {
		return nil, ErrVendorNotFound
	}
	if vendor.UserID == user.ID {
		return nil, ErrOwnVendorReview
	}

	review := &model.Review{
		ID:         uuid.NewString(),
		VendorID:   vendorID,
		UserID:     user.ID,
		UserName:   user.Name,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
		Status:     model.ReviewStatusApproved,
		ReportedBy: pq.Int64Array{},
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			logger.Warn("Duplicate review rejected", map[string]interface{}{
				"vendor_id": vendorID,
				"user_id":   user.ID,
			})
			return nil, ErrReviewAlreadyExists
		}
		return nil, err
	}

	if review.IsApproved() {
		s.applyDelta(ctx, vendorID, float64(review.Rating), 1)
	}
	return review, nil
}

// UpdateReview edits a review. Only the author may.
func (s *reviewService) UpdateReview(ctx context.Context, userID uint, reviewID string, input ReviewMutation) (*model.Review, error) {
	if input.Rating != nil && !validRating(*input.Rating) {
		return nil, ErrInvalidRating
	}

	var oldRating int
	updated, err := s.reviewRepo.Mutate(ctx, reviewID, func(review *model.Review) error {
		if review.UserID != userID {
			return ErrReviewAccessDenied
		}
		oldRating = review.Rating
		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Comment != nil {
			review.Comment = strings.TrimSpace(*input.Comment)
		}
		return nil
	})
	if err != nil {
		return nil, reviewError(err)
	}

	if updated.IsApproved() && updated.Rating != oldRating {
		s.applyDelta(ctx, updated.VendorID, float64(updated.Rating-oldRating), 0)
	}
	return updated, nil
}

// DeleteReview removes a review. Authors get an incremental update taken from
// the row as deleted, admins a full recompute since the review may not have
// been approved.
func (s *reviewService) DeleteReview(ctx context.Context, userID uint, role model.UserRole, reviewID string) error {
	var isAuthor bool
	review, err := s.reviewRepo.Delete(ctx, reviewID, func(review *model.Review) error {
		isAuthor = review.UserID == userID
		if !isAuthor && role != model.RoleAdmin {
			return ErrReviewAccessDenied
		}
		return nil
	})
	if err != nil {
		return reviewError(err)
	}

	logger.Info("Review deleted", map[string]interface{}{
		"review_id": reviewID,
		"vendor_id": review.VendorID,
		"by_admin":  !isAuthor,
	})

	if isAuthor {
		if review.IsApproved() {
			s.applyDelta(ctx, review.VendorID, -float64(review.Rating), -1)
		}
		return nil
	}
	s.recompute(ctx, review.VendorID)
	return nil
}

// ReportReview records one report per user. Reaching the threshold pulls an
// approved review back into moderation.
func (s *reviewService) ReportReview(ctx context.Context, userID uint, reviewID string) (*model.Review, error) {
	var hidden bool
	updated, err := s.reviewRepo.Mutate(ctx, reviewID, func(review *model.Review) error {
		hidden = false
		if review.HasReported(userID) {
			return ErrAlreadyReported
		}
		review.ReportedBy = append(review.ReportedBy, int64(userID))
		review.ReportCount++
		review.Flagged = true
		if review.ReportCount >= model.ReportThreshold && review.IsApproved() {
			review.Status = model.ReviewStatusPendingReview
			hidden = true
		}
		return nil
	})
	if err != nil {
		return nil, reviewError(err)
	}

	logger.Info("Review reported", map[string]interface{}{
		"review_id":    reviewID,
		"report_count": updated.ReportCount,
		"hidden":       hidden,
	})

	if hidden {
		s.recompute(ctx, updated.VendorID)
	}
	return updated, nil
}

func (s *reviewService) ReplyToReview(ctx context.Context, userID uint, role model.UserRole, reviewID, text string) (*model.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyReply
	}

	review, err := s.findReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendorRepo.FindByID(ctx, review.VendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	if !canManage(vendor, userID, role) {
		return nil, ErrVendorAccessDenied
	}

	updated, err := s.reviewRepo.Mutate(ctx, reviewID, func(r *model.Review) error {
		r.VendorReply = &model.VendorReply{
			Text:      text,
			CreatedAt: time.Now().UnixMilli(),
		}
		return nil
	})
	if err != nil {
		return nil, reviewError(err)
	}
	return updated, nil
}

// ListVendorReviews returns a page of approved reviews. page is 1-based.
func (s *reviewService) ListVendorReviews(ctx context.Context, vendorID string, page, pageSize int) ([]model.Review, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultReviewPageSize
	}
	if pageSize > MaxReviewPageSize {
		pageSize = MaxReviewPageSize
	}

	offset := (page - 1) * pageSize
	reviews, total, err := s.reviewRepo.ListByVendor(ctx, vendorID, model.ReviewStatusApproved, offset, pageSize)
	if err != nil {
		logger.Error("Failed to list vendor reviews", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
		return nil, 0, err
	}
	return reviews, total, nil
}

func (s *reviewService) ListUserReviews(ctx context.Context, userID uint) ([]model.Review, error) {
	return s.reviewRepo.ListByUser(ctx, userID)
}

func (s *reviewService) ListFlaggedReviews(ctx context.Context) ([]model.Review, error) {
	return s.reviewRepo.ListFlagged(ctx)
}

// UpdateReviewStatus is the admin moderation transition. The vendor aggregate
// is always rebuilt afterwards.
func (s *reviewService) UpdateReviewStatus(ctx context.Context, reviewID, status string) (*model.Review, error) {
	next := model.ReviewStatus(status)
	if !next.IsValid() {
		return nil, ErrInvalidStatus
	}

	updated, err := s.reviewRepo.Mutate(ctx, reviewID, func(review *model.Review) error {
		review.Status = next
		if next == model.ReviewStatusApproved {
			review.Flagged = false
		}
		return nil
	})
	if err != nil {
		return nil, reviewError(err)
	}

	logger.Info("Review status updated", map[string]interface{}{
		"review_id": reviewID,
		"status":    status,
	})
	s.recompute(ctx, updated.VendorID)
	return updated, nil
}
