package repository

import (
	"context"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	FindByVendorAndUser(ctx context.Context, vendorID string, userID uint) (*model.Review, error)
	// Mutate applies fn to the stored review and saves it in one transaction.
	Mutate(ctx context.Context, id string, fn func(review *model.Review) error) (*model.Review, error)
	// Delete removes the review after fn accepts the locked row and returns
	// the row as it was when deleted. An error from fn aborts the delete.
	Delete(ctx context.Context, id string, fn func(review *model.Review) error) (*model.Review, error)
	ListByVendor(ctx context.Context, vendorID string, status model.ReviewStatus, offset, limit int) ([]model.Review, int64, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Review, error)
	ListFlagged(ctx context.Context) ([]model.Review, error)
	CountByStatus(ctx context.Context, vendorID string) (map[model.ReviewStatus]int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		logger.Error("Failed to create review in database", err, map[string]interface{}{
			"vendor_id": review.VendorID,
			"user_id":   review.UserID,
		})
		return translateError(err)
	}
	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (r *reviewRepository) FindByVendorAndUser(ctx context.Context, vendorID string, userID uint) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND user_id = ?", vendorID, userID).
		First(&review).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (r *reviewRepository) Mutate(ctx context.Context, id string, fn func(review *model.Review) error) (*model.Review, error) {
	var review model.Review

	err := runInTx(ctx, r.db, func(tx *gorm.DB) error {
		review = model.Review{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&review, "id = ?", id).Error; err != nil {
			return err
		}
		if err := fn(&review); err != nil {
			return err
		}
		return tx.Save(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string, fn func(review *model.Review) error) (*model.Review, error) {
	var review model.Review

	err := runInTx(ctx, r.db, func(tx *gorm.DB) error {
		review = model.Review{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&review, "id = ?", id).Error; err != nil {
			return err
		}
		if err := fn(&review); err != nil {
			return err
		}
		return tx.Delete(&model.Review{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListByVendor pages a vendor's reviews, newest first.
func (r *reviewRepository) ListByVendor(ctx context.Context, vendorID string, status model.ReviewStatus, offset, limit int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Review{}).Where("vendor_id = ?", vendorID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID uint) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// ListFlagged returns reported reviews, most reported first.
func (r *reviewRepository) ListFlagged(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("flagged = ?", true).
		Order("report_count DESC").
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) CountByStatus(ctx context.Context, vendorID string) (map[model.ReviewStatus]int64, error) {
	var rows []struct {
		Status model.ReviewStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Select("status, COUNT(*) AS count").
		Where("vendor_id = ?", vendorID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ReviewStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
