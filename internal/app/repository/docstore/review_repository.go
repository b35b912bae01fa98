package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

type reviewRepository struct {
	client *firestore.Client
}

func NewReviewRepository(client *firestore.Client) repository.ReviewRepository {
	return &reviewRepository{client: client}
}

func (r *reviewRepository) col() *firestore.CollectionRef {
	return r.client.Collection(reviewsCollection)
}

func (r *reviewRepository) byVendorAndUser(vendorID string, userID uint) firestore.Query {
	return r.col().Where("vendorId", "==", vendorID).Where("userId", "==", int64(userID)).Limit(1)
}

// Create enforces one review per (vendor, user) inside the transaction.
func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.byVendorAndUser(review.VendorID, review.UserID)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return repository.ErrDuplicate
		}
		return tx.Create(r.col().Doc(review.ID), toReviewDoc(review))
	}, firestore.MaxAttempts(repository.MaxTxAttempts))
	if err != nil {
		logger.Error("Failed to create review document", err, map[string]interface{}{
			"vendor_id": review.VendorID,
			"user_id":   review.UserID,
		})
		return translateError(err)
	}
	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return snapshotToReview(snap)
}

func (r *reviewRepository) FindByVendorAndUser(ctx context.Context, vendorID string, userID uint) (*model.Review, error) {
	snaps, err := r.byVendorAndUser(vendorID, userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, translateError(err)
	}
	if len(snaps) == 0 {
		return nil, repository.ErrNotFound
	}
	return snapshotToReview(snaps[0])
}

func (r *reviewRepository) Mutate(ctx context.Context, id string, fn func(review *model.Review) error) (*model.Review, error) {
	ref := r.col().Doc(id)
	var result *model.Review

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		review, err := snapshotToReview(snap)
		if err != nil {
			return err
		}
		if err := fn(review); err != nil {
			return err
		}
		review.UpdatedAt = time.Now()
		result = review
		return tx.Set(ref, toReviewDoc(review))
	}, firestore.MaxAttempts(repository.MaxTxAttempts))
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id string, fn func(review *model.Review) error) (*model.Review, error) {
	ref := r.col().Doc(id)
	var deleted *model.Review

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		review, err := snapshotToReview(snap)
		if err != nil {
			return err
		}
		if err := fn(review); err != nil {
			return err
		}
		deleted = review
		return tx.Delete(ref, firestore.Exists)
	}, firestore.MaxAttempts(repository.MaxTxAttempts))
	if err != nil {
		return nil, translateError(err)
	}
	return deleted, nil
}

func (r *reviewRepository) collect(ctx context.Context, q firestore.Query) ([]model.Review, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, translateError(err)
	}
	reviews := make([]model.Review, 0, len(snaps))
	for _, snap := range snaps {
		review, err := snapshotToReview(snap)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *review)
	}
	return reviews, nil
}

func (r *reviewRepository) ListByVendor(ctx context.Context, vendorID string, status model.ReviewStatus, offset, limit int) ([]model.Review, int64, error) {
	q := r.col().Where("vendorId", "==", vendorID)
	if status != "" {
		q = q.Where("status", "==", string(status))
	}

	all, err := q.Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, translateError(err)
	}

	reviews, err := r.collect(ctx, q.OrderBy("createdAt", firestore.Desc).Offset(offset).Limit(limit))
	if err != nil {
		return nil, 0, err
	}
	return reviews, int64(len(all)), nil
}

func (r *reviewRepository) ListByUser(ctx context.Context, userID uint) ([]model.Review, error) {
	return r.collect(ctx, r.col().Where("userId", "==", int64(userID)).OrderBy("createdAt", firestore.Desc))
}

func (r *reviewRepository) ListFlagged(ctx context.Context) ([]model.Review, error) {
	return r.collect(ctx, r.col().Where("flagged", "==", true).OrderBy("reportCount", firestore.Desc))
}

func (r *reviewRepository) CountByStatus(ctx context.Context, vendorID string) (map[model.ReviewStatus]int64, error) {
	snaps, err := r.col().Where("vendorId", "==", vendorID).Select("status").Documents(ctx).GetAll()
	if err != nil {
		return nil, translateError(err)
	}

	counts := make(map[model.ReviewStatus]int64)
	for _, snap := range snaps {
		var doc struct {
			Status model.ReviewStatus `firestore:"status"`
		}
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		counts[doc.Status]++
	}
	return counts, nil
}
