package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

var vendorSortFields = map[repository.VendorSortField]string{
	repository.SortByAverageRating:     "averageRating",
	repository.SortByTotalReviews:      "totalReviews",
	repository.SortByProfileViews:      "profileViews",
	repository.SortBySearchImpressions: "searchImpressions",
	repository.SortByCreatedAt:         "createdAt",
	repository.SortByBusinessName:      "businessName",
}

// firestore caps writes per commit
const maxWritesPerCommit = 500

type vendorRepository struct {
	client *firestore.Client
}

func NewVendorRepository(client *firestore.Client) repository.VendorRepository {
	return &vendorRepository{client: client}
}

func (r *vendorRepository) col() *firestore.CollectionRef {
	return r.client.Collection(vendorsCollection)
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	if _, err := r.col().Doc(vendor.ID).Create(ctx, toVendorDoc(vendor)); err != nil {
		logger.Error("Failed to create vendor document", err, map[string]interface{}{
			"vendor_id": vendor.ID,
		})
		return translateError(err)
	}
	return nil
}

// profileUpdates lists the fields an owner update rewrites.
func profileUpdates(v *model.Vendor) []firestore.Update {
	return []firestore.Update{
		{Path: "businessName", Value: v.BusinessName},
		{Path: "description", Value: v.Description},
		{Path: "category", Value: v.Category},
		{Path: "services", Value: v.Services},
		{Path: "operatingHours", Value: v.OperatingHours},
		{Path: "awards", Value: v.Awards},
		{Path: "phoneNumber", Value: v.PhoneNumber},
		{Path: "address", Value: v.Address},
		{Path: "location", Value: v.Location},
		{Path: "profileImageUrl", Value: v.ProfileImageURL},
		{Path: "additionalImages", Value: v.AdditionalImages},
		{Path: "isOpen", Value: v.IsOpen},
		{Path: "_searchKeywords", Value: v.SearchKeywords},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	if _, err := r.col().Doc(vendor.ID).Update(ctx, profileUpdates(vendor)); err != nil {
		logger.Error("Failed to update vendor document", err, map[string]interface{}{
			"vendor_id": vendor.ID,
		})
		return translateError(err)
	}
	return nil
}

func (r *vendorRepository) FindByID(ctx context.Context, id string) (*model.Vendor, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return snapshotToVendor(snap)
}

func (r *vendorRepository) collect(ctx context.Context, q firestore.Query) ([]model.Vendor, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, translateError(err)
	}
	vendors := make([]model.Vendor, 0, len(snaps))
	for _, snap := range snaps {
		v, err := snapshotToVendor(snap)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *v)
	}
	return vendors, nil
}

func (r *vendorRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Vendor, error) {
	return r.collect(ctx, r.col().Where("userId", "==", int64(userID)).OrderBy("createdAt", firestore.Desc))
}

// buildVendorQuery composes the filter onto the collection. A geohash
// range and array-contains-any are never combined by callers.
func buildVendorQuery(col *firestore.CollectionRef, filter repository.VendorFilter) firestore.Query {
	q := col.Where("status", "==", string(model.VendorStatusApproved))

	if filter.Geo != nil {
		q = q.Where("location.geohash", ">=", filter.Geo.Start).
			Where("location.geohash", "<", filter.Geo.End)
	}
	if len(filter.Keywords) > 0 {
		q = q.Where("_searchKeywords", "array-contains-any", filter.Keywords)
	}
	if filter.Category != "" {
		q = q.Where("category", "==", filter.Category)
	}
	if filter.Colony != "" {
		q = q.Where("address.colony", "==", filter.Colony)
	}
	if filter.IsOpen != nil {
		q = q.Where("isOpen", "==", *filter.IsOpen)
	}

	field, ok := vendorSortFields[filter.SortBy]
	if !ok {
		field = vendorSortFields[repository.SortByAverageRating]
	}
	direction := firestore.Asc
	if filter.SortDesc {
		direction = firestore.Desc
	}
	q = q.OrderBy(field, direction)

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q
}

func (r *vendorRepository) FindApproved(ctx context.Context, filter repository.VendorFilter) ([]model.Vendor, error) {
	vendors, err := r.collect(ctx, buildVendorQuery(r.col(), filter))
	if err != nil {
		logger.Error("Failed to query vendor documents", err)
		return nil, err
	}
	return vendors, nil
}

func (r *vendorRepository) ListIDs(ctx context.Context) ([]string, error) {
	refs, err := r.col().DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, translateError(err)
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func (r *vendorRepository) UpdateStatus(ctx context.Context, id string, status model.VendorStatus) error {
	return r.updateField(ctx, id, "status", string(status))
}

func (r *vendorRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.updateField(ctx, id, "isVerified", verified)
}

func (r *vendorRepository) updateField(ctx context.Context, id, path string, value interface{}) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: path, Value: value},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return translateError(err)
}

func (r *vendorRepository) IncrementCounter(ctx context.Context, ids []string, counter model.VendorCounter, delta int64) error {
	if len(ids) == 0 {
		return nil
	}
	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bw.Update(r.col().Doc(id), []firestore.Update{
			{Path: counter.FirestoreField(), Value: firestore.Increment(delta)},
		})
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (r *vendorRepository) UpdateRating(ctx context.Context, id string, fn func(current model.RatingSummary) model.RatingSummary) (model.RatingSummary, error) {
	return r.writeRating(ctx, id, func(_ *firestore.Transaction, current model.RatingSummary) (model.RatingSummary, error) {
		return fn(current), nil
	})
}

// RebuildRating queries the approved reviews through the transaction, so a
// review written after the read aborts and retries the rebuild.
func (r *vendorRepository) RebuildRating(ctx context.Context, id string, fn func(current model.RatingSummary, approved []int) model.RatingSummary) (model.RatingSummary, error) {
	approvedQuery := r.client.Collection(reviewsCollection).
		Where("vendorId", "==", id).
		Where("status", "==", string(model.ReviewStatusApproved))

	return r.writeRating(ctx, id, func(tx *firestore.Transaction, current model.RatingSummary) (model.RatingSummary, error) {
		snaps, err := tx.Documents(approvedQuery).GetAll()
		if err != nil {
			return model.RatingSummary{}, err
		}
		approved, err := ratingsOf(snaps)
		if err != nil {
			return model.RatingSummary{}, err
		}
		return fn(current, approved), nil
	})
}

func (r *vendorRepository) writeRating(ctx context.Context, id string, compute func(tx *firestore.Transaction, current model.RatingSummary) (model.RatingSummary, error)) (model.RatingSummary, error) {
	ref := r.col().Doc(id)
	var next model.RatingSummary

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		vendor, err := snapshotToVendor(snap)
		if err != nil {
			return err
		}

		next, err = compute(tx, vendor.Rating())
		if err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "averageRating", Value: next.AverageRating},
			{Path: "totalReviews", Value: next.TotalReviews},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	}, firestore.MaxAttempts(repository.MaxTxAttempts))
	if err != nil {
		return model.RatingSummary{}, translateError(err)
	}
	return next, nil
}

func (r *vendorRepository) BulkCreate(ctx context.Context, vendors []*model.Vendor) error {
	for start := 0; start < len(vendors); start += maxWritesPerCommit {
		end := start + maxWritesPerCommit
		if end > len(vendors) {
			end = len(vendors)
		}
		chunk := vendors[start:end]

		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, v := range chunk {
				if err := tx.Create(r.col().Doc(v.ID), toVendorDoc(v)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logger.Error("Vendor import chunk rolled back", err, map[string]interface{}{
				"offset": start,
				"size":   len(chunk),
			})
			return translateError(err)
		}
	}
	return nil
}
