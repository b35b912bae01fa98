package repository

import (
	"context"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BulkBatchSize is the number of rows written per insert statement on import.
const BulkBatchSize = 500

type VendorSortField string

const (
	SortByAverageRating     VendorSortField = "averageRating"
	SortByTotalReviews      VendorSortField = "totalReviews"
	SortByProfileViews      VendorSortField = "profileViews"
	SortBySearchImpressions VendorSortField = "searchImpressions"
	SortByCreatedAt         VendorSortField = "createdAt"
	SortByBusinessName      VendorSortField = "businessName"
)

var vendorSortColumns = map[VendorSortField]string{
	SortByAverageRating:     "average_rating",
	SortByTotalReviews:      "total_reviews",
	SortByProfileViews:      "profile_views",
	SortBySearchImpressions: "search_impressions",
	SortByCreatedAt:         "created_at",
	SortByBusinessName:      "business_name",
}

func (f VendorSortField) IsValid() bool {
	_, ok := vendorSortColumns[f]
	return ok
}

// GeohashRange selects stored geohashes g with Start <= g < End under byte
// ordering. Start is the cell prefix itself.
type GeohashRange struct {
	Start string
	End   string
}

// VendorFilter is applied on top of the implicit status = approved.
// Every populated field is ANDed; callers resolve precedence between the
// geo and keyword paths before building it.
type VendorFilter struct {
	Geo      *GeohashRange
	Keywords []string // matches vendors holding at least one
	Category string
	Colony   string
	IsOpen   *bool
	SortBy   VendorSortField
	SortDesc bool
	Limit    int
}

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	Update(ctx context.Context, vendor *model.Vendor) error
	FindByID(ctx context.Context, id string) (*model.Vendor, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.Vendor, error)
	FindApproved(ctx context.Context, filter VendorFilter) ([]model.Vendor, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status model.VendorStatus) error
	SetVerified(ctx context.Context, id string, verified bool) error
	IncrementCounter(ctx context.Context, ids []string, counter model.VendorCounter, delta int64) error
	// UpdateRating reads the current aggregate and writes fn's result in one
	// transaction. fn may run more than once when the transaction is retried.
	UpdateRating(ctx context.Context, id string, fn func(current model.RatingSummary) model.RatingSummary) (model.RatingSummary, error)
	// RebuildRating is UpdateRating with the vendor's approved ratings loaded
	// inside the same transaction, after the vendor row is locked.
	RebuildRating(ctx context.Context, id string, fn func(current model.RatingSummary, approved []int) model.RatingSummary) (model.RatingSummary, error)
	BulkCreate(ctx context.Context, vendors []*model.Vendor) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

// vendorProfileColumns are the columns an owner update may touch. Status,
// verification and every aggregate have dedicated writers.
var vendorProfileColumns = []string{
	"business_name", "description", "category", "services", "operating_hours", "awards", "phone_number",
	"address_street", "address_colony", "address_city", "address_state", "address_zip_code", "address_country",
	"location_latitude", "location_longitude", "location_formatted_address", "location_locality",
	"location_sublocality", "location_geohash",
	"profile_image_url", "additional_images", "is_open", "search_keywords", "updated_at",
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	logger.Debug("Creating vendor in database", map[string]interface{}{
		"vendor_id": vendor.ID,
		"name":      vendor.BusinessName,
		"user_id":   vendor.UserID,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(vendor).Error; err != nil {
			return err
		}
		return replaceKeywords(tx, vendor.ID, vendor.SearchKeywords)
	})
	if err != nil {
		logger.Error("Failed to create vendor in database", err, map[string]interface{}{
			"vendor_id": vendor.ID,
			"user_id":   vendor.UserID,
		})
		return translateError(err)
	}

	logger.Debug("Vendor created in database", map[string]interface{}{
		"vendor_id": vendor.ID,
		"keywords":  len(vendor.SearchKeywords),
	})
	return nil
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	logger.Debug("Updating vendor in database", map[string]interface{}{
		"vendor_id": vendor.ID,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Vendor{ID: vendor.ID}).Select(vendorProfileColumns).Updates(vendor)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return replaceKeywords(tx, vendor.ID, vendor.SearchKeywords)
	})
	if err != nil {
		logger.Error("Failed to update vendor in database", err, map[string]interface{}{
			"vendor_id": vendor.ID,
		})
		return translateError(err)
	}

	logger.Debug("Vendor updated in database", map[string]interface{}{
		"vendor_id": vendor.ID,
		"keywords":  len(vendor.SearchKeywords),
	})
	return nil
}

// replaceKeywords overwrites the inverted index rows of one vendor.
func replaceKeywords(tx *gorm.DB, vendorID string, keywords []string) error {
	if err := tx.Where("vendor_id = ?", vendorID).Delete(&model.VendorKeyword{}).Error; err != nil {
		return err
	}
	if len(keywords) == 0 {
		return nil
	}
	rows := make([]model.VendorKeyword, 0, len(keywords))
	for _, kw := range keywords {
		rows = append(rows, model.VendorKeyword{VendorID: vendorID, Keyword: kw})
	}
	return tx.CreateInBatches(rows, BulkBatchSize).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, id string) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find vendor by ID", err, map[string]interface{}{
				"vendor_id": id,
			})
		}
		return nil, translateError(err)
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Vendor, error) {
	var vendors []model.Vendor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&vendors).Error; err != nil {
		logger.Error("Failed to find vendors by user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, translateError(err)
	}
	return vendors, nil
}

func (r *vendorRepository) FindApproved(ctx context.Context, filter VendorFilter) ([]model.Vendor, error) {
	logger.Debug("Finding approved vendors", map[string]interface{}{
		"geo":      filter.Geo != nil,
		"keywords": filter.Keywords,
		"category": filter.Category,
		"colony":   filter.Colony,
		"sort_by":  filter.SortBy,
	})

	var vendors []model.Vendor
	if err := approvedQuery(r.db.WithContext(ctx), filter).Find(&vendors).Error; err != nil {
		logger.Error("Failed to query vendors", err)
		return nil, err
	}

	logger.Debug("Approved vendors found", map[string]interface{}{
		"count": len(vendors),
	})
	return vendors, nil
}

// approvedQuery builds the vendor search. The geohash cell is matched with a
// prefix LIKE: range comparisons follow the column collation on Postgres,
// where "~" does not sort after the base32 alphabet.
func approvedQuery(db *gorm.DB, filter VendorFilter) *gorm.DB {
	query := db.Model(&model.Vendor{}).
		Where("status = ?", model.VendorStatusApproved)

	if filter.Geo != nil {
		query = query.Where("location_geohash LIKE ?", filter.Geo.Start+"%")
	}
	if len(filter.Keywords) > 0 {
		query = query.Where(
			"EXISTS (SELECT 1 FROM vendor_keywords vk WHERE vk.vendor_id = vendors.id AND vk.keyword IN ?)",
			filter.Keywords,
		)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Colony != "" {
		query = query.Where("address_colony = ?", filter.Colony)
	}
	if filter.IsOpen != nil {
		query = query.Where("is_open = ?", *filter.IsOpen)
	}

	column, ok := vendorSortColumns[filter.SortBy]
	if !ok {
		column = vendorSortColumns[SortByAverageRating]
	}
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.SortDesc})

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return query
}

func (r *vendorRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Vendor{}).Order("id").Pluck("id", &ids).Error; err != nil {
		logger.Error("Failed to list vendor IDs", err)
		return nil, err
	}
	return ids, nil
}

func (r *vendorRepository) UpdateStatus(ctx context.Context, id string, status model.VendorStatus) error {
	return r.updateColumn(ctx, id, "status", status)
}

func (r *vendorRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.updateColumn(ctx, id, "is_verified", verified)
}

func (r *vendorRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		logger.Error("Failed to update vendor column", result.Error, map[string]interface{}{
			"vendor_id": id,
			"column":    column,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *vendorRepository) IncrementCounter(ctx context.Context, ids []string, counter model.VendorCounter, delta int64) error {
	if len(ids) == 0 {
		return nil
	}
	column := string(counter)
	err := r.db.WithContext(ctx).Model(&model.Vendor{}).
		Where("id IN ?", ids).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	if err != nil {
		logger.Error("Failed to increment vendor counter", err, map[string]interface{}{
			"counter": column,
			"vendors": len(ids),
		})
	}
	return err
}

func (r *vendorRepository) UpdateRating(ctx context.Context, id string, fn func(current model.RatingSummary) model.RatingSummary) (model.RatingSummary, error) {
	return r.writeRating(ctx, id, func(_ *gorm.DB, current model.RatingSummary) (model.RatingSummary, error) {
		return fn(current), nil
	})
}

func (r *vendorRepository) RebuildRating(ctx context.Context, id string, fn func(current model.RatingSummary, approved []int) model.RatingSummary) (model.RatingSummary, error) {
	return r.writeRating(ctx, id, func(tx *gorm.DB, current model.RatingSummary) (model.RatingSummary, error) {
		var approved []int
		err := tx.Model(&model.Review{}).
			Where("vendor_id = ? AND status = ?", id, model.ReviewStatusApproved).
			Pluck("rating", &approved).Error
		if err != nil {
			return model.RatingSummary{}, err
		}
		return fn(current, approved), nil
	})
}

// writeRating locks the vendor row, computes the next aggregate and stores it
// in one transaction.
func (r *vendorRepository) writeRating(ctx context.Context, id string, compute func(tx *gorm.DB, current model.RatingSummary) (model.RatingSummary, error)) (model.RatingSummary, error) {
	var next model.RatingSummary

	err := runInTx(ctx, r.db, func(tx *gorm.DB) error {
		var vendor model.Vendor
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "average_rating", "total_reviews").
			First(&vendor, "id = ?", id).Error
		if err != nil {
			return err
		}

		next, err = compute(tx, vendor.Rating())
		if err != nil {
			return err
		}
		return tx.Model(&model.Vendor{}).Where("id = ?", id).Updates(map[string]interface{}{
			"average_rating": next.AverageRating,
			"total_reviews":  next.TotalReviews,
		}).Error
	})
	if err != nil {
		if err != ErrNotFound {
			logger.Error("Failed to update vendor rating", err, map[string]interface{}{
				"vendor_id": id,
			})
		}
		return model.RatingSummary{}, err
	}
	return next, nil
}

func (r *vendorRepository) BulkCreate(ctx context.Context, vendors []*model.Vendor) error {
	if len(vendors) == 0 {
		return nil
	}
	logger.Info("Bulk inserting vendors", map[string]interface{}{
		"count": len(vendors),
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(vendors, BulkBatchSize).Error; err != nil {
			return err
		}
		var rows []model.VendorKeyword
		for _, v := range vendors {
			for _, kw := range v.SearchKeywords {
				rows = append(rows, model.VendorKeyword{VendorID: v.ID, Keyword: kw})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, BulkBatchSize).Error
	})
	if err != nil {
		logger.Error("Bulk vendor insert rolled back", err, map[string]interface{}{
			"count": len(vendors),
		})
		return translateError(err)
	}
	return nil
}
