package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/repository"
	"github.com/nearmi/localhunt-backend/internal/metrics"
	"github.com/nearmi/localhunt-backend/internal/search"
	"github.com/nearmi/localhunt-backend/internal/storage"
	"github.com/nearmi/localhunt-backend/pkg/logger"
	"github.com/nearmi/localhunt-backend/pkg/util"
)

var (
	ErrVendorNotFound      = errors.New("vendor not found")
	ErrVendorAccessDenied  = errors.New("you do not have access to this vendor")
	ErrVendorQueryFailed   = errors.New("failed to retrieve vendors")
	ErrInvalidVendorInput  = errors.New("business name and category are required")
	ErrInvalidStatus       = errors.New("invalid status value")
	ErrInvalidSortField    = errors.New("invalid sort field")
	ErrInvalidSortOrder    = errors.New("sort order must be asc or desc")
	ErrInvalidCoordinates  = errors.New("latitude and longitude are out of range")
	ErrTooManyImages       = errors.New("too many additional images")
	ErrVendorUpdateFailed  = errors.New("failed to save vendor")
	ErrImageUploadFailed   = errors.New("failed to upload image")
)

const (
	// profileViewWindow is how long a repeat view by the same viewer is ignored.
	profileViewWindow = time.Hour
	geocodeTimeout    = 5 * time.Second

	queryPathGeo     = "geo"
	queryPathKeyword = "keyword"
	queryPathPlain   = "plain"
)

// ImageUploader stores a local file and returns its public URL.
type ImageUploader interface {
	UploadFile(ctx context.Context, localPath, folder string) (string, error)
}

// ViewDeduper reports whether a profile view is the viewer's first in window.
type ViewDeduper interface {
	FirstView(ctx context.Context, vendorID, viewer string, window time.Duration) (bool, error)
}

// VendorInput is the full descriptive record supplied on registration or import.
type VendorInput struct {
	BusinessName   string
	Description    string
	Category       string
	Services       model.ServiceList
	OperatingHours model.OperatingHours
	Awards         []string
	PhoneNumber    string
	Address        model.Address
	Latitude       *float64
	Longitude      *float64
	IsOpen         *bool
}

type AddressMutation struct {
	Street  *string
	Colony  *string
	City    *string
	State   *string
	ZipCode *string
	Country *string
}

// VendorMutation is a partial update; nil fields keep their stored value.
type VendorMutation struct {
	BusinessName   *string
	Description    *string
	Category       *string
	Services       *model.ServiceList
	OperatingHours *model.OperatingHours
	Awards         *[]string
	PhoneNumber    *string
	Address        *AddressMutation
	Latitude       *float64
	Longitude      *float64
	IsOpen         *bool
}

// VendorQueryOptions are the caller-facing search parameters.
type VendorQueryOptions struct {
	Lat       *float64
	Lon       *float64
	Search    string
	Category  string
	Colony    string
	IsOpen    *bool
	SortBy    string
	SortOrder string
	Limit     int
}

// Viewer identifies who is reading a vendor profile.
type Viewer struct {
	UserID uint
	Role   model.UserRole
	Key    string // stable per-viewer key for view dedupe (user id or client ip)
}

type VendorStats struct {
	VendorID          string                        `json:"vendorId"`
	ProfileViews      int64                         `json:"profileViews"`
	SearchImpressions int64                         `json:"searchImpressions"`
	AverageRating     float64                       `json:"averageRating"`
	TotalReviews      int                           `json:"totalReviews"`
	ReviewsByStatus   map[model.ReviewStatus]int64  `json:"reviewsByStatus"`
}

// VendorImageFiles are temp files written by the upload handler. They are
// removed once the update finishes, whatever the outcome.
type VendorImageFiles struct {
	ProfilePath     string
	AdditionalPaths []string
}

type VendorService interface {
	RegisterVendor(ctx context.Context, userID uint, role model.UserRole, input VendorInput) (*model.Vendor, error)
	UpdateVendor(ctx context.Context, userID uint, role model.UserRole, vendorID string, input VendorMutation) (*model.Vendor, error)
	GetVendor(ctx context.Context, vendorID string, viewer Viewer) (*model.Vendor, error)
	QueryVendors(ctx context.Context, opts VendorQueryOptions) ([]model.Vendor, error)
	ListMyVendors(ctx context.Context, userID uint) ([]model.Vendor, error)
	GetVendorStats(ctx context.Context, userID uint, role model.UserRole, vendorID string) (*VendorStats, error)
	UpdateVendorImages(ctx context.Context, userID uint, role model.UserRole, vendorID string, files VendorImageFiles) (*model.Vendor, error)
	BulkImport(ctx context.Context, ownerID uint, status model.VendorStatus, inputs []VendorInput) (int, error)
	UpdateVendorStatus(ctx context.Context, vendorID, status string) error
	SetVendorVerified(ctx context.Context, vendorID string, verified bool) error
}

type vendorService struct {
	vendorRepo repository.VendorRepository
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
	geocoder   util.Geocoder
	uploader   ImageUploader
	views      ViewDeduper
	searchCfg  config.SearchConfig
}

// NewVendorService wires the vendor use cases. geocoder, uploader and views
// may be nil when the backing service is not configured.
func NewVendorService(
	vendorRepo repository.VendorRepository,
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	geocoder util.Geocoder,
	uploader ImageUploader,
	views ViewDeduper,
	searchCfg config.SearchConfig,
) VendorService {
	return &vendorService{
		vendorRepo: vendorRepo,
		reviewRepo: reviewRepo,
		userRepo:   userRepo,
		geocoder:   geocoder,
		uploader:   uploader,
		views:      views,
		searchCfg:  searchCfg,
	}
}

// keywordSource projects the contributing fields of a vendor.
func keywordSource(v *model.Vendor) search.KeywordSource {
	src := search.KeywordSource{
		BusinessName: v.BusinessName,
		Category:     v.Category,
		Description:  v.Description,
		City:         v.Address.City,
		Colony:       v.Address.Colony,
	}
	for _, svc := range v.Services {
		src.Services = append(src.Services, search.ServiceText{Name: svc.Name, Description: svc.Description})
	}
	return src
}

// reindex regenerates every derived field from the vendor's current values.
func reindex(v *model.Vendor) {
	v.SearchKeywords = search.GenerateSearchKeywords(keywordSource(v))
	if v.Location.Latitude != 0 || v.Location.Longitude != 0 {
		v.Location.Geohash = util.EncodeGeohash(v.Location.Latitude, v.Location.Longitude, util.StoredGeohashPrecision)
	} else {
		v.Location.Geohash = ""
	}
}

func canManage(v *model.Vendor, userID uint, role model.UserRole) bool {
	return role == model.RoleAdmin || v.UserID == userID
}

func (s *vendorService) findVendor(ctx context.Context, vendorID string) (*model.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Vendor not found", map[string]interface{}{
				"vendor_id": vendorID,
			})
			return nil, ErrVendorNotFound
		}
		logger.Error("Failed to load vendor", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
		return nil, err
	}
	return vendor, nil
}

// applyReverseGeocode fills the reverse-geocoded location fields. Failures
// leave them empty.
func (s *vendorService) applyReverseGeocode(ctx context.Context, v *model.Vendor) {
	if s.geocoder == nil || v.Location.Geohash == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	result, err := s.geocoder.ReverseGeocode(ctx, v.Location.Latitude, v.Location.Longitude)
	if err != nil {
		logger.Warn("Reverse geocoding failed", map[string]interface{}{
			"vendor_id": v.ID,
			"error":     err.Error(),
		})
		return
	}
	v.Location.FormattedAddress = result.FormattedAddress
	v.Location.Locality = result.Locality
	v.Location.Sublocality = result.Sublocality
}

func vendorFromInput(input VendorInput) (*model.Vendor, error) {
	if strings.TrimSpace(input.BusinessName) == "" || strings.TrimSpace(input.Category) == "" {
		return nil, ErrInvalidVendorInput
	}

	vendor := &model.Vendor{
		ID:             uuid.NewString(),
		BusinessName:   strings.TrimSpace(input.BusinessName),
		Description:    input.Description,
		Category:       strings.TrimSpace(input.Category),
		Services:       input.Services,
		OperatingHours: input.OperatingHours,
		Awards:         input.Awards,
		PhoneNumber:    input.PhoneNumber,
		Address:        input.Address,
		Status:         model.VendorStatusPending,
		IsOpen:         true,
	}
	if input.IsOpen != nil {
		vendor.IsOpen = *input.IsOpen
	}
	if input.Latitude != nil && input.Longitude != nil {
		if !util.ValidCoordinates(*input.Latitude, *input.Longitude) {
			return nil, ErrInvalidCoordinates
		}
		vendor.Location.Latitude = *input.Latitude
		vendor.Location.Longitude = *input.Longitude
	}
	reindex(vendor)
	return vendor, nil
}

func (s *vendorService) RegisterVendor(ctx context.Context, userID uint, role model.UserRole, input VendorInput) (*model.Vendor, error) {
	logger.Info("Registering vendor", map[string]interface{}{
		"user_id":  userID,
		"name":     input.BusinessName,
		"category": input.Category,
	})

	vendor, err := vendorFromInput(input)
	if err != nil {
		return nil, err
	}
	vendor.UserID = userID
	s.applyReverseGeocode(ctx, vendor)

	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		logger.Error("Failed to register vendor", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrVendorUpdateFailed
	}

	if role == model.RoleUser {
		if err := s.userRepo.UpdateRole(ctx, userID, model.RoleVendor); err != nil {
			logger.Warn("Failed to promote user to vendor role", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	logger.Info("Vendor registered", map[string]interface{}{
		"vendor_id": vendor.ID,
		"user_id":   userID,
		"keywords":  len(vendor.SearchKeywords),
	})
	return vendor, nil
}

// applyMutation merges input onto v and reports whether coordinates changed.
func applyMutation(v *model.Vendor, input VendorMutation) (bool, error) {
	if input.BusinessName != nil {
		if strings.TrimSpace(*input.BusinessName) == "" {
			return false, ErrInvalidVendorInput
		}
		v.BusinessName = strings.TrimSpace(*input.BusinessName)
	}
	if input.Description != nil {
		v.Description = *input.Description
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return false, ErrInvalidVendorInput
		}
		v.Category = strings.TrimSpace(*input.Category)
	}
	if input.Services != nil {
		v.Services = *input.Services
	}
	if input.OperatingHours != nil {
		v.OperatingHours = *input.OperatingHours
	}
	if input.Awards != nil {
		v.Awards = *input.Awards
	}
	if input.PhoneNumber != nil {
		v.PhoneNumber = *input.PhoneNumber
	}
	if a := input.Address; a != nil {
		if a.Street != nil {
			v.Address.Street = *a.Street
		}
		if a.Colony != nil {
			v.Address.Colony = *a.Colony
		}
		if a.City != nil {
			v.Address.City = *a.City
		}
		if a.State != nil {
			v.Address.State = *a.State
		}
		if a.ZipCode != nil {
			v.Address.ZipCode = *a.ZipCode
		}
		if a.Country != nil {
			v.Address.Country = *a.Country
		}
	}
	if input.IsOpen != nil {
		v.IsOpen = *input.IsOpen
	}

	moved := false
	if input.Latitude != nil || input.Longitude != nil {
		lat, lng := v.Location.Latitude, v.Location.Longitude
		if input.Latitude != nil {
			lat = *input.Latitude
		}
		if input.Longitude != nil {
			lng = *input.Longitude
		}
		if !util.ValidCoordinates(lat, lng) {
			return false, ErrInvalidCoordinates
		}
		moved = lat != v.Location.Latitude || lng != v.Location.Longitude
		v.Location.Latitude, v.Location.Longitude = lat, lng
	}
	return moved, nil
}

func (s *vendorService) UpdateVendor(ctx context.Context, userID uint, role model.UserRole, vendorID string, input VendorMutation) (*model.Vendor, error) {
	logger.Info("Updating vendor", map[string]interface{}{
		"vendor_id": vendorID,
		"user_id":   userID,
	})

	vendor, err := s.findVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !canManage(vendor, userID, role) {
		logger.Warn("Vendor update denied", map[string]interface{}{
			"vendor_id": vendorID,
			"user_id":   userID,
			"owner_id":  vendor.UserID,
		})
		return nil, ErrVendorAccessDenied
	}

	moved, err := applyMutation(vendor, input)
	if err != nil {
		return nil, err
	}
	// keywords are rebuilt from the merged record, never from the input alone
	reindex(vendor)
	if moved {
		vendor.Location.FormattedAddress, vendor.Location.Locality, vendor.Location.Sublocality = "", "", ""
		s.applyReverseGeocode(ctx, vendor)
	}

	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		logger.Error("Failed to update vendor", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
		return nil, ErrVendorUpdateFailed
	}
	return vendor, nil
}

func (s *vendorService) GetVendor(ctx context.Context, vendorID string, viewer Viewer) (*model.Vendor, error) {
	vendor, err := s.findVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	isManager := viewer.UserID != 0 && canManage(vendor, viewer.UserID, viewer.Role)
	if vendor.Status != model.VendorStatusApproved && !isManager {
		return nil, ErrVendorNotFound
	}

	if vendor.UserID != viewer.UserID && s.shouldCountView(ctx, vendorID, viewer) {
		if err := s.vendorRepo.IncrementCounter(ctx, []string{vendorID}, model.CounterProfileViews, 1); err != nil {
			logger.Warn("Failed to count profile view", map[string]interface{}{
				"vendor_id": vendorID,
				"error":     err.Error(),
			})
		} else {
			vendor.ProfileViews++
		}
	}
	return vendor, nil
}

func (s *vendorService) shouldCountView(ctx context.Context, vendorID string, viewer Viewer) bool {
	if s.views == nil || viewer.Key == "" {
		return true
	}
	first, err := s.views.FirstView(ctx, vendorID, viewer.Key, profileViewWindow)
	if err != nil {
		logger.Warn("View dedupe unavailable", map[string]interface{}{
			"vendor_id": vendorID,
			"error":     err.Error(),
		})
		return true
	}
	return first
}

// buildVendorFilter resolves query precedence: a geo point wins over free
// text, and the colony filter only applies without a geo point.
func (s *vendorService) buildVendorFilter(opts VendorQueryOptions) (repository.VendorFilter, string, error) {
	filter := repository.VendorFilter{
		Category: opts.Category,
		IsOpen:   opts.IsOpen,
		SortBy:   repository.SortByAverageRating,
		SortDesc: true,
	}

	if opts.SortBy != "" {
		field := repository.VendorSortField(opts.SortBy)
		if !field.IsValid() {
			return filter, "", ErrInvalidSortField
		}
		filter.SortBy = field
	}
	switch strings.ToLower(opts.SortOrder) {
	case "", "desc":
		filter.SortDesc = true
	case "asc":
		filter.SortDesc = false
	default:
		return filter, "", ErrInvalidSortOrder
	}

	filter.Limit = s.searchCfg.DefaultLimit
	if opts.Limit > 0 {
		filter.Limit = opts.Limit
	}
	if s.searchCfg.MaxLimit > 0 && filter.Limit > s.searchCfg.MaxLimit {
		filter.Limit = s.searchCfg.MaxLimit
	}

	if opts.Lat != nil && opts.Lon != nil {
		if !util.ValidCoordinates(*opts.Lat, *opts.Lon) {
			return filter, "", ErrInvalidCoordinates
		}
		start, end := util.GeohashPrefixRange(*opts.Lat, *opts.Lon)
		filter.Geo = &repository.GeohashRange{Start: start, End: end}
		return filter, queryPathGeo, nil
	}

	filter.Colony = opts.Colony
	if tokens := search.SearchTokens(opts.Search); len(tokens) > 0 {
		filter.Keywords = tokens
		return filter, queryPathKeyword, nil
	}
	return filter, queryPathPlain, nil
}

func (s *vendorService) QueryVendors(ctx context.Context, opts VendorQueryOptions) ([]model.Vendor, error) {
	filter, path, err := s.buildVendorFilter(opts)
	if err != nil {
		return nil, err
	}
	metrics.VendorQueriesTotal.WithLabelValues(path).Inc()

	vendors, err := s.vendorRepo.FindApproved(ctx, filter)
	if err != nil {
		logger.Error("Vendor query failed", err, map[string]interface{}{
			"path":     path,
			"category": opts.Category,
		})
		return nil, ErrVendorQueryFailed
	}

	if filter.Geo != nil {
		for i := range vendors {
			d := util.DistanceKm(*opts.Lat, *opts.Lon, vendors[i].Location.Latitude, vendors[i].Location.Longitude)
			vendors[i].DistanceKm = &d
		}
	}

	if len(vendors) > 0 {
		ids := make([]string, len(vendors))
		for i := range vendors {
			ids[i] = vendors[i].ID
		}
		if err := s.vendorRepo.IncrementCounter(ctx, ids, model.CounterSearchImpressions, 1); err != nil {
			logger.Warn("Failed to record search impressions", map[string]interface{}{
				"count": len(ids),
				"error": err.Error(),
			})
		}
	}

	logger.Debug("Vendors queried", map[string]interface{}{
		"path":  path,
		"count": len(vendors),
	})
	return vendors, nil
}

func (s *vendorService) ListMyVendors(ctx context.Context, userID uint) ([]model.Vendor, error) {
	vendors, err := s.vendorRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to list vendors for owner", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrVendorQueryFailed
	}
	return vendors, nil
}

func (s *vendorService) GetVendorStats(ctx context.Context, userID uint, role model.UserRole, vendorID string) (*VendorStats, error) {
	vendor, err := s.findVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !canManage(vendor, userID, role) {
		return nil, ErrVendorAccessDenied
	}

	counts, err := s.reviewRepo.CountByStatus(ctx, vendorID)
	if err != nil {
		logger.Error("Failed to count reviews", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
		return nil, err
	}

	return &VendorStats{
		VendorID:          vendor.ID,
		ProfileViews:      vendor.ProfileViews,
		SearchImpressions: vendor.SearchImpressions,
		AverageRating:     vendor.AverageRating,
		TotalReviews:      vendor.TotalReviews,
		ReviewsByStatus:   counts,
	}, nil
}

func removeTempFiles(files VendorImageFiles) {
	paths := append([]string{files.ProfilePath}, files.AdditionalPaths...)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Debug("Failed to remove temp upload", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
	}
}

func (s *vendorService) UpdateVendorImages(ctx context.Context, userID uint, role model.UserRole, vendorID string, files VendorImageFiles) (*model.Vendor, error) {
	defer removeTempFiles(files)

	if len(files.AdditionalPaths) > model.MaxAdditionalImages {
		return nil, ErrTooManyImages
	}

	vendor, err := s.findVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !canManage(vendor, userID, role) {
		return nil, ErrVendorAccessDenied
	}
	if s.uploader == nil {
		return nil, ErrImageUploadFailed
	}

	if files.ProfilePath != "" {
		url, err := s.uploader.UploadFile(ctx, files.ProfilePath, storage.FolderVendorProfile)
		if err != nil {
			logger.Error("Profile image upload failed", err, map[string]interface{}{
				"vendor_id": vendorID,
			})
			return nil, ErrImageUploadFailed
		}
		vendor.ProfileImageURL = url
	}

	if len(files.AdditionalPaths) > 0 {
		urls := make([]string, 0, len(files.AdditionalPaths))
		for _, p := range files.AdditionalPaths {
			url, err := s.uploader.UploadFile(ctx, p, storage.FolderVendorGallery)
			if err != nil {
				logger.Error("Gallery image upload failed", err, map[string]interface{}{
					"vendor_id": vendorID,
				})
				return nil, ErrImageUploadFailed
			}
			urls = append(urls, url)
		}
		vendor.AdditionalImages = urls
	}

	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		logger.Error("Failed to save vendor images", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
		return nil, ErrVendorUpdateFailed
	}
	return vendor, nil
}

func (s *vendorService) BulkImport(ctx context.Context, ownerID uint, status model.VendorStatus, inputs []VendorInput) (int, error) {
	if !status.IsValid() {
		return 0, ErrInvalidStatus
	}

	vendors := make([]*model.Vendor, 0, len(inputs))
	for i, input := range inputs {
		vendor, err := vendorFromInput(input)
		if err != nil {
			logger.Warn("Skipping invalid import row", map[string]interface{}{
				"row":   i + 1,
				"error": err.Error(),
			})
			continue
		}
		vendor.UserID = ownerID
		vendor.Status = status
		vendors = append(vendors, vendor)
	}

	if err := s.vendorRepo.BulkCreate(ctx, vendors); err != nil {
		logger.Error("Vendor import failed", err, map[string]interface{}{
			"rows": len(inputs),
		})
		return 0, ErrVendorUpdateFailed
	}

	logger.Info("Vendors imported", map[string]interface{}{
		"rows":     len(inputs),
		"imported": len(vendors),
	})
	return len(vendors), nil
}

func (s *vendorService) UpdateVendorStatus(ctx context.Context, vendorID, status string) error {
	next := model.VendorStatus(status)
	if !next.IsValid() {
		return ErrInvalidStatus
	}

	if err := s.vendorRepo.UpdateStatus(ctx, vendorID, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVendorNotFound
		}
		logger.Error("Failed to update vendor status", err, map[string]interface{}{
			"vendor_id": vendorID,
			"status":    status,
		})
		return ErrVendorUpdateFailed
	}

	logger.Info("Vendor status updated", map[string]interface{}{
		"vendor_id": vendorID,
		"status":    status,
	})
	return nil
}

func (s *vendorService) SetVendorVerified(ctx context.Context, vendorID string, verified bool) error {
	if err := s.vendorRepo.SetVerified(ctx, vendorID, verified); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVendorNotFound
		}
		logger.Error("Failed to update vendor verification", err, map[string]interface{}{
			"vendor_id": vendorID,
		})
		return ErrVendorUpdateFailed
	}
	return nil
}
