package controller

import (
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/nearmi/localhunt-backend/internal/middleware"
	"github.com/nearmi/localhunt-backend/internal/storage"
)

type VendorController struct {
	vendorService service.VendorService
	uploadCfg     config.UploadConfig
}

func NewVendorController(vendorService service.VendorService, uploadCfg config.UploadConfig) *VendorController {
	return &VendorController{
		vendorService: vendorService,
		uploadCfg:     uploadCfg,
	}
}

type AddressRequest struct {
	Street  string `json:"street"`
	Colony  string `json:"colony"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type RegisterVendorRequest struct {
	BusinessName   string               `json:"businessName" binding:"required"`
	Description    string               `json:"description"`
	Category       string               `json:"category" binding:"required"`
	Services       model.ServiceList    `json:"services"`
	OperatingHours model.OperatingHours `json:"operatingHours"`
	Awards         []string             `json:"awards"`
	PhoneNumber    string               `json:"phoneNumber"`
	Address        AddressRequest       `json:"address"`
	Latitude       *float64             `json:"latitude"`
	Longitude      *float64             `json:"longitude"`
	IsOpen         *bool                `json:"isOpen"`
}

type UpdateAddressRequest struct {
	Street  *string `json:"street"`
	Colony  *string `json:"colony"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zipCode"`
	Country *string `json:"country"`
}

// UpdateVendorRequest is a partial update. Omitted fields are kept.
type UpdateVendorRequest struct {
	BusinessName   *string               `json:"businessName"`
	Description    *string               `json:"description"`
	Category       *string               `json:"category"`
	Services       *model.ServiceList    `json:"services"`
	OperatingHours *model.OperatingHours `json:"operatingHours"`
	Awards         *[]string             `json:"awards"`
	PhoneNumber    *string               `json:"phoneNumber"`
	Address        *UpdateAddressRequest `json:"address"`
	Latitude       *float64              `json:"latitude"`
	Longitude      *float64              `json:"longitude"`
	IsOpen         *bool                 `json:"isOpen"`
}

func (r RegisterVendorRequest) toInput() service.VendorInput {
	return service.VendorInput{
		BusinessName:   r.BusinessName,
		Description:    r.Description,
		Category:       r.Category,
		Services:       r.Services,
		OperatingHours: r.OperatingHours,
		Awards:         r.Awards,
		PhoneNumber:    r.PhoneNumber,
		Address: model.Address{
			Street:  r.Address.Street,
			Colony:  r.Address.Colony,
			City:    r.Address.City,
			State:   r.Address.State,
			ZipCode: r.Address.ZipCode,
			Country: r.Address.Country,
		},
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		IsOpen:    r.IsOpen,
	}
}

func (r UpdateVendorRequest) toMutation() service.VendorMutation {
	m := service.VendorMutation{
		BusinessName:   r.BusinessName,
		Description:    r.Description,
		Category:       r.Category,
		Services:       r.Services,
		OperatingHours: r.OperatingHours,
		Awards:         r.Awards,
		PhoneNumber:    r.PhoneNumber,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		IsOpen:         r.IsOpen,
	}
	if r.Address != nil {
		m.Address = &service.AddressMutation{
			Street:  r.Address.Street,
			Colony:  r.Address.Colony,
			City:    r.Address.City,
			State:   r.Address.State,
			ZipCode: r.Address.ZipCode,
			Country: r.Address.Country,
		}
	}
	return m
}

// parseQueryOptions reads GET /vendors query parameters. Malformed numbers
// are reported rather than silently ignored.
func parseQueryOptions(c *gin.Context) (service.VendorQueryOptions, error) {
	opts := service.VendorQueryOptions{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		Colony:    c.Query("colony"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	if raw := c.Query("lat"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, service.ErrInvalidCoordinates
		}
		opts.Lat = &v
	}
	if raw := c.Query("lon"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, service.ErrInvalidCoordinates
		}
		opts.Lon = &v
	}
	if raw := c.Query("isOpen"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errInvalidQuery
		}
		opts.IsOpen = &v
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return opts, errInvalidQuery
		}
		opts.Limit = v
	}
	return opts, nil
}

// QueryVendors searches approved vendors
// @Summary Search vendors
// @Description Nearby search when lat/lon are given, otherwise keyword and filter search over approved vendors
// @Tags Vendors
// @Produce json
// @Param lat query number false "Latitude"
// @Param lon query number false "Longitude"
// @Param search query string false "Free text"
// @Param category query string false "Category"
// @Param colony query string false "Colony (ignored for nearby search)"
// @Param isOpen query bool false "Open now"
// @Param sortBy query string false "averageRating | totalReviews | createdAt | businessName"
// @Param sortOrder query string false "asc | desc"
// @Param limit query int false "Max results"
// @Router /vendors [get]
func (ctrl *VendorController) QueryVendors(c *gin.Context) {
	opts, err := parseQueryOptions(c)
	if err != nil {
		if err == errInvalidQuery {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "isOpen must be a boolean and limit a positive integer")
			return
		}
		respondError(c, err, "vendor")
		return
	}

	vendors, err := ctrl.vendorService.QueryVendors(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err, "vendor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vendors": vendors,
		"count":   len(vendors),
	})
}

// GetVendor returns one vendor
// @Router /vendors/{id} [get]
func (ctrl *VendorController) GetVendor(c *gin.Context) {
	viewer := service.Viewer{Key: c.ClientIP()}
	if userID, ok := middleware.GetUserID(c); ok {
		viewer.UserID = userID
		viewer.Role, _ = middleware.GetUserRole(c)
		viewer.Key = "user:" + strconv.FormatUint(uint64(userID), 10)
	}

	vendor, err := ctrl.vendorService.GetVendor(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

// RegisterVendor lists a new business. New vendors start pending until an admin approves them.
// @Router /vendors [post]
func (ctrl *VendorController) RegisterVendor(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req RegisterVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid vendor registration", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationRequired, "businessName and category are required")
		return
	}

	vendor, err := ctrl.vendorService.RegisterVendor(c.Request.Context(), userID, role, req.toInput())
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vendor": vendor})
}

// UpdateVendor edits a vendor profile
// @Router /vendors/{id} [patch]
func (ctrl *VendorController) UpdateVendor(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid vendor data")
		return
	}

	vendor, err := ctrl.vendorService.UpdateVendor(c.Request.Context(), userID, role, c.Param("id"), req.toMutation())
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

// ListMyVendors GET /api/v1/vendors/me
func (ctrl *VendorController) ListMyVendors(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	vendors, err := ctrl.vendorService.ListMyVendors(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

// GetVendorStats GET /api/v1/vendors/:id/stats
func (ctrl *VendorController) GetVendorStats(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := ctrl.vendorService.GetVendorStats(c.Request.Context(), userID, role, c.Param("id"))
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// UpdateVendorImages replaces the profile image and gallery from a
// multipart form with fields "profileImage" and "additionalImages".
// PUT /api/v1/vendors/:id/images
func (ctrl *VendorController) UpdateVendorImages(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Expected a multipart form")
		return
	}

	profiles := form.File["profileImage"]
	additional := form.File["additionalImages"]
	if len(profiles) > 1 {
		apperrors.BadRequest(c, apperrors.UploadTooManyFiles, "Only one profile image is allowed")
		return
	}
	if len(additional) > model.MaxAdditionalImages {
		respondError(c, service.ErrTooManyImages, "vendor")
		return
	}
	for _, fh := range append(append([]*multipart.FileHeader{}, profiles...), additional...) {
		if !ctrl.validateImage(c, fh) {
			return
		}
	}

	var files service.VendorImageFiles
	if len(profiles) == 1 {
		path, err := ctrl.saveTemp(c, profiles[0])
		if err != nil {
			log.Error("Failed to stage profile image", err)
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to process upload")
			return
		}
		files.ProfilePath = path
	}
	for _, fh := range additional {
		path, err := ctrl.saveTemp(c, fh)
		if err != nil {
			log.Error("Failed to stage gallery image", err)
			removeAll(files)
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to process upload")
			return
		}
		files.AdditionalPaths = append(files.AdditionalPaths, path)
	}

	// The service removes the staged files.
	vendor, err := ctrl.vendorService.UpdateVendorImages(c.Request.Context(), userID, role, c.Param("id"), files)
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

func (ctrl *VendorController) validateImage(c *gin.Context, fh *multipart.FileHeader) bool {
	if err := storage.ValidateFileSize(fh.Size, ctrl.uploadCfg.MaxImageBytes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, err.Error())
		return false
	}
	if err := storage.ValidateContentType(fh.Header.Get("Content-Type"), storage.AllowedImageTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WEBP images are allowed")
		return false
	}
	return true
}

func (ctrl *VendorController) saveTemp(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	f, err := os.CreateTemp(ctrl.uploadCfg.TempDir, "vendor-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()

	if err := c.SaveUploadedFile(fh, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func removeAll(files service.VendorImageFiles) {
	if files.ProfilePath != "" {
		os.Remove(files.ProfilePath)
	}
	for _, p := range files.AdditionalPaths {
		os.Remove(p)
	}
}
