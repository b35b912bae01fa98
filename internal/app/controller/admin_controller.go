package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/nearmi/localhunt-backend/internal/importer"
	"github.com/nearmi/localhunt-backend/internal/middleware"
)

// AdminController serves admin-only moderation and maintenance endpoints.
type AdminController struct {
	vendorService service.VendorService
	reviewService service.ReviewService
	ratingService service.RatingService
}

func NewAdminController(vendorService service.VendorService, reviewService service.ReviewService, ratingService service.RatingService) *AdminController {
	return &AdminController{
		vendorService: vendorService,
		reviewService: reviewService,
		ratingService: ratingService,
	}
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type VerifyRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// UpdateVendorStatus PATCH /api/v1/admin/vendors/:id/status
func (ctrl *AdminController) UpdateVendorStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status is required")
		return
	}

	if err := ctrl.vendorService.UpdateVendorStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err, "vendor")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Vendor status changed", map[string]interface{}{
		"vendor_id": c.Param("id"),
		"status":    req.Status,
	})
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// VerifyVendor PATCH /api/v1/admin/vendors/:id/verify
func (ctrl *AdminController) VerifyVendor(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "verified is required")
		return
	}

	if err := ctrl.vendorService.SetVendorVerified(c.Request.Context(), c.Param("id"), *req.Verified); err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": *req.Verified})
}

// ListFlaggedReviews GET /api/v1/admin/reviews/flagged
func (ctrl *AdminController) ListFlaggedReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.ListFlaggedReviews(c.Request.Context())
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// UpdateReviewStatus PATCH /api/v1/admin/reviews/:id/status
func (ctrl *AdminController) UpdateReviewStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status is required")
		return
	}

	review, err := ctrl.reviewService.UpdateReviewStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

// RecomputeVendorRating POST /api/v1/admin/vendors/:id/recompute-rating
func (ctrl *AdminController) RecomputeVendorRating(c *gin.Context) {
	summary, err := ctrl.ratingService.RecomputeVendorRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": summary})
}

// RecomputeAllRatings POST /api/v1/admin/ratings/recompute
func (ctrl *AdminController) RecomputeAllRatings(c *gin.Context) {
	report, err := ctrl.ratingService.RecomputeAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "vendor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// ImportVendors loads vendors from an uploaded XLSX file (form field "file").
// Imported vendors belong to the calling admin and start with ?status=
// (default pending).
// POST /api/v1/admin/vendors/import
func (ctrl *AdminController) ImportVendors(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	status := model.VendorStatus(c.DefaultQuery("status", string(model.VendorStatusPending)))
	if !status.IsValid() {
		respondError(c, service.ErrInvalidStatus, "vendor")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Failed to read upload")
		return
	}
	defer f.Close()

	inputs, report, err := importer.ReadVendors(f)
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, err.Error())
		return
	}

	imported, err := ctrl.vendorService.BulkImport(c.Request.Context(), userID, status, inputs)
	if err != nil {
		respondError(c, err, "vendor")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"report":   report,
	})
}
