package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
)

type ReviewController struct {
	reviewService service.ReviewService
	authService   service.AuthService
}

func NewReviewController(reviewService service.ReviewService, authService service.AuthService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
		authService:   authService,
	}
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type ReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateReview posts a review for a vendor
// @Summary Create review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Vendor ID"
// @Param review body CreateReviewRequest true "Review"
// @Success 201 {object} model.Review
// @Router /vendors/{id}/reviews [post]
func (ctrl *ReviewController) CreateReview(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ReviewInvalidRating, "rating is required")
		return
	}

	user, err := ctrl.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "user")
		return
	}

	review, err := ctrl.reviewService.CreateReview(c.Request.Context(), user, c.Param("id"), service.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// ListVendorReviews pages a vendor's approved reviews
// @Summary List vendor reviews
// @Tags Reviews
// @Produce json
// @Param id path string true "Vendor ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Router /vendors/{id}/reviews [get]
func (ctrl *ReviewController) ListVendorReviews(c *gin.Context) {
	page := queryInt(c, "page", 1)
	reviews, total, err := ctrl.reviewService.ListVendorReviews(c.Request.Context(), c.Param("id"), page, queryInt(c, "pageSize", 0))
	if err != nil {
		respondError(c, err, "review")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"page":    page,
	})
}

// ListMyReviews GET /api/v1/reviews/me
func (ctrl *ReviewController) ListMyReviews(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	reviews, err := ctrl.reviewService.ListUserReviews(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// UpdateReview edits the caller's review
// @Router /reviews/{id} [put]
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid review data")
		return
	}

	review, err := ctrl.reviewService.UpdateReview(c.Request.Context(), userID, c.Param("id"), service.ReviewMutation{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

// DeleteReview removes a review
// @Router /reviews/{id} [delete]
func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	if err := ctrl.reviewService.DeleteReview(c.Request.Context(), userID, role, c.Param("id")); err != nil {
		respondError(c, err, "review")
		return
	}
	c.Status(http.StatusNoContent)
}

// ReportReview flags a review for moderation.
// POST /api/v1/reviews/:id/report
func (ctrl *ReviewController) ReportReview(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	review, err := ctrl.reviewService.ReportReview(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reportCount": review.ReportCount,
		"status":      review.Status,
	})
}

// ReplyToReview POST /api/v1/reviews/:id/reply
func (ctrl *ReviewController) ReplyToReview(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "text is required")
		return
	}

	review, err := ctrl.reviewService.ReplyToReview(c.Request.Context(), userID, role, c.Param("id"), req.Text)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}
