package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/nearmi/localhunt-backend/internal/storage"
	"github.com/nearmi/localhunt-backend/pkg/logger"
)

// PresignedURLGenerator issues direct-upload URLs.
type PresignedURLGenerator interface {
	GeneratePresignedURLWithFolder(ctx context.Context, filename, contentType, folder string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	storage PresignedURLGenerator
}

func NewUploadController(storage PresignedURLGenerator) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Folder      string `json:"folder"`
}

var uploadFolders = map[string]bool{
	storage.FolderVendorProfile: true,
	storage.FolderVendorGallery: true,
}

// GeneratePresignedURL generates a presigned URL for uploading vendor images to S3
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid presigned URL request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "filename and contentType are required")
		return
	}

	if err := storage.ValidateContentType(req.ContentType, storage.AllowedImageTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WEBP images are allowed")
		return
	}

	folder := req.Folder
	if folder == "" {
		folder = storage.FolderVendorGallery
	}
	if !uploadFolders[folder] {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown upload folder")
		return
	}

	response, err := ctrl.storage.GeneratePresignedURLWithFolder(c.Request.Context(), req.Filename, req.ContentType, folder)
	if err != nil {
		logger.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
			"folder":       folder,
		})
		apperrors.InternalError(c, "Failed to generate presigned URL")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl": response.UploadURL,
		"fileUrl":   response.FileURL,
		"key":       response.Key,
	})
}
