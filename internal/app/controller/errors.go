package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/nearmi/localhunt-backend/internal/middleware"
	"github.com/nearmi/localhunt-backend/pkg/util"
)

var errInvalidQuery = errors.New("invalid query parameter")

type errorMapping struct {
	status int
	code   string
}

// serviceErrors maps domain sentinels to HTTP responses. The sentinel's own
// message is shown to the client.
var serviceErrors = map[error]errorMapping{
	service.ErrVendorNotFound:       {http.StatusNotFound, apperrors.VendorNotFound},
	service.ErrVendorAccessDenied:   {http.StatusForbidden, apperrors.AuthzOwnerOnly},
	service.ErrVendorQueryFailed:    {http.StatusInternalServerError, apperrors.VendorQueryFailed},
	service.ErrInvalidVendorInput:   {http.StatusBadRequest, apperrors.ValidationRequired},
	service.ErrInvalidStatus:        {http.StatusBadRequest, apperrors.ValidationInvalidStatus},
	service.ErrInvalidSortField:     {http.StatusBadRequest, apperrors.ValidationInvalidSort},
	service.ErrInvalidSortOrder:     {http.StatusBadRequest, apperrors.ValidationInvalidSort},
	service.ErrInvalidCoordinates:   {http.StatusBadRequest, apperrors.ValidationInvalidCoords},
	service.ErrTooManyImages:        {http.StatusBadRequest, apperrors.UploadTooManyFiles},
	service.ErrImageUploadFailed:    {http.StatusBadGateway, apperrors.UploadFailed},
	service.ErrVendorUpdateFailed:   {http.StatusInternalServerError, apperrors.InternalDatabaseError},
	service.ErrRatingUpdateFailed:   {http.StatusInternalServerError, apperrors.InternalDatabaseError},
	service.ErrReviewNotFound:       {http.StatusNotFound, apperrors.ReviewNotFound},
	service.ErrReviewAlreadyExists:  {http.StatusConflict, apperrors.ReviewAlreadyExists},
	service.ErrReviewAccessDenied:   {http.StatusForbidden, apperrors.AuthzOwnerOnly},
	service.ErrInvalidRating:        {http.StatusBadRequest, apperrors.ReviewInvalidRating},
	service.ErrOwnVendorReview:      {http.StatusForbidden, apperrors.VendorOwnReview},
	service.ErrAlreadyReported:      {http.StatusConflict, apperrors.ReviewAlreadyReported},
	service.ErrEmptyReply:           {http.StatusBadRequest, apperrors.ValidationRequired},
	service.ErrRatingConflict:       {http.StatusConflict, apperrors.RatingConflict},
	service.ErrEmailAlreadyExists:   {http.StatusConflict, apperrors.AuthEmailAlreadyExists},
	service.ErrInvalidCredentials:   {http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
	service.ErrUserNotFound:         {http.StatusNotFound, apperrors.ResourceNotFound},
	service.ErrInvalidToken:         {http.StatusUnauthorized, apperrors.AuthTokenInvalid},
	service.ErrConversationNotFound: {http.StatusNotFound, apperrors.ChatConversationNotFound},
	service.ErrNotParticipant:       {http.StatusForbidden, apperrors.ChatNotParticipant},
	service.ErrEmptyMessage:         {http.StatusBadRequest, apperrors.ValidationRequired},
	service.ErrMessageTooLong:       {http.StatusBadRequest, apperrors.ValidationTooLong},
	service.ErrOwnVendorChat:        {http.StatusBadRequest, apperrors.VendorOwnChat},

	util.ErrPasswordTooLong: {http.StatusBadRequest, apperrors.ValidationInvalidInput},
}

// respondError writes the response for a service error. Unknown errors go
// through ParseError so driver text never reaches the client.
func respondError(c *gin.Context, err error, context string) {
	for sentinel, m := range serviceErrors {
		if errors.Is(err, sentinel) {
			apperrors.RespondWithError(c, m.status, m.code, sentinel.Error())
			return
		}
	}

	info := apperrors.ParseError(err, context)
	if info.Status >= http.StatusInternalServerError {
		middleware.GetLoggerFromContext(c).Error("Unhandled service error", err, map[string]interface{}{
			"context": context,
		})
	}
	apperrors.RespondWithError(c, info.Status, info.Code, info.Message)
}

// currentUser returns the authenticated user id and role. It writes a 401
// and returns false when the request is anonymous.
func currentUser(c *gin.Context) (uint, model.UserRole, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, "", false
	}
	role, _ := middleware.GetUserRole(c)
	return userID, role, true
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}
