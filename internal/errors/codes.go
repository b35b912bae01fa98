package errors

// Error codes returned in the "error" field.
// Format: CATEGORY_SPECIFIC_DETAIL
// Clients map these codes to their own messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzAccessDenied = "AUTHZ_ACCESS_DENIED"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidStatus = "VALIDATION_INVALID_STATUS"
	ValidationInvalidSort   = "VALIDATION_INVALID_SORT"
	ValidationInvalidCoords = "VALIDATION_INVALID_COORDINATES"
	ValidationRequired      = "VALIDATION_REQUIRED"
	ValidationTooLong       = "VALIDATION_TOO_LONG"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Vendor (VENDOR_) ====================
	VendorNotFound    = "VENDOR_NOT_FOUND"
	VendorQueryFailed = "VENDOR_QUERY_FAILED"
	VendorOwnReview   = "VENDOR_OWN_REVIEW"
	VendorOwnChat     = "VENDOR_OWN_CHAT"

	// ==================== Review (REVIEW_) ====================
	ReviewNotFound        = "REVIEW_NOT_FOUND"
	ReviewInvalidRating   = "REVIEW_INVALID_RATING"
	ReviewAlreadyExists   = "REVIEW_ALREADY_EXISTS"
	ReviewAlreadyReported = "REVIEW_ALREADY_REPORTED"

	// ==================== Rating (RATING_) ====================
	RatingConflict = "RATING_CONFLICT"

	// ==================== Chat (CHAT_) ====================
	ChatConversationNotFound = "CHAT_CONVERSATION_NOT_FOUND"
	ChatNotParticipant       = "CHAT_NOT_PARTICIPANT"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadTooManyFiles    = "UPLOAD_TOO_MANY_FILES"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
