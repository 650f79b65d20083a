package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeRateLimited    = "RATE_LIMITED"

	// Shortener-specific codes
	CodeValidation        = "VALIDATION_FAILED"
	CodeLinkExpired       = "LINK_EXPIRED"
	CodeLinkNotFound      = "LINK_NOT_FOUND"
	CodeAggregationFailed = "AGGREGATION_FAILED"
)
