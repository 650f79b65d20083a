package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"

	// Shortener-specific messages
	MsgValidationFailed  = "Request validation failed"
	MsgLinkNotFound      = "Link not found"
	MsgLinkExpired       = "Expired Link"
	MsgAggregationFailed = "Failed to compute statistics"
)
