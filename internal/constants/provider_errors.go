package constants

// Provider Error Codes
// These constants define specific error scenarios for the OFP provider
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeNetworkError      = "NETWORK_ERROR"
	ErrCodeInvalidDataFormat = "INVALID_DATA_FORMAT"
	ErrCodeInvalidPilotID    = "INVALID_PILOT_ID"
	ErrCodeFetchRejected     = "FETCH_REJECTED"
)

// Synthesis Error Codes
const (
	ErrCodeInvalidSequence = "INVALID_SEQUENCE"
	ErrCodeNavDataNotFound = "NAVDATA_NOT_FOUND"
	ErrCodeRouteMutation   = "ROUTE_MUTATION_FAILED"
	ErrCodeNavDBFailure    = "NAVDB_FAILURE"
)

// Error Messages
// Human-readable messages corresponding to error codes
var ErrorMessages = map[string]string{
	ErrCodeNotFound:          "No flight plan was found for this pilot",
	ErrCodeRateLimited:       "Rate limit exceeded. Please try again later",
	ErrCodeNetworkError:      "Unable to reach the flight plan service",
	ErrCodeInvalidDataFormat: "The flight plan document could not be read",
	ErrCodeInvalidPilotID:    "A username or numeric pilot ID is required",
	ErrCodeFetchRejected:     "The flight plan service rejected the request",

	ErrCodeInvalidSequence: "A procedure appears somewhere other than the start or end of the route",
	ErrCodeNavDataNotFound: "A fix or airway in the route is not in the navigation database",
	ErrCodeRouteMutation:   "The route could not be updated",
	ErrCodeNavDBFailure:    "The navigation database could not be queried",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
