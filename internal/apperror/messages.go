package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeInvalidConfig: "Invalid configuration",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Source connector errors
	CodeSourceError:       "Source fetch failed",
	CodeSourceTimeout:     "Source exceeded its time budget",
	CodeSourceAPIError:    "Source API returned an error",
	CodeSourceRateLimited: "Source rate limit exceeded",
	CodeUnknownSource:     "Unknown source name",
	CodeMalformedPayload:  "Source returned a malformed payload",

	// Aggregation errors
	CodeEmptyAggregate: "No funding rates collected from any source",

	// Analyzer errors
	CodeSpreadCalculationError: "Spread calculation error",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
