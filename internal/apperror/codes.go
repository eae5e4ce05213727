package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Funding aggregation error codes
const (
	// Source connector errors
	CodeSourceError       Code = "SOURCE_ERROR"
	CodeSourceTimeout     Code = "SOURCE_TIMEOUT"
	CodeSourceAPIError    Code = "SOURCE_API_ERROR"
	CodeSourceRateLimited Code = "SOURCE_RATE_LIMITED"
	CodeUnknownSource     Code = "UNKNOWN_SOURCE"
	CodeMalformedPayload  Code = "MALFORMED_PAYLOAD"

	// Aggregation errors
	CodeEmptyAggregate Code = "EMPTY_AGGREGATE"

	// Analyzer errors
	CodeSpreadCalculationError Code = "SPREAD_CALCULATION_ERROR"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
