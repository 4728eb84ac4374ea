package values

type contextKey string

// Response status strings. util.StatusCode maps them to HTTP codes.
const (
	Success         = "success"
	Created         = "created"
	Error           = "error"
	BadRequestBody  = "bad_request"
	Unprocessable   = "unprocessable"
	NotAllowed      = "not_allowed"
	Conflict        = "conflict"
	NotFound        = "not_found"
	NotAuthorised   = "not_authorised"
	TokenExpired    = "token_expired"
	TooLarge        = "too_large"
	TooManyRequests = "too_many_requests"
	Unavailable     = "unavailable"
	BadGateway      = "bad_gateway"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"

	// DefaultRequestSource is used when a caller does not identify itself.
	DefaultRequestSource = "anonymous"
)

const ContextTracingKey contextKey = "tracing"
