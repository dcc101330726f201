package constants

const (
	ContentTypeHeaderName   = "Content-Type"
	CorrelationIDHeaderName = "X-Correlation-ID"
	ContentTypeJSON         = "application/json"
	APIBasePath             = "/api/v1"

	// CorrelationIDKey is the gin context key holding the request correlation ID
	CorrelationIDKey = "correlation_id"

	// Aliases for convenience
	HeaderContentType = ContentTypeHeaderName
)
