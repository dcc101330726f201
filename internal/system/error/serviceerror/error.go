package serviceerror

type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
	// Redirect points the caller at the page that can resolve the error.
	Redirect string `json:"redirect,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             "RRS-5000",
		Error:            "internal_server_error",
		ErrorDescription: "An unexpected error occurred",
	}

	DatabaseError = ServiceError{
		Type:             ServerErrorType,
		Code:             "RRS-5001",
		Error:            "database_error",
		ErrorDescription: "A database error occurred",
	}

	DocumentStoreError = ServiceError{
		Type:             ServerErrorType,
		Code:             "RRS-5002",
		Error:            "document_store_error",
		ErrorDescription: "A document store error occurred",
	}

	StagingError = ServiceError{
		Type:             ServerErrorType,
		Code:             "RRS-5003",
		Error:            "staging_error",
		ErrorDescription: "Review progress could not be saved",
	}

	InvalidRequestError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CRS-4000",
		Error:            "invalid_request",
		ErrorDescription: "The request is invalid",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CRS-4001",
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}

	ResourceNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CRS-4004",
		Error:            "resource_not_found",
		ErrorDescription: "Resource not found",
	}

	ConflictError = ServiceError{
		Type:             ClientErrorType,
		Code:             "CRS-4009",
		Error:            "conflict",
		ErrorDescription: "Request conflicts with current state",
	}
)

func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}

// WithRedirect returns a copy of the error carrying a redirect target.
func (e *ServiceError) WithRedirect(redirect string) *ServiceError {
	clone := *e
	clone.Redirect = redirect
	return &clone
}
