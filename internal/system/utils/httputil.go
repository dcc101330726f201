package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/error/apierror"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/error/serviceerror"
)

// StatusCode maps a ServiceError to its HTTP status code
func StatusCode(err *serviceerror.ServiceError) int {
	if err.Type != serviceerror.ClientErrorType {
		return http.StatusInternalServerError
	}
	switch err.Code {
	case serviceerror.ResourceNotFoundError.Code:
		return http.StatusNotFound
	case serviceerror.ConflictError.Code:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// SendError writes a ServiceError as an HTTP response with appropriate status code
func SendError(c *gin.Context, err *serviceerror.ServiceError) {
	c.AbortWithStatusJSON(StatusCode(err), apierror.ErrorResponse{
		Code:        err.Error,
		Description: err.ErrorDescription,
		Redirect:    err.Redirect,
	})
}

// SendOKResponse sends a 200 OK response
func SendOKResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendRedirectResponse tells the caller which page to show next
func SendRedirectResponse(c *gin.Context, redirect string) {
	c.JSON(http.StatusOK, gin.H{"redirect": redirect})
}

// SendNoContentResponse sends a 204 No Content response
func SendNoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
