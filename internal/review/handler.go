package review

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review/model"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/staging"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/error/serviceerror"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/utils"
)

// multipartOverhead allows for form boundaries and headers around the file
const multipartOverhead = 1 << 20

type decisionRequest struct {
	Decision model.Decision `json:"decision"`
}

type redactedCommentRequest struct {
	RedactedComment string `json:"redactedComment"`
}

type reviewHandler struct {
	service       ReviewService
	sessionHeader string
	sessionCookie string
	maxUploadSize int64
}

func newReviewHandler(service ReviewService, sessionHeader, sessionCookie string, maxUploadSize int64) *reviewHandler {
	return &reviewHandler{
		service:       service,
		sessionHeader: sessionHeader,
		sessionCookie: sessionCookie,
		maxUploadSize: maxUploadSize,
	}
}

// scope resolves the staging scope from the path and the caller's session
func (h *reviewHandler) scope(c *gin.Context) staging.Scope {
	sessionID := c.GetHeader(h.sessionHeader)
	if sessionID == "" && h.sessionCookie != "" {
		if cookie, err := c.Cookie(h.sessionCookie); err == nil {
			sessionID = cookie
		}
	}
	return staging.Scope{SessionID: sessionID, Reference: c.Param("reference")}
}

// validatePathParams rejects malformed identifiers before they reach the service
func (h *reviewHandler) validatePathParams(c *gin.Context) {
	for _, param := range c.Params {
		if err := utils.ValidateIdentifier(param.Key, param.Value); err != nil {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
			return
		}
	}
	c.Next()
}

func (h *reviewHandler) redirect(c *gin.Context, redirect string, serviceErr *serviceerror.ServiceError) {
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}
	utils.SendRedirectResponse(c, redirect)
}

// getTaskList handles GET /representations/{reference}/review
func (h *reviewHandler) getTaskList(c *gin.Context) {
	taskList, serviceErr := h.service.GetTaskList(c.Request.Context(), h.scope(c))
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}
	utils.SendOKResponse(c, taskList)
}

// setCommentDecision handles POST /representations/{reference}/review/comment
func (h *reviewHandler) setCommentDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	redirect, serviceErr := h.service.SetCommentDecision(c.Request.Context(), h.scope(c), req.Decision)
	h.redirect(c, redirect, serviceErr)
}

// getRedactionView handles GET /representations/{reference}/review/comment/redact
func (h *reviewHandler) getRedactionView(c *gin.Context) {
	view, serviceErr := h.service.GetRedactionView(c.Request.Context(), h.scope(c))
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}
	utils.SendOKResponse(c, view)
}

// saveRedactedComment handles POST /representations/{reference}/review/comment/redact
func (h *reviewHandler) saveRedactedComment(c *gin.Context) {
	var req redactedCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	redirect, serviceErr := h.service.SaveRedactedComment(c.Request.Context(), h.scope(c), req.RedactedComment)
	h.redirect(c, redirect, serviceErr)
}

// applySuggestions handles POST /representations/{reference}/review/comment/redact/suggestions
func (h *reviewHandler) applySuggestions(c *gin.Context) {
	redirect, serviceErr := h.service.ApplySuggestions(c.Request.Context(), h.scope(c))
	h.redirect(c, redirect, serviceErr)
}

// acceptRedactedComment handles POST /representations/{reference}/review/comment/redact/accept
func (h *reviewHandler) acceptRedactedComment(c *gin.Context) {
	redirect, serviceErr := h.service.AcceptRedactedComment(c.Request.Context(), h.scope(c))
	h.redirect(c, redirect, serviceErr)
}

// setDocumentDecision handles POST /representations/{reference}/review/documents/{itemId}
func (h *reviewHandler) setDocumentDecision(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	redirect, serviceErr := h.service.SetDocumentDecision(c.Request.Context(), h.scope(c), c.Param("itemId"), req.Decision)
	h.redirect(c, redirect, serviceErr)
}

// uploadRedactedDocument handles POST /representations/{reference}/review/documents/{itemId}/uploads
func (h *reviewHandler) uploadRedactedDocument(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			utils.SendError(c, serviceerror.CustomServiceError(serviceerror.ValidationError, "The file is too large"))
			return
		}
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "A file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "The file could not be read"))
		return
	}
	defer file.Close()

	staged, serviceErr := h.service.UploadRedactedDocument(c.Request.Context(), h.scope(c), c.Param("itemId"), Upload{
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
		Body:     file,
	})
	if serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}
	c.JSON(http.StatusCreated, staged)
}

// removeStagedUpload handles DELETE /representations/{reference}/review/documents/{itemId}/uploads/{uploadId}
func (h *reviewHandler) removeStagedUpload(c *gin.Context) {
	if serviceErr := h.service.RemoveStagedUpload(c.Request.Context(), h.scope(c), c.Param("itemId"), c.Param("uploadId")); serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}
	utils.SendNoContentResponse(c)
}

// submitReview handles POST /representations/{reference}/review/submit
func (h *reviewHandler) submitReview(c *gin.Context) {
	redirect, serviceErr := h.service.SubmitReview(c.Request.Context(), h.scope(c))
	h.redirect(c, redirect, serviceErr)
}

// abandonReview handles DELETE /representations/{reference}/review
func (h *reviewHandler) abandonReview(c *gin.Context) {
	if serviceErr := h.service.AbandonReview(c.Request.Context(), h.scope(c)); serviceErr != nil {
		utils.SendError(c, serviceErr)
		return
	}
	utils.SendNoContentResponse(c)
}
