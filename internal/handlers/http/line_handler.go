package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"
	apperrors "floorview/pkg/errors"
	"floorview/pkg/validation"

	"github.com/gin-gonic/gin"
)

// MaxUploadBytes bounds an uploaded document.
const MaxUploadBytes = 10 << 20

type LineHandler struct {
	line ports.LineService
}

func NewLineHandler(line ports.LineService) *LineHandler {
	return &LineHandler{line: line}
}

func (h *LineHandler) SetupRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/events", h.Events)
	router.GET("/stats", h.Stats)

	router.POST("/documents/upload", h.UploadDocument)
	router.GET("/documents", h.ListDocuments)

	policies := router.Group("/policies")
	{
		policies.GET("", h.ListPolicies)
		policies.GET("/active", h.ActivePolicy)
		policies.POST("/compile/:doc_id", h.CompilePolicy)
		policies.POST("/:id/approve", h.ApprovePolicy)
		policies.POST("/:id/reject", h.RejectPolicy)
		policies.POST("/:id/suspend", h.SuspendPolicy)
	}

	router.POST("/inspect", h.Inspect)
	router.POST("/operator/override", h.Override)
	router.POST("/operator/confidence", h.SetConfidence)
	router.POST("/qa", h.Ask)
}

func (h *LineHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.line.Status(c.Request.Context()))
}

func (h *LineHandler) Events(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			c.Error(apperrors.NewInvalidInputError("limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	events, err := h.line.Events(c.Request.Context(), limit)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *LineHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.line.Stats(c.Request.Context()))
}

func (h *LineHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.Error(apperrors.NewInvalidInputError("multipart field 'file' is required"))
		return
	}
	if err := validation.ValidateFilename(file.Filename); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if file.Size > MaxUploadBytes {
		c.Error(apperrors.NewInvalidInputError("document too large"))
		return
	}

	f, err := file.Open()
	if err != nil {
		c.Error(apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "cannot read upload", http.StatusBadRequest))
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		c.Error(apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "cannot read upload", http.StatusBadRequest))
		return
	}

	resp, err := h.line.UploadDocument(c.Request.Context(), file.Filename, content)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LineHandler) ListDocuments(c *gin.Context) {
	docs, err := h.line.ListDocuments(c.Request.Context())
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *LineHandler) CompilePolicy(c *gin.Context) {
	docID := c.Param("doc_id")
	if err := validation.ValidateID(docID, "document id"); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	policy, err := h.line.CompilePolicy(c.Request.Context(), docID)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (h *LineHandler) ListPolicies(c *gin.Context) {
	policies, err := h.line.ListPolicies(c.Request.Context())
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, policies)
}

func (h *LineHandler) ActivePolicy(c *gin.Context) {
	policy, err := h.line.ActivePolicy(c.Request.Context())
	if errors.Is(err, domain.ErrNoActivePolicy) {
		c.Error(apperrors.NewNotFoundError("active policy"))
		return
	}
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (h *LineHandler) ApprovePolicy(c *gin.Context) {
	var req domain.PolicyApprovalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewInvalidInputError(err.Error()))
			return
		}
	}
	if req.OperatorID == "" {
		req.OperatorID = "operator"
	}

	policy, err := h.line.ApprovePolicy(c.Request.Context(), c.Param("id"), req.OperatorID)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved", "policy_id": policy.PolicyID})
}

func (h *LineHandler) RejectPolicy(c *gin.Context) {
	policy, err := h.line.RejectPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected", "policy_id": policy.PolicyID})
}

func (h *LineHandler) SuspendPolicy(c *gin.Context) {
	policy, err := h.line.SuspendPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "suspended", "policy_id": policy.PolicyID})
}

func (h *LineHandler) Inspect(c *gin.Context) {
	req := domain.InspectRequest{UseCamera: true}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewInvalidInputError(err.Error()))
			return
		}
	}

	result, err := h.line.Inspect(c.Request.Context(), req)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LineHandler) Override(c *gin.Context) {
	var req domain.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validateOverride(req); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	if err := h.line.Override(c.Request.Context(), req); err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "overridden", "bin": req.OverrideBin})
}

func (h *LineHandler) SetConfidence(c *gin.Context) {
	v, err := strconv.ParseFloat(c.Query("threshold"), 64)
	if err != nil {
		c.Error(apperrors.NewInvalidInputError("threshold must be a number"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"confidence_threshold": h.line.SetConfidenceThreshold(v)})
}

func (h *LineHandler) Ask(c *gin.Context) {
	var req domain.QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	if err := validation.ValidateQuestion(req.Question); err != nil {
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	resp, err := h.line.Ask(c.Request.Context(), req.Question)
	if err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func validateOverride(req domain.OverrideRequest) error {
	if err := validation.ValidateID(req.PartID, "part id"); err != nil {
		return err
	}
	if err := validation.ValidateBinID(req.OverrideBin); err != nil {
		return err
	}
	return validation.ValidateStringLength(req.Reason, 0, validation.MaxReasonLength, "reason")
}

func toAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	switch {
	case errors.Is(err, domain.ErrNoActivePolicy):
		return apperrors.NewNoActivePolicyError()
	case errors.Is(err, domain.ErrPolicyNotFound):
		return apperrors.NewNotFoundError("policy")
	case errors.Is(err, domain.ErrDocumentNotFound):
		return apperrors.NewNotFoundError("document")
	}
	return apperrors.WrapError(err, apperrors.ErrCodeInternal, "internal error", http.StatusInternalServerError)
}
