package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/common"
)

const maxIdempotencyKeyLen = 128

func (h *Handler) SendChatMessageAsync(c *gin.Context) {
	req, ok := bindChatReq(c)
	if !ok {
		return
	}

	// read idempotency key
	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > maxIdempotencyKeyLen {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}

	job, err := h.ChatSvc.EnqueueJob(c.Request.Context(), req.toRequest(userIDFromContext(c)), idempoKey)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":     job.ID,
		"sessionId": job.SessionID,
		"status":    job.Status,
	})
}

func (h *Handler) GetChatJob(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobId"))
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "jobId required")
		return
	}

	j, err := h.ChatSvc.GetJob(c.Request.Context(), jobID, userIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	common.OK(c, gin.H{
		"jobId":            j.ID,
		"sessionId":        j.SessionID,
		"status":           j.Status,
		"response":         j.Response,
		"detectedLanguage": j.DetectedLanguage,
		"provider":         j.Provider,
		"error":            j.Error,
		"createdAt":        j.CreatedAt,
		"updatedAt":        j.UpdatedAt,
	})
}
