package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/mallid/internal/queue"
	"github.com/your-org/mallid/pkg/dto"
)

// RunHandler enqueues batch runs; the engine process picks them up off
// the RUNS stream and reports progress/completion back over NATS.
type RunHandler struct {
	producer *queue.Producer
}

func NewRunHandler(producer *queue.Producer) *RunHandler {
	return &RunHandler{producer: producer}
}

func (h *RunHandler) Trigger(c *gin.Context) {
	var req dto.TriggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.From.Before(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	runID := uuid.New().String()
	trigger := queue.RunTrigger{
		RunID:       runID,
		MallID:      req.MallID,
		From:        req.From,
		To:          req.To,
		JourneyDate: req.JourneyDate,
	}

	if err := h.producer.PublishRunTrigger(c.Request.Context(), trigger); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.TriggerRunResponse{
		RunID:  runID,
		MallID: req.MallID,
		Status: "queued",
	})
}

func (h *RunHandler) QueueDepth(c *gin.Context) {
	depth, err := h.producer.QueueDepth(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue_depth": depth})
}
