package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/mallid/internal/storage"
	"github.com/your-org/mallid/pkg/dto"
)

// JourneyHandler backs the read-only journey reporting endpoint.
type JourneyHandler struct {
	repo *storage.JourneyRepo
}

func NewJourneyHandler(repo *storage.JourneyRepo) *JourneyHandler {
	return &JourneyHandler{repo: repo}
}

func (h *JourneyHandler) List(c *gin.Context) {
	mallID := c.Query("mall_id")
	if mallID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mall_id required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	journeys, err := h.repo.List(c.Request.Context(), mallID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.JourneyResponse, 0, len(journeys))
	for _, j := range journeys {
		resp = append(resp, dto.FromJourney(j))
	}

	c.JSON(http.StatusOK, dto.JourneyListResponse{Journeys: resp, Total: len(resp)})
}
