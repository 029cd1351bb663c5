package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/storage"
	"github.com/your-org/mallid/pkg/dto"
)

// AssociationHandler backs the read-only association audit endpoint:
// every scored link the engine produced, including ambiguous and
// new-visitor decisions, filterable by mall and decision.
type AssociationHandler struct {
	repo *storage.AssociationRepo
}

func NewAssociationHandler(repo *storage.AssociationRepo) *AssociationHandler {
	return &AssociationHandler{repo: repo}
}

func (h *AssociationHandler) List(c *gin.Context) {
	mallID := c.Query("mall_id")
	if mallID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mall_id required"})
		return
	}

	var decision *models.Decision
	if d := c.Query("decision"); d != "" {
		dv := models.Decision(d)
		decision = &dv
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	assocs, err := h.repo.List(c.Request.Context(), mallID, decision, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AssociationResponse, 0, len(assocs))
	for _, a := range assocs {
		resp = append(resp, dto.FromAssociation(a))
	}

	c.JSON(http.StatusOK, dto.AssociationListResponse{Associations: resp, Total: len(resp)})
}
