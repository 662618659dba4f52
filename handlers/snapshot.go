package handlers

import (
	"net/http"

	"fintrack/api/services"

	"github.com/gin-gonic/gin"
)

type snapshotRequest struct {
	Income      float64            `json:"income"`
	Expenses    map[string]float64 `json:"expenses"`
	Savings     float64            `json:"savings"`
	Investments map[string]float64 `json:"investments"`
}

func (h *Handler) HandleCreateSnapshot(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req snapshotRequest
	if !bindJSON(c, &req) {
		return
	}

	snapshot, err := h.snapshots.CreateSnapshot(c.Request.Context(), userID, services.SnapshotInput{
		Income:      req.Income,
		Expenses:    req.Expenses,
		Savings:     req.Savings,
		Investments: req.Investments,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

func (h *Handler) HandleGetSnapshot(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	snapshot, err := h.snapshots.LatestSnapshot(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snapshot, "summary": snapshot.Summary()})
}
