package handlers

import (
	"net/http"

	"fintrack/api/models"
	"fintrack/api/services"

	"github.com/gin-gonic/gin"
)

type createGoalRequest struct {
	Type          models.GoalType `json:"type" binding:"required,goaltype"`
	TargetAmount  float64         `json:"targetAmount"`
	CurrentAmount float64         `json:"currentAmount"`
	TargetDate    string          `json:"targetDate"`
}

type updateGoalRequest struct {
	Type          *models.GoalType `json:"type" binding:"omitempty,goaltype"`
	TargetAmount  *float64         `json:"targetAmount"`
	CurrentAmount *float64         `json:"currentAmount"`
	TargetDate    *string          `json:"targetDate"`
	Strategy      *string          `json:"strategy"`
}

func (h *Handler) HandleCreateGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createGoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.goals.CreateGoal(c.Request.Context(), userID, services.CreateGoalInput{
		Type:          req.Type,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    req.TargetDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (h *Handler) HandleListGoals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	goals, err := h.goals.ListGoals(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (h *Handler) HandleGetGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	goal, err := h.goals.GetGoal(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *Handler) HandleUpdateGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req updateGoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.goals.UpdateGoal(c.Request.Context(), userID, c.Param("id"), services.UpdateGoalInput{
		Type:          req.Type,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    req.TargetDate,
		Strategy:      req.Strategy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *Handler) HandleDeleteGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.goals.DeleteGoal(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

func (h *Handler) HandleRegenerateStrategy(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	goal, err := h.goals.RegenerateStrategy(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}
