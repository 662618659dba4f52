package handlers

import (
	"net/http"

	"fintrack/api/models"
	"fintrack/api/services"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	AnnualIncome    float64                `json:"annualIncome"`
	MonthlyExpenses map[string]float64     `json:"monthlyExpenses"`
	CurrentSavings  float64                `json:"currentSavings"`
	FinancialGoals  []models.FinancialGoal `json:"financialGoals" binding:"dive,financialgoal"`
	RiskTolerance   models.RiskTolerance   `json:"riskTolerance" binding:"omitempty,risktolerance"`
}

func (r profileRequest) profile() models.FinancialProfile {
	return models.FinancialProfile{
		AnnualIncome:    r.AnnualIncome,
		MonthlyExpenses: r.MonthlyExpenses,
		CurrentSavings:  r.CurrentSavings,
		FinancialGoals:  r.FinancialGoals,
		RiskTolerance:   r.RiskTolerance,
	}
}

func (h *Handler) HandleRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": res.User, "token": res.Token})
}

func (h *Handler) HandleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": res.User, "token": res.Token})
}

func (h *Handler) HandleCompleteOnboarding(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.CompleteOnboarding(c.Request.Context(), userID, req.profile())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Onboarding completed successfully", "user": user})
}

func (h *Handler) HandleGetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.accounts.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) HandleUpdateFinancialInfo(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.UpdateFinancialInfo(c.Request.Context(), userID, req.profile())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
