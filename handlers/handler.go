// Package handlers exposes the account, goal, chat and snapshot services
// over HTTP.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"fintrack/api/logger"
	"fintrack/api/middleware"
	"fintrack/api/models"
	"fintrack/api/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	accounts  *services.AccountService
	goals     *services.GoalService
	chat      *services.ChatService
	snapshots *services.SnapshotService
}

func NewHandler(accounts *services.AccountService, goals *services.GoalService, chat *services.ChatService, snapshots *services.SnapshotService) *Handler {
	registerValidators()
	return &Handler{accounts: accounts, goals: goals, chat: chat, snapshots: snapshots}
}

// RegisterRoutes mounts every endpoint on api. gate protects everything
// except registration and login.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, gate gin.HandlerFunc) {
	api.POST("/auth/register", h.HandleRegister)
	api.POST("/auth/login", h.HandleLogin)

	protected := api.Group("")
	protected.Use(gate)
	{
		protected.PUT("/onboarding/complete", h.HandleCompleteOnboarding)
		protected.GET("/users/me", h.HandleGetProfile)
		protected.PUT("/users/financial-info", h.HandleUpdateFinancialInfo)

		protected.POST("/chat", h.HandlePostMessage)
		protected.GET("/chat", h.HandleGetChatHistory)
		protected.DELETE("/chat", h.HandleClearChatHistory)

		protected.POST("/goals", h.HandleCreateGoal)
		protected.GET("/goals", h.HandleListGoals)
		protected.GET("/goals/:id", h.HandleGetGoal)
		protected.PUT("/goals/:id", h.HandleUpdateGoal)
		protected.DELETE("/goals/:id", h.HandleDeleteGoal)
		protected.POST("/goals/:id/strategy", h.HandleRegenerateStrategy)

		protected.POST("/financial-snapshot", h.HandleCreateSnapshot)
		protected.GET("/financial-snapshot", h.HandleGetSnapshot)
	}
}

func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var validatorsOnce sync.Once

// registerValidators adds the enum checks used in request binding tags.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("goaltype", func(fl validator.FieldLevel) bool {
			return models.GoalType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("risktolerance", func(fl validator.FieldLevel) bool {
			return models.RiskTolerance(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("financialgoal", func(fl validator.FieldLevel) bool {
			return models.FinancialGoal(fl.Field().String()).Valid()
		})
	})
}

// bindJSON decodes the body into req and answers 400 on failure. Failed enum
// checks keep the code the service would have used.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "goaltype":
				respondError(c, services.ErrInvalidGoalType)
				return false
			case "risktolerance", "financialgoal":
				respondError(c, &services.Error{
					Kind:    services.KindValidation,
					Code:    services.ErrInvalidProfile.Code,
					Message: fmt.Sprintf("%s: unsupported value %q", fe.Field(), fe.Value()),
				})
				return false
			}
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
		respondError(c, &services.Error{
			Kind:    services.KindValidation,
			Code:    services.ErrInvalidRequest.Code,
			Message: "Invalid request: " + strings.Join(fields, ", "),
		})
		return false
	}

	respondError(c, &services.Error{
		Kind:    services.KindValidation,
		Code:    services.ErrInvalidRequest.Code,
		Message: "Invalid request body",
	})
	return false
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {error, message} body for service errors and a
// generic 500 for anything else.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		body := gin.H{"error": svcErr.Code, "message": svcErr.Message}
		if svcErr.Retryable() {
			body["retryable"] = true
		}
		c.JSON(statusFor(svcErr.Kind), body)
		return
	}

	logger.Get().Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "Internal server error"})
}

// currentUserID reads the identity set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	identity, ok := middleware.ClaimsFromContext(c)
	if !ok {
		logger.Get().Error("user not authenticated")
		respondError(c, services.ErrMissingToken)
		return "", false
	}
	return identity.UserID, true
}
