package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/middleware"
	"kolink-server/internal/models"
	"kolink-server/internal/repository"
	"kolink-server/internal/service"
)

// APIHandler обрабатывает HTTP запросы пользовательского API.
type APIHandler struct {
	scheduler  service.Scheduler
	ledger     service.CreditLedger
	generation service.GenerationService
	history    interfaces.RunHistoryRepository
	logger     *zap.Logger
	jwtSecret  string
}

// NewAPIHandler создает новый APIHandler.
func NewAPIHandler(
	scheduler service.Scheduler,
	ledger service.CreditLedger,
	generation service.GenerationService,
	history interfaces.RunHistoryRepository,
	logger *zap.Logger,
	jwtSecret string,
) *APIHandler {
	return &APIHandler{
		scheduler:  scheduler,
		ledger:     ledger,
		generation: generation,
		history:    history,
		logger:     logger.Named("APIHandler"),
		jwtSecret:  jwtSecret,
	}
}

// RegisterRoutes регистрирует маршруты API.
func (h *APIHandler) RegisterRoutes(e *echo.Echo) {
	authMiddleware := middleware.JWTAuthMiddleware(h.jwtSecret)

	api := e.Group("/api", authMiddleware)
	{
		autopilot := api.Group("/autopilot")
		{
			autopilot.GET("", h.getAutoPilotConfig)
			autopilot.POST("/activate", h.activateAutoPilot)
			autopilot.PUT("", h.updateAutoPilotConfig)
			autopilot.POST("/deactivate", h.deactivateAutoPilot)
			autopilot.POST("/run", h.forceRun)
			autopilot.GET("/runs", h.listRuns)
		}

		api.GET("/credits", h.getCredits)
		api.POST("/credits/grant", h.grantCredits)
		api.POST("/credits/frozen", h.setFrozen)
		api.POST("/generate", h.generateDraft)
		api.GET("/generation/latest", h.latestGeneration)
	}
}

// handleServiceError переводит доменные ошибки в HTTP статусы.
func (h *APIHandler) handleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrEmptyResolutionSet),
		errors.Is(err, repository.ErrInvalidCursor):
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
	case errors.Is(err, models.ErrAccountFrozen):
		return c.JSON(http.StatusForbidden, APIError{Message: "Account is frozen until the end of the billing period"})
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, APIError{Message: "Not found"})
	case errors.Is(err, models.ErrRunInProgress):
		return c.JSON(http.StatusConflict, APIError{Message: "A run is already in progress"})
	case errors.Is(err, models.ErrInsufficientCredits):
		return c.JSON(http.StatusPaymentRequired, APIError{Message: "Insufficient credits"})
	case errors.Is(err, models.ErrGenerationFailed):
		return c.JSON(http.StatusBadGateway, APIError{Message: "Generation failed, the credit was spent"})
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, APIError{Message: "Internal server error"})
	}
}
