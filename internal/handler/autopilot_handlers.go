package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kolink-server/internal/middleware"
	"kolink-server/internal/models"
	"kolink-server/internal/service"
)

func configUpdateFromRequest(req AutoPilotConfigRequest) service.ConfigUpdate {
	return service.ConfigUpdate{
		Frequency:      models.Frequency(req.Frequency),
		Topics:         req.Topics,
		TargetAudience: req.TargetAudience,
		Tone:           models.Tone(req.Tone),
		PostCount:      req.PostCount,
	}
}

// getAutoPilotConfig возвращает текущую конфигурацию AutoPilot пользователя.
func (h *APIHandler) getAutoPilotConfig(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	cfg, err := h.scheduler.GetConfig(c.Request().Context(), userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConfigResponse(cfg))
}

// activateAutoPilot валидирует и включает AutoPilot.
func (h *APIHandler) activateAutoPilot(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "activateAutoPilot"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	var req AutoPilotConfigRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to bind request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	}

	cfg, err := h.scheduler.Activate(c.Request().Context(), userID, configUpdateFromRequest(req))
	if err != nil {
		return h.handleServiceError(c, err)
	}

	log.Info("AutoPilot activated", zap.Stringer("userID", userID))
	return c.JSON(http.StatusOK, toConfigResponse(cfg))
}

// updateAutoPilotConfig меняет поля конфигурации через планировщик.
func (h *APIHandler) updateAutoPilotConfig(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "updateAutoPilotConfig"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	var req AutoPilotConfigRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to bind request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	}

	cfg, err := h.scheduler.UpdateConfig(c.Request().Context(), userID, configUpdateFromRequest(req))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConfigResponse(cfg))
}

// deactivateAutoPilot выключает AutoPilot с сохранением конфигурации.
func (h *APIHandler) deactivateAutoPilot(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	cfg, err := h.scheduler.Deactivate(c.Request().Context(), userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConfigResponse(cfg))
}

// forceRun запускает немедленный ручной батч.
func (h *APIHandler) forceRun(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "forceRun"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	run, err := h.scheduler.ForceRun(c.Request().Context(), userID)
	if err != nil {
		// Запись о неудавшемся запуске в ответе полезна клиенту:
		// она же лежит в журнале.
		if run != nil {
			log.Warn("Manual run failed", zap.Stringer("userID", userID), zap.Error(err))
		}
		return h.handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, toRunResponse(run))
}

// listRuns возвращает страницу журнала запусков (новые первыми).
func (h *APIHandler) listRuns(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "listRuns"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	cursor := c.QueryParam("cursor")
	limit := 20 // Значение по умолчанию
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, parseErr := strconv.Atoi(limitStr); parseErr == nil && l > 0 {
			limit = l
		} else {
			log.Warn("Invalid limit parameter received, using default", zap.String("limit", limitStr))
		}
	}

	runs, nextCursor, err := h.history.List(c.Request().Context(), userID, cursor, limit)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	data := make([]RunRecordResponse, 0, len(runs))
	for _, run := range runs {
		data = append(data, toRunResponse(run))
	}
	return c.JSON(http.StatusOK, PaginatedResponse{Data: data, NextCursor: nextCursor})
}
