package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kolink-server/internal/middleware"
)

// defaultRecoveryWindow ограничивает, насколько старый черновик считается
// результатом прерванной генерации.
const defaultRecoveryWindow = 24 * time.Hour

// getCredits возвращает баланс кредитов для отображения.
func (h *APIHandler) getCredits(c echo.Context) error {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	balance, err := h.ledger.Balance(c.Request().Context(), userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{
		Current:    balance.Current,
		MaxCredits: balance.MaxCredits,
		Frozen:     balance.Frozen,
	})
}

// generateDraft - интерактивная генерация одного черновика.
func (h *APIHandler) generateDraft(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "generateDraft"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to bind request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	}

	draft, err := h.generation.Generate(c.Request().Context(), userID, req.toParams())
	if err != nil {
		return h.handleServiceError(c, err)
	}

	log.Info("Draft generated", zap.Stringer("userID", userID), zap.Stringer("draftID", draft.ID))
	return c.JSON(http.StatusOK, toDraftResponse(draft))
}

// latestGeneration - восстановление после обрыва: самый свежий черновик
// за окно recovery. since задается RFC3339-параметром, по умолчанию сутки.
func (h *APIHandler) latestGeneration(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "latestGeneration"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	since := time.Now().UTC().Add(-defaultRecoveryWindow)
	if sinceStr := c.QueryParam("since"); sinceStr != "" {
		parsed, parseErr := time.Parse(time.RFC3339, sinceStr)
		if parseErr != nil {
			log.Warn("Invalid since parameter", zap.String("since", sinceStr), zap.Error(parseErr))
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'since' timestamp, expected RFC3339"})
		}
		since = parsed
	}

	draft, err := h.generation.LatestSince(c.Request().Context(), userID, since)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toDraftResponse(draft))
}
