package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kolink-server/internal/middleware"
)

// grantCredits - начисление кредитов. Вызывается подписочным
// коллаборатором при рефилле плана от имени пользователя.
func (h *APIHandler) grantCredits(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "grantCredits"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	var req GrantCreditsRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to bind request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	}

	ctx := c.Request().Context()
	if err := h.ledger.Grant(ctx, userID, req.Amount, req.MaxCredits); err != nil {
		return h.handleServiceError(c, err)
	}

	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	log.Info("Credits granted", zap.Stringer("userID", userID), zap.Int("amount", req.Amount))
	return c.JSON(http.StatusOK, BalanceResponse{
		Current:    balance.Current,
		MaxCredits: balance.MaxCredits,
		Frozen:     balance.Frozen,
	})
}

// setFrozen переключает заморозку баланса (отмена подписки до конца
// оплаченного периода и обратная реактивация).
func (h *APIHandler) setFrozen(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "setFrozen"))

	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	var req SetFrozenRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to bind request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: err.Error()})
	}

	ctx := c.Request().Context()
	if err := h.ledger.SetFrozen(ctx, userID, *req.Frozen); err != nil {
		return h.handleServiceError(c, err)
	}

	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	log.Info("Frozen flag updated", zap.Stringer("userID", userID), zap.Bool("frozen", *req.Frozen))
	return c.JSON(http.StatusOK, BalanceResponse{
		Current:    balance.Current,
		MaxCredits: balance.MaxCredits,
		Frozen:     balance.Frozen,
	})
}
