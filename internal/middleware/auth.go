package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"kolink-server/internal/models"
)

// Ключи контекста Echo, заполняемые после успешной аутентификации.
const (
	ContextKeyUserID = "user_id"
	ContextKeyPlan   = "plan"
)

// JWTAuthMiddleware создает middleware для проверки JWT access токена.
// Проверяет подпись, срок действия и извлекает user_id.
// Не проверяет отзыв токена (это ответственность auth-сервиса).
func JWTAuthMiddleware(secretKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header missing")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims := &models.Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				// Проверяем метод подписи
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secretKey), nil
			})

			if err != nil {
				c.Logger().Errorf("JWT parsing/validation error: %v", err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
				} else if errors.Is(err, jwt.ErrTokenMalformed) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token is malformed")
				} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Token signature is invalid")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("Token validation failed: %v", err))
			}

			if !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid")
			}
			if claims.UserID == uuid.Nil {
				c.Logger().Error("UserID missing in JWT claims")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: UserID missing")
			}

			// Сохраняем данные пользователя в контексте Echo
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyPlan, claims.Plan)

			return next(c)
		}
	}
}

// UserIDFromContext извлекает аутентифицированный userID из контекста Echo.
func UserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(ContextKeyUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, models.ErrUnauthorized
	}
	return userID, nil
}

// GenerateTestJWT создает тестовый JWT токен.
// ВАЖНО: Эта функция предназначена ТОЛЬКО для использования в тестах.
func GenerateTestJWT(userID uuid.UUID, secretKey string, validityDuration time.Duration) (string, error) {
	expirationTime := time.Now().Add(validityDuration)
	claims := &models.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign test JWT: %w", err)
	}
	return tokenString, nil
}
