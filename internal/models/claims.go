package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims - полезная нагрузка JWT, выданного внешним auth-сервисом.
// Сервис только проверяет подпись и извлекает UserID; выпуск токенов
// остается за пределами этого модуля.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Plan   string    `json:"plan,omitempty"`
	jwt.RegisteredClaims
}
