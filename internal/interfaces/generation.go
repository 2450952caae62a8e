package interfaces

import (
	"context"

	"kolink-server/internal/models"
)

// GenerationClient - внешний коллаборатор, превращающий зарезолвленные
// параметры в текст поста. Вызов может быть медленным и может падать;
// внутри одного запуска он не ретраится.
//
//go:generate mockery --name GenerationClient --output ../mocks --outpkg mocks --case=underscore
type GenerationClient interface {
	// Generate produces one draft's content for fully resolved params.
	// params must not contain the random sentinel in any field.
	Generate(ctx context.Context, params models.GenerationParams) (string, error)
}
