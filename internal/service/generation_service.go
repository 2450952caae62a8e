package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
	"kolink-server/internal/resolver"
)

// GenerationService - интерактивная генерация одного черновика по запросу
// пользователя, вне AutoPilot. Та же цепочка резолв → резерв → генерация,
// но синхронная и на один пост.
type GenerationService interface {
	// Generate резолвит random-поля, резервирует один кредит и
	// генерирует черновик. Кредит не возвращается при неудачной
	// генерации (политика "плати за попытку").
	Generate(ctx context.Context, userID uuid.UUID, params models.GenerationParams) (*models.Draft, error)

	// LatestSince возвращает свежайший черновик после заданного момента.
	// Клиент вызывает это после обрыва соединения, чтобы понять, успела
	// ли завершиться прерванная генерация. models.ErrNotFound - не успела.
	LatestSince(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Draft, error)
}

// Compile-time check
var _ GenerationService = (*generationService)(nil)

type generationService struct {
	db        interfaces.DBTX
	resolver  *resolver.Resolver
	ledger    CreditLedger
	generator interfaces.GenerationClient
	drafts    interfaces.DraftRepository
	logger    *zap.Logger
}

// NewGenerationService создает сервис интерактивной генерации.
func NewGenerationService(
	db interfaces.DBTX,
	res *resolver.Resolver,
	ledger CreditLedger,
	generator interfaces.GenerationClient,
	drafts interfaces.DraftRepository,
	logger *zap.Logger,
) GenerationService {
	return &generationService{
		db:        db,
		resolver:  res,
		ledger:    ledger,
		generator: generator,
		drafts:    drafts,
		logger:    logger.Named("GenerationService"),
	}
}

func (s *generationService) Generate(ctx context.Context, userID uuid.UUID, params models.GenerationParams) (*models.Draft, error) {
	logFields := []zap.Field{zap.String("userID", userID.String())}

	resolved, err := s.resolver.Resolve(params)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.Reserve(ctx, userID, 1)
	if err != nil {
		s.logger.Warn("Interactive generation rejected by ledger", append(logFields, zap.Error(err))...)
		return nil, err
	}

	content, err := s.generator.Generate(ctx, resolved)
	if err != nil {
		s.logger.Error("Interactive generation failed",
			append(logFields, zap.String("receiptID", receipt.ID.String()), zap.Error(err))...)
		return nil, models.ErrGenerationFailed
	}

	draft := &models.Draft{
		ID:          uuid.New(),
		UserID:      userID,
		Content:     content,
		Params:      resolved,
		IsAutoPilot: false,
	}
	if err := s.drafts.Save(ctx, s.db, draft); err != nil {
		return nil, err
	}

	s.logger.Info("Interactive draft generated",
		append(logFields, zap.String("draftID", draft.ID.String()))...)
	return draft, nil
}

func (s *generationService) LatestSince(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Draft, error) {
	return s.drafts.LatestSince(ctx, userID, since)
}
