package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
)

// Compile-time check
var _ interfaces.DraftRepository = (*pgDraftRepository)(nil)

type pgDraftRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgDraftRepository создает репозиторий сгенерированных черновиков.
func NewPgDraftRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.DraftRepository {
	return &pgDraftRepository{
		db:     db,
		logger: logger.Named("PgDraftRepo"),
	}
}

// Save сохраняет сгенерированный черновик.
func (r *pgDraftRepository) Save(ctx context.Context, querier interfaces.DBTX, draft *models.Draft) error {
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}

	paramsJSON, err := json.Marshal(draft.Params)
	if err != nil {
		return fmt.Errorf("ошибка кодирования params черновика: %w", err)
	}

	query := `
        INSERT INTO drafts (id, user_id, content, params, is_auto_pilot, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	logFields := []zap.Field{
		zap.String("draftID", draft.ID.String()),
		zap.String("userID", draft.UserID.String()),
		zap.Bool("isAutoPilot", draft.IsAutoPilot),
	}
	r.logger.Debug("Saving draft", logFields...)

	_, err = querier.Exec(ctx, query,
		draft.ID, draft.UserID, draft.Content, paramsJSON, draft.IsAutoPilot, draft.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save draft", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка сохранения черновика: %w", err)
	}
	r.logger.Info("Draft saved", logFields...)
	return nil
}

// LatestSince возвращает самый свежий черновик, созданный после заданного
// момента. Используется для восстановления прерванной генерации.
func (r *pgDraftRepository) LatestSince(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Draft, error) {
	query := `
        SELECT id, user_id, content, params, is_auto_pilot, created_at
        FROM drafts
        WHERE user_id = $1 AND created_at > $2
        ORDER BY created_at DESC
        LIMIT 1`
	logFields := []zap.Field{zap.String("userID", userID.String()), zap.Time("since", since)}
	r.logger.Debug("Getting latest draft since", logFields...)

	draft := &models.Draft{}
	var paramsJSON []byte
	err := r.db.QueryRow(ctx, query, userID, since).Scan(
		&draft.ID, &draft.UserID, &draft.Content, &paramsJSON, &draft.IsAutoPilot, &draft.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get latest draft", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения последнего черновика: %w", err)
	}
	if err := json.Unmarshal(paramsJSON, &draft.Params); err != nil {
		return nil, fmt.Errorf("ошибка декодирования params черновика: %w", err)
	}
	return draft, nil
}
