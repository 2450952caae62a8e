package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"kolink-server/internal/interfaces"
	"kolink-server/internal/models"
)

// ErrInvalidCursor возвращается, когда курсор пагинации не декодируется.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Compile-time check
var _ interfaces.RunHistoryRepository = (*pgRunHistoryRepository)(nil)

type pgRunHistoryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgRunHistoryRepository создает append-only репозиторий журнала запусков.
func NewPgRunHistoryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.RunHistoryRepository {
	return &pgRunHistoryRepository{
		db:     db,
		logger: logger.Named("PgRunHistoryRepo"),
	}
}

const runRecordColumns = `
    id, user_id, trigger_kind, scheduled_for, outcome, params, draft_ids,
    credits_reserved, receipt_id, error_details, created_at`

func scanRunRecord(row pgx.Row) (*models.RunRecord, error) {
	run := &models.RunRecord{}
	var paramsJSON, draftIDsJSON []byte
	err := row.Scan(
		&run.ID, &run.UserID, &run.Trigger, &run.ScheduledFor, &run.Outcome,
		&paramsJSON, &draftIDsJSON,
		&run.CreditsReserved, &run.ReceiptID, &run.ErrorDetails, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &run.Params); err != nil {
		return nil, fmt.Errorf("ошибка декодирования params: %w", err)
	}
	if err := json.Unmarshal(draftIDsJSON, &run.DraftIDs); err != nil {
		return nil, fmt.Errorf("ошибка декодирования draft_ids: %w", err)
	}
	return run, nil
}

// Record добавляет завершенный запуск в журнал. Записи неизменяемы:
// никаких UPDATE по этой таблице нет нигде в коде.
func (r *pgRunHistoryRepository) Record(ctx context.Context, querier interfaces.DBTX, run *models.RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Params == nil {
		run.Params = []models.GenerationParams{}
	}
	if run.DraftIDs == nil {
		run.DraftIDs = []uuid.UUID{}
	}

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("ошибка кодирования params: %w", err)
	}
	draftIDsJSON, err := json.Marshal(run.DraftIDs)
	if err != nil {
		return fmt.Errorf("ошибка кодирования draft_ids: %w", err)
	}

	query := `
        INSERT INTO run_records
            (id, user_id, trigger_kind, scheduled_for, outcome, params, draft_ids,
             credits_reserved, receipt_id, error_details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	logFields := []zap.Field{
		zap.String("runID", run.ID.String()),
		zap.String("userID", run.UserID.String()),
		zap.String("outcome", string(run.Outcome)),
	}
	r.logger.Debug("Recording autopilot run", logFields...)

	_, err = querier.Exec(ctx, query,
		run.ID, run.UserID, run.Trigger, run.ScheduledFor, run.Outcome,
		paramsJSON, draftIDsJSON,
		run.CreditsReserved, run.ReceiptID, run.ErrorDetails, run.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record autopilot run", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка записи запуска в журнал: %w", err)
	}
	r.logger.Info("Autopilot run recorded", logFields...)
	return nil
}

// Latest возвращает самый свежий запуск пользователя, включая partial и failed.
func (r *pgRunHistoryRepository) Latest(ctx context.Context, userID uuid.UUID) (*models.RunRecord, error) {
	query := `SELECT` + runRecordColumns + `
        FROM run_records
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1`
	logFields := []zap.Field{zap.String("userID", userID.String())}
	r.logger.Debug("Getting latest run", logFields...)

	run, err := scanRunRecord(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get latest run", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения последнего запуска: %w", err)
	}
	return run, nil
}

const runCursorSeparator = "_"

// encodeRunCursor создает строку курсора из времени и UUID записи.
func encodeRunCursor(t time.Time, id uuid.UUID) string {
	key := fmt.Sprintf("%d%s%s", t.UnixNano(), runCursorSeparator, id.String())
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// decodeRunCursor разбирает строку курсора на время и UUID.
func decodeRunCursor(cursor string) (time.Time, uuid.UUID, error) {
	if cursor == "" {
		return time.Time{}, uuid.Nil, nil // Нет курсора - нет ошибки
	}
	decodedBytes, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("некорректный формат курсора (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), runCursorSeparator, 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("некорректный формат курсора (separator)")
	}

	timestampNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("некорректный формат курсора (timestamp): %w", err)
	}
	t := time.Unix(0, timestampNano).UTC() // Важно использовать UTC

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("некорректный формат курсора (uuid): %w", err)
	}
	return t, id, nil
}

// List возвращает страницу запусков от новых к старым. Keyset-пагинация по
// (created_at, id): курсор остается стабильным при конкурентных вставках.
func (r *pgRunHistoryRepository) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]*models.RunRecord, string, error) {
	if limit <= 0 {
		limit = 10 // Значение по умолчанию
	}
	// +1 для проверки наличия следующей страницы
	fetchLimit := limit + 1

	cursorTime, cursorID, err := decodeRunCursor(cursor)
	if err != nil {
		r.logger.Warn("Failed to decode run cursor",
			zap.String("userID", userID.String()), zap.String("cursor", cursor), zap.Error(err))
		return nil, "", ErrInvalidCursor
	}

	var queryBuilder strings.Builder
	args := []interface{}{userID}
	paramIndex := 2 // Начинаем с $2

	queryBuilder.WriteString(`SELECT` + runRecordColumns + `
        FROM run_records
        WHERE user_id = $1`)

	if !cursorTime.IsZero() {
		queryBuilder.WriteString(fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", paramIndex, paramIndex+1))
		args = append(args, cursorTime, cursorID)
		paramIndex += 2
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", paramIndex))
	args = append(args, fetchLimit)

	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.Int("limit", limit),
		zap.String("cursor", cursor),
	}
	r.logger.Debug("Listing run history", logFields...)

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		r.logger.Error("Failed to query run history", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("ошибка получения журнала запусков: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.RunRecord, 0, limit)
	for rows.Next() {
		run, err := scanRunRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan run record row", append(logFields, zap.Error(err))...)
			return nil, "", fmt.Errorf("ошибка чтения записи журнала: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating run record rows", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("ошибка после чтения журнала: %w", err)
	}

	var nextCursor string
	if len(runs) > limit {
		// Есть следующая страница, формируем курсор из последнего *возвращаемого* элемента
		last := runs[limit-1]
		nextCursor = encodeRunCursor(last.CreatedAt, last.ID)
		runs = runs[:limit]
	}

	r.logger.Debug("Run history listed", append(logFields, zap.Int("count", len(runs)))...)
	return runs, nextCursor, nil
}

// ExistsForWindow проверяет, записан ли уже scheduled-запуск для данного
// due-окна. Страховка от двойного тика планировщика.
func (r *pgRunHistoryRepository) ExistsForWindow(ctx context.Context, userID uuid.UUID, windowStart time.Time) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM run_records
            WHERE user_id = $1 AND trigger_kind = $2 AND scheduled_for = $3
        )`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, models.RunTriggerScheduled, windowStart).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check run window",
			zap.String("userID", userID.String()), zap.Time("windowStart", windowStart), zap.Error(err))
		return false, fmt.Errorf("ошибка проверки окна запуска: %w", err)
	}
	return exists, nil
}
