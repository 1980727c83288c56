package database

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/models"
)

// Compile-time check to ensure PgGenerationRepository implements GenerationStore
var _ interfaces.GenerationStore = (*PgGenerationRepository)(nil)

const generationColumns = `id::text AS id, telegram_user_id, prompt, status, image_url, error_message, created_at, completed_at`

const (
	createGenerationQuery = `
		INSERT INTO image_generations (id, telegram_user_id, prompt, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING ` + generationColumns

	// Смена статуса разрешена только из pending (или на тот же статус).
	updateGenerationQuery = `
		UPDATE image_generations SET
			status = COALESCE($2, status),
			image_url = COALESCE($3, image_url),
			error_message = COALESCE($4, error_message),
			completed_at = COALESCE($5, completed_at)
		WHERE id = $1 AND ($2::text IS NULL OR status = 'pending' OR status = $2::text)`

	generationExistsQuery = `SELECT EXISTS (SELECT 1 FROM image_generations WHERE id = $1)`

	getGenerationQuery = `SELECT ` + generationColumns + ` FROM image_generations WHERE id = $1`

	findLatestGenerationQuery = `
		SELECT ` + generationColumns + ` FROM image_generations
		WHERE telegram_user_id = $1 AND prompt = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`

	listRecentGenerationsQuery = `
		SELECT ` + generationColumns + ` FROM image_generations
		ORDER BY created_at DESC, seq DESC
		LIMIT $1`

	computeStatsQuery = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS successful,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(DISTINCT telegram_user_id) AS unique_users,
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - created_at)))
				FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL), 0)::float8 AS avg_seconds
		FROM image_generations`
)

type statsRow struct {
	Total       int     `db:"total"`
	Successful  int     `db:"successful"`
	Failed      int     `db:"failed"`
	UniqueUsers int     `db:"unique_users"`
	AvgSeconds  float64 `db:"avg_seconds"`
}

// PgGenerationRepository хранит записи генераций в PostgreSQL.
type PgGenerationRepository struct {
	db     DBTX
	now    func() time.Time
	logger *zap.Logger
}

// NewPgGenerationRepository creates a new PostgreSQL-backed GenerationStore.
func NewPgGenerationRepository(db DBTX, logger *zap.Logger) *PgGenerationRepository {
	return &PgGenerationRepository{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.Named("PgGenerationRepo"),
	}
}

func (r *PgGenerationRepository) CreateGeneration(ctx context.Context, requesterID, prompt string) (*models.GenerationRecord, error) {
	id := uuid.New()
	// Postgres хранит микросекунды
	createdAt := r.now().Truncate(time.Microsecond)

	record := &models.GenerationRecord{}
	if err := pgxscan.Get(ctx, r.db, record, createGenerationQuery, id, requesterID, prompt, createdAt); err != nil {
		r.logger.Error("Failed to create generation", zap.String("requester_id", requesterID), zap.Error(err))
		return nil, fmt.Errorf("failed to create generation: %w", err)
	}
	r.logger.Debug("Generation created", zap.String("id", record.ID), zap.String("requester_id", requesterID))
	return record, nil
}

func (r *PgGenerationRepository) UpdateGeneration(ctx context.Context, id string, update models.GenerationUpdate) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		r.logger.Debug("Ignoring update for malformed id", zap.String("id", id))
		return nil
	}

	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	tag, err := r.db.Exec(ctx, updateGenerationQuery, uid, status, update.ImageLocation, update.ErrorDetail, update.CompletedAt)
	if err != nil {
		r.logger.Error("Failed to update generation", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update generation %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, generationExistsQuery, uid).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check generation %s: %w", id, err)
	}
	if !exists {
		r.logger.Debug("Ignoring update for unknown generation", zap.String("id", id))
		return nil
	}
	r.logger.Warn("Rejected status change of terminal generation", zap.String("id", id))
	return models.ErrInvalidStatusTransition
}

func (r *PgGenerationRepository) GetGeneration(ctx context.Context, id string) (*models.GenerationRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return r.getOne(ctx, getGenerationQuery, uid)
}

func (r *PgGenerationRepository) FindLatestByRequesterAndPrompt(ctx context.Context, requesterID, prompt string) (*models.GenerationRecord, error) {
	return r.getOne(ctx, findLatestGenerationQuery, requesterID, prompt)
}

func (r *PgGenerationRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.GenerationRecord, error) {
	record := &models.GenerationRecord{}
	if err := pgxscan.Get(ctx, r.db, record, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get generation", zap.Error(err))
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return record, nil
}

func (r *PgGenerationRepository) ListRecent(ctx context.Context, limit int) ([]*models.GenerationRecord, error) {
	records := make([]*models.GenerationRecord, 0)
	if limit <= 0 {
		return records, nil
	}
	if err := pgxscan.Select(ctx, r.db, &records, listRecentGenerationsQuery, limit); err != nil {
		r.logger.Error("Failed to list recent generations", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("failed to list recent generations: %w", err)
	}
	return records, nil
}

func (r *PgGenerationRepository) ComputeStats(ctx context.Context) (models.BotStats, error) {
	var row statsRow
	if err := pgxscan.Get(ctx, r.db, &row, computeStatsQuery); err != nil {
		r.logger.Error("Failed to compute generation stats", zap.Error(err))
		return models.BotStats{}, fmt.Errorf("failed to compute generation stats: %w", err)
	}
	return models.BotStats{
		TotalGenerations:             row.Total,
		SuccessfulGenerations:        row.Successful,
		FailedGenerations:            row.Failed,
		UniqueUsers:                  row.UniqueUsers,
		AverageGenerationTimeSeconds: models.RoundSeconds(row.AvgSeconds),
	}, nil
}
