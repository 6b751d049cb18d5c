package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranafin/dsa-onboarding/internal/common"
	"github.com/kiranafin/dsa-onboarding/internal/submission"
)

// SubmissionRepository is the durable-store contract: one insert per
// submission, written before any artifact or notification work. This core
// never updates or deletes rows.
type SubmissionRepository interface {
	Insert(ctx context.Context, rec *submission.Record) (uuid.UUID, error)
}

type submissionRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewSubmissionRepository(pool *pgxpool.Pool, logger *slog.Logger) SubmissionRepository {
	return &submissionRepo{
		pool:   pool,
		logger: logger,
	}
}

func (r *submissionRepo) Insert(ctx context.Context, rec *submission.Record) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return uuid.Nil, common.WrapError(err, "marshal submission payload")
	}

	const q = `
		INSERT INTO partner_submissions (id, partner_type, payload, submitted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, rec.ID, string(rec.PartnerType), payload, rec.SubmittedAt).Scan(&id); err != nil {
		r.logger.Error("failed to insert submission", "partner_type", rec.PartnerType, "error", err)
		return uuid.Nil, common.NewAppError("DB_ERROR", "failed to save submission record", common.ErrDatabase)
	}

	r.logger.Info("submission record committed", "submission_id", id, "partner_type", rec.PartnerType)
	return id, nil
}
