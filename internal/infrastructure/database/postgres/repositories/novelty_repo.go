package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// NoveltyRepository persists novelty scores, one row per (patent, claim).
type NoveltyRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewNoveltyRepository constructs a ready-to-use NoveltyRepository.
func NewNoveltyRepository(pool *pgxpool.Pool, logger logging.Logger) *NoveltyRepository {
	return &NoveltyRepository{pool: pool, logger: logger.Named("novelty_repo")}
}

// UpsertScore writes a score, overwriting any previous run for the claim.
func (r *NoveltyRepository) UpsertScore(ctx context.Context, score *patent.NoveltyScore) error {
	factorsJSON, err := json.Marshal(score.CalibrationFactors)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSerialization, "failed to encode calibration factors")
	}
	detailsJSON, err := json.Marshal(score.ClauseDetails)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSerialization, "failed to encode clause details")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO novelty_scores (
			patent_id, claim_number, novelty_score, obviousness_score,
			confidence_band, calibration_factors, clause_details, computed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (patent_id, claim_number) DO UPDATE SET
			novelty_score = EXCLUDED.novelty_score,
			obviousness_score = EXCLUDED.obviousness_score,
			confidence_band = EXCLUDED.confidence_band,
			calibration_factors = EXCLUDED.calibration_factors,
			clause_details = EXCLUDED.clause_details,
			computed_at = EXCLUDED.computed_at`,
		score.PatentID, score.ClaimNumber, score.NoveltyScore, score.ObviousnessScore,
		score.ConfidenceBand, factorsJSON, detailsJSON, score.ComputedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to upsert novelty score")
	}

	r.logger.Debug("novelty score stored",
		logging.String("patent_id", string(score.PatentID)),
		logging.Int("claim_number", score.ClaimNumber),
	)
	return nil
}

// GetScore loads the stored score for a claim.
func (r *NoveltyRepository) GetScore(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
	var score patent.NoveltyScore
	var factorsJSON, detailsJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT patent_id, claim_number, novelty_score, obviousness_score,
		       confidence_band, calibration_factors, clause_details, computed_at
		FROM novelty_scores WHERE patent_id = $1 AND claim_number = $2`,
		patentID, claimNumber,
	).Scan(&score.PatentID, &score.ClaimNumber, &score.NoveltyScore, &score.ObviousnessScore,
		&score.ConfidenceBand, &factorsJSON, &detailsJSON, &score.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeScoreNotFound, "novelty score not found").
			WithDetail(string(patentID))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load novelty score")
	}

	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &score.CalibrationFactors); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSerialization, "failed to decode calibration factors")
		}
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &score.ClauseDetails); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSerialization, "failed to decode clause details")
		}
	}
	return &score, nil
}
