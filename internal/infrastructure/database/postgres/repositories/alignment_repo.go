package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// AlignmentRepository persists clause alignments.  A (patent, claim) pair
// owns its alignment rows: re-running an alignment replaces them.
type AlignmentRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewAlignmentRepository constructs a ready-to-use AlignmentRepository.
func NewAlignmentRepository(pool *pgxpool.Pool, logger logging.Logger) *AlignmentRepository {
	return &AlignmentRepository{pool: pool, logger: logger.Named("alignment_repo")}
}

// ReplaceAlignments deletes any previous alignments for the claim and inserts
// the new set in a single transaction.
func (r *AlignmentRepository) ReplaceAlignments(ctx context.Context, patentID patent.ID, claimNumber int, alignments []patent.Alignment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		DELETE FROM alignments WHERE patent_id = $1 AND claim_number = $2`,
		patentID, claimNumber,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to delete previous alignments")
	}

	for _, a := range alignments {
		overlapJSON, err := json.Marshal(a.OverlapDetails)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeSerialization, "failed to encode overlap details")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO alignments (
				patent_id, claim_number, target_claim_id, target_clause_index,
				target_clause_text, reference_patent_id, reference_claim_id,
				reference_clause_index, reference_clause_text,
				similarity_score, alignment_type, overlap_details
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			patentID, claimNumber, a.TargetClaimID, a.TargetClauseIndex,
			a.TargetClauseText, a.ReferencePatentID, a.ReferenceClaimID,
			a.ReferenceClauseIndex, a.ReferenceClauseText,
			a.SimilarityScore, a.AlignmentType, overlapJSON,
		)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to insert alignment")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to commit transaction")
	}

	r.logger.Debug("alignments replaced",
		logging.String("patent_id", string(patentID)),
		logging.Int("claim_number", claimNumber),
		logging.Int("count", len(alignments)),
	)
	return nil
}

// GetAlignments loads a claim's alignments ordered by clause, best match
// first within each clause.
func (r *AlignmentRepository) GetAlignments(ctx context.Context, patentID patent.ID, claimNumber int) ([]patent.Alignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT target_claim_id, target_clause_index, target_clause_text,
		       reference_patent_id, reference_claim_id, reference_clause_index,
		       reference_clause_text, similarity_score, alignment_type, overlap_details
		FROM alignments
		WHERE patent_id = $1 AND claim_number = $2
		ORDER BY target_clause_index, similarity_score DESC`,
		patentID, claimNumber,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load alignments")
	}
	defer rows.Close()

	var alignments []patent.Alignment
	for rows.Next() {
		var a patent.Alignment
		var overlapJSON []byte
		if err := rows.Scan(&a.TargetClaimID, &a.TargetClauseIndex, &a.TargetClauseText,
			&a.ReferencePatentID, &a.ReferenceClaimID, &a.ReferenceClauseIndex,
			&a.ReferenceClauseText, &a.SimilarityScore, &a.AlignmentType, &overlapJSON); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to scan alignment")
		}
		if len(overlapJSON) > 0 {
			if err := json.Unmarshal(overlapJSON, &a.OverlapDetails); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeSerialization, "failed to decode overlap details")
			}
		}
		alignments = append(alignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to iterate alignments")
	}
	return alignments, nil
}
