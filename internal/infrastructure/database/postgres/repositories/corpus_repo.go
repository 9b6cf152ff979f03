// Package repositories provides the PostgreSQL-backed implementations of the
// pipeline's storage ports: corpus lookups, alignment persistence, and
// novelty scores.
package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/search/bm25"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// CorpusRepository reads and writes patents and claims.  It backs the
// aligner's and scorer's CorpusStore ports and doubles as the document
// loader for BM25 snapshot rebuilds.
type CorpusRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCorpusRepository constructs a ready-to-use CorpusRepository.
func NewCorpusRepository(pool *pgxpool.Pool, logger logging.Logger) *CorpusRepository {
	return &CorpusRepository{pool: pool, logger: logger.Named("corpus_repo")}
}

// GetClaim loads one claim by patent and claim number.
func (r *CorpusRepository) GetClaim(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.Claim, error) {
	var c patent.Claim
	err := r.pool.QueryRow(ctx, `
		SELECT id, patent_id, claim_number, text, is_independent
		FROM claims WHERE patent_id = $1 AND claim_number = $2`,
		patentID, claimNumber,
	).Scan(&c.ID, &c.PatentID, &c.Number, &c.Text, &c.IsIndependent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodeClaimNotFound, "claim not found").
			WithDetail(string(patentID))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load claim")
	}
	return &c, nil
}

// GetClaimsByPatent loads all claims of a patent ordered by claim number.
func (r *CorpusRepository) GetClaimsByPatent(ctx context.Context, patentID patent.ID) ([]patent.Claim, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patent_id, claim_number, text, is_independent
		FROM claims WHERE patent_id = $1 ORDER BY claim_number`,
		patentID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load claims")
	}
	defer rows.Close()

	var claims []patent.Claim
	for rows.Next() {
		var c patent.Claim
		if err := rows.Scan(&c.ID, &c.PatentID, &c.Number, &c.Text, &c.IsIndependent); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to scan claim")
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to iterate claims")
	}
	return claims, nil
}

// GetPatent loads patent metadata.
func (r *CorpusRepository) GetPatent(ctx context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
	var doc patent.PatentDocument
	err := r.pool.QueryRow(ctx, `
		SELECT id, workspace_id, title, abstract, assignees, cpc_codes, priority_date, family_id
		FROM patents WHERE id = $1`,
		patentID,
	).Scan(&doc.ID, &doc.WorkspaceID, &doc.Title, &doc.Abstract,
		&doc.Assignees, &doc.CPCCodes, &doc.PriorityDate, &doc.FamilyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.New(apperrors.CodePatentNotFound, "patent not found").
			WithDetail(string(patentID))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load patent")
	}
	return &doc, nil
}

// UpsertPatent inserts or updates patent metadata.
func (r *CorpusRepository) UpsertPatent(ctx context.Context, doc *patent.PatentDocument) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patents (id, workspace_id, title, abstract, assignees, cpc_codes, priority_date, family_id, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			title = EXCLUDED.title,
			abstract = EXCLUDED.abstract,
			assignees = EXCLUDED.assignees,
			cpc_codes = EXCLUDED.cpc_codes,
			priority_date = EXCLUDED.priority_date,
			family_id = EXCLUDED.family_id,
			updated_at = now()`,
		doc.ID, doc.WorkspaceID, doc.Title, doc.Abstract,
		doc.Assignees, doc.CPCCodes, doc.PriorityDate, doc.FamilyID,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to upsert patent")
	}
	return nil
}

// UpsertClaims inserts or updates a patent's claims in one transaction.
func (r *CorpusRepository) UpsertClaims(ctx context.Context, claims []patent.Claim) error {
	if len(claims) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range claims {
		_, err := tx.Exec(ctx, `
			INSERT INTO claims (id, patent_id, claim_number, text, is_independent)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (patent_id, claim_number) DO UPDATE SET
				text = EXCLUDED.text,
				is_independent = EXCLUDED.is_independent`,
			c.ID, c.PatentID, c.Number, c.Text, c.IsIndependent,
		)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to upsert claim")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// LoadDocuments returns every patent with its searchable text (title,
// abstract, and all claim texts) for lexical snapshot rebuilds.
func (r *CorpusRepository) LoadDocuments(ctx context.Context) ([]bm25.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.workspace_id, p.title, p.abstract, p.assignees, p.cpc_codes,
		       p.priority_date, p.family_id,
		       COALESCE(string_agg(c.text, ' ' ORDER BY c.claim_number), '')
		FROM patents p
		LEFT JOIN claims c ON c.patent_id = p.id
		GROUP BY p.id
		ORDER BY p.id`,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load corpus documents")
	}
	defer rows.Close()

	var docs []bm25.Document
	for rows.Next() {
		var d bm25.Document
		var claimText string
		if err := rows.Scan(&d.ID, &d.WorkspaceID, &d.Title, &d.Abstract, &d.Assignees,
			&d.CPCCodes, &d.PriorityDate, &d.FamilyID, &claimText); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to scan corpus document")
		}
		d.SearchText = d.Title + " " + d.Abstract + " " + claimText
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to iterate corpus documents")
	}

	r.logger.Debug("corpus documents loaded", logging.Int("count", len(docs)))
	return docs, nil
}
