package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/refund-claim-service/internal/domain"
)

// CaseRepository is key-value-by-id storage for case documents.
type CaseRepository interface {
	Put(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Case, error)
	Delete(ctx context.Context, id string) error
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

// Put upserts the full case document under its id. The first persist stamps
// createdAt on the document.
func (r *caseRepository) Put(ctx context.Context, c *domain.Case) error {
	if c.CreatedAt == nil {
		now := time.Now()
		c.CreatedAt = &now
	}
	document, err := json.Marshal(c)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO cases (id, owner_user_id, document, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, query, c.ID, c.OwnerID, document, *c.CreatedAt)
	return err
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	const query = `SELECT document FROM cases WHERE id=$1`

	var document []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&document); err != nil {
		return nil, err
	}
	var c domain.Case
	if err := json.Unmarshal(document, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOwner returns the owner's cases ordered by recency.
func (r *caseRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Case, error) {
	const query = `
        SELECT document FROM cases
        WHERE owner_user_id=$1
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cases := []domain.Case{}
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var c domain.Case
		if err := json.Unmarshal(document, &c); err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (r *caseRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cases WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
