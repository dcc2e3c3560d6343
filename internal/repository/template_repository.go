package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/refund-claim-service/internal/domain"
)

// TemplateRepository stores reusable case seeds by id.
type TemplateRepository interface {
	Put(ctx context.Context, t *domain.Template) error
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Template, error)
	Delete(ctx context.Context, id string) error
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

func (r *templateRepository) Put(ctx context.Context, t *domain.Template) error {
	document, err := json.Marshal(t)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO templates (id, owner_user_id, document, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document`
	_, err = r.pool.Exec(ctx, query, t.ID, t.OwnerID, document, t.CreatedAt)
	return err
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	const query = `SELECT document FROM templates WHERE id=$1`

	var document []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&document); err != nil {
		return nil, err
	}
	var t domain.Template
	if err := json.Unmarshal(document, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner returns the owner's templates ordered by recency.
func (r *templateRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Template, error) {
	const query = `
        SELECT document FROM templates
        WHERE owner_user_id=$1
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []domain.Template{}
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var t domain.Template
		if err := json.Unmarshal(document, &t); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM templates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
