package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/facewatch/facewatch/internal/store"
)

// IdentityRepository provides PostgreSQL-backed identity gallery storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// ScanAll returns every enrolled identity with its embeddings. A single
// query snapshot keeps the scan consistent even while enrollments run
// concurrently.
func (r *IdentityRepository) ScanAll(ctx context.Context) ([]store.Identity, error) {
	query := `
		SELECT i.id, i.external_id, i.name, i.registered_by, i.created_at,
		       e.embedding, e.filename, e.created_at
		FROM identities i
		LEFT JOIN identity_embeddings e ON e.identity_id = i.id
		ORDER BY i.id, e.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan identities: %w", err)
	}
	defer rows.Close()

	var identities []store.Identity
	var current *store.Identity

	for rows.Next() {
		var (
			identity  store.Identity
			vec       *pgvector.Vector
			filename  sql.NullString
			embSaved  sql.NullTime
		)
		if err := rows.Scan(
			&identity.ID,
			&identity.ExternalID,
			&identity.Name,
			&identity.RegisteredBy,
			&identity.CreatedAt,
			&vec,
			&filename,
			&embSaved,
		); err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}

		if current == nil || current.ID != identity.ID {
			identities = append(identities, identity)
			current = &identities[len(identities)-1]
		}
		if vec != nil {
			emb := store.Embedding{
				Vector:   vec.Slice(),
				Filename: filename.String,
			}
			if embSaved.Valid {
				emb.CreatedAt = embSaved.Time
			}
			current.Embeddings = append(current.Embeddings, emb)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// GetByExternalID retrieves one identity with its embeddings.
func (r *IdentityRepository) GetByExternalID(ctx context.Context, externalID string) (*store.Identity, error) {
	var identity store.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, external_id, name, registered_by, created_at
		FROM identities
		WHERE external_id = $1
	`, externalID).Scan(&identity.ID, &identity.ExternalID, &identity.Name, &identity.RegisteredBy, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT embedding, filename, created_at
		FROM identity_embeddings
		WHERE identity_id = $1
		ORDER BY id
	`, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("query identity embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vec pgvector.Vector
		var emb store.Embedding
		if err := rows.Scan(&vec, &emb.Filename, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		emb.Vector = vec.Slice()
		identity.Embeddings = append(identity.Embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return &identity, nil
}

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// Create enrolls a new identity with its embeddings in one transaction.
func (r *IdentityRepository) Create(ctx context.Context, identity *store.Identity) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO identities (external_id, name, registered_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, identity.ExternalID, identity.Name, identity.RegisteredBy).Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	for i := range identity.Embeddings {
		emb := &identity.Embeddings[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO identity_embeddings (identity_id, embedding, filename)
			VALUES ($1, $2, $3)
			RETURNING created_at
		`, identity.ID, pgvector.NewVector(emb.Vector), emb.Filename).Scan(&emb.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}
	return nil
}

// AddEmbedding appends an embedding to an existing identity.
func (r *IdentityRepository) AddEmbedding(ctx context.Context, externalID string, emb store.Embedding) error {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO identity_embeddings (identity_id, embedding, filename)
		SELECT id, $2, $3 FROM identities WHERE external_id = $1
	`, externalID, pgvector.NewVector(emb.Vector), emb.Filename)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert embedding result: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateName changes an identity's display name.
func (r *IdentityRepository) UpdateName(ctx context.Context, externalID, name string) error {
	result, err := r.pool.Exec(ctx, "UPDATE identities SET name = $2 WHERE external_id = $1", externalID, name)
	if err != nil {
		return fmt.Errorf("update identity name: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity name result: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes an identity; its embeddings cascade.
func (r *IdentityRepository) Delete(ctx context.Context, externalID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE external_id = $1", externalID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity result: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// isUniqueViolation checks for the PostgreSQL unique constraint error code.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
