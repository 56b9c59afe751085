package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/facewatch/facewatch/internal/store"
)

// OperatorRepository provides PostgreSQL-backed operator account storage.
type OperatorRepository struct {
	pool *Pool
}

// NewOperatorRepository creates a new PostgreSQL operator repository.
func NewOperatorRepository(pool *Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// Create stores a new operator account.
func (r *OperatorRepository) Create(ctx context.Context, operator *store.Operator) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO operators (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, operator.ID, operator.Name, operator.Email, operator.PasswordHash).Scan(&operator.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("insert operator: %w", err)
	}
	return nil
}

// GetByEmail retrieves an operator by email address.
func (r *OperatorRepository) GetByEmail(ctx context.Context, email string) (*store.Operator, error) {
	var op store.Operator
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM operators
		WHERE lower(email) = lower($1)
	`, email).Scan(&op.ID, &op.Name, &op.Email, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query operator by email: %w", err)
	}
	return &op, nil
}

// Get retrieves an operator by ID.
func (r *OperatorRepository) Get(ctx context.Context, id string) (*store.Operator, error) {
	var op store.Operator
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM operators
		WHERE id = $1
	`, id).Scan(&op.ID, &op.Name, &op.Email, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query operator: %w", err)
	}
	return &op, nil
}

// List returns every operator, ordered by name.
func (r *OperatorRepository) List(ctx context.Context) ([]store.Operator, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM operators
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query operators: %w", err)
	}
	defer rows.Close()

	var operators []store.Operator
	for rows.Next() {
		var op store.Operator
		if err := rows.Scan(&op.ID, &op.Name, &op.Email, &op.PasswordHash, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		operators = append(operators, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operators: %w", err)
	}
	return operators, nil
}
