package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/facewatch/facewatch/internal/store"
)

// LedgerRepository persists match records in PostgreSQL.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Append stores a match record and fills in its generated ID and timestamp.
func (r *LedgerRepository) Append(ctx context.Context, record *store.MatchRecord) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO match_records (identity_id, identity_name, score, method, recognized_by, recognized_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, record.IdentityID, record.IdentityName, record.Score, record.Method, record.RecognizedBy, record.RecognizedAt).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("insert match record: %w", err)
	}
	return nil
}

// Recent returns the newest match records, most recent first.
func (r *LedgerRepository) Recent(ctx context.Context, limit int) ([]store.MatchRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, identity_name, score, method, recognized_by, recognized_at
		FROM match_records
		ORDER BY recognized_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	return scanMatchRecords(rows)
}

// All returns every match record, most recent first.
func (r *LedgerRepository) All(ctx context.Context) ([]store.MatchRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, identity_name, score, method, recognized_by, recognized_at
		FROM match_records
		ORDER BY recognized_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanMatchRecords(rows)
}

// CountByOperatorSince counts records logged by one operator since a cutoff.
func (r *LedgerRepository) CountByOperatorSince(ctx context.Context, operatorID string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM match_records
		WHERE recognized_by = $1 AND recognized_at >= $2
	`, operatorID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count operator records: %w", err)
	}
	return count, nil
}

// DailyCounts returns per-day record counts keyed by YYYY-MM-DD.
func (r *LedgerRepository) DailyCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(recognized_at, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM match_records
		GROUP BY day
		ORDER BY day
	`)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}
	return counts, nil
}

// TopIdentities returns the most recognized identities, highest count first.
func (r *LedgerRepository) TopIdentities(ctx context.Context, limit int) ([]store.IdentityCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, identity_name, COUNT(*) AS matches
		FROM match_records
		GROUP BY identity_id, identity_name
		ORDER BY matches DESC, identity_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top identities: %w", err)
	}
	defer rows.Close()

	var counts []store.IdentityCount
	for rows.Next() {
		var c store.IdentityCount
		if err := rows.Scan(&c.IdentityID, &c.IdentityName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan top identity: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top identities: %w", err)
	}
	return counts, nil
}

// CountsByOperator returns record counts keyed by operator ID.
func (r *LedgerRepository) CountsByOperator(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT recognized_by, COUNT(*)
		FROM match_records
		GROUP BY recognized_by
	`)
	if err != nil {
		return nil, fmt.Errorf("query operator counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var operatorID string
		var count int
		if err := rows.Scan(&operatorID, &count); err != nil {
			return nil, fmt.Errorf("scan operator count: %w", err)
		}
		counts[operatorID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operator counts: %w", err)
	}
	return counts, nil
}

func scanMatchRecords(rows *sql.Rows) ([]store.MatchRecord, error) {
	var records []store.MatchRecord
	for rows.Next() {
		var rec store.MatchRecord
		if err := rows.Scan(&rec.ID, &rec.IdentityID, &rec.IdentityName, &rec.Score, &rec.Method, &rec.RecognizedBy, &rec.RecognizedAt); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match records: %w", err)
	}
	return records, nil
}
