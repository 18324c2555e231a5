package normalizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MatchType distinguishes product matches from client matches.
type MatchType string

const (
	MatchTypeProduct MatchType = "product"
	MatchTypeClient  MatchType = "client"
)

// Valid reports whether t is a known match type.
func (t MatchType) Valid() bool {
	return t == MatchTypeProduct || t == MatchTypeClient
}

// ManualMatch is a human-confirmed correspondence from a normalized CSV name
// to a catalog entity, reused across imports so the same correction is never
// asked twice.
type ManualMatch struct {
	ID                uuid.UUID `json:"id"`
	Type              MatchType `json:"match_type"`
	NormalizedCSVName string    `json:"normalized_csv_name"`
	MatchedID         uuid.UUID `json:"matched_id"`
	MatchedName       string    `json:"matched_name"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MatchStore persists manual matches. Implementations are network-backed;
// every call can fail and failures must be surfaced to the caller.
type MatchStore interface {
	ListAll(ctx context.Context) ([]ManualMatch, error)
	ListByType(ctx context.Context, matchType MatchType) ([]ManualMatch, error)
	Upsert(ctx context.Context, matchType MatchType, csvName string, entityID uuid.UUID, entityName string) (*ManualMatch, error)
	Update(ctx context.Context, matchID uuid.UUID, entityID uuid.UUID, entityName string) (*ManualMatch, error)
	Delete(ctx context.Context, matchID uuid.UUID) error
}

// DBConn is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type DBConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresMatchStore is the pgx-backed MatchStore.
type PostgresMatchStore struct {
	db DBConn
}

var _ MatchStore = (*PostgresMatchStore)(nil)

// NewPostgresMatchStore creates a match store on the given connection.
func NewPostgresMatchStore(db DBConn) *PostgresMatchStore {
	return &PostgresMatchStore{db: db}
}

const matchColumns = `id, match_type, normalized_name, matched_id, matched_name, created_at, updated_at`

// ListAll returns every saved match, most recently updated first.
func (s *PostgresMatchStore) ListAll(ctx context.Context) ([]ManualMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM manual_matches
		ORDER BY updated_at DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list manual matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListByType returns the saved matches for one entity type.
func (s *PostgresMatchStore) ListByType(ctx context.Context, matchType MatchType) ([]ManualMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM manual_matches
		WHERE match_type = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.db.Query(ctx, query, matchType)
	if err != nil {
		return nil, fmt.Errorf("list manual matches by type: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Upsert saves a match keyed by (type, Normalize(csvName)) with
// last-write-wins semantics.
func (s *PostgresMatchStore) Upsert(ctx context.Context, matchType MatchType, csvName string, entityID uuid.UUID, entityName string) (*ManualMatch, error) {
	if !matchType.Valid() {
		return nil, fmt.Errorf("invalid match type: %s", matchType)
	}

	normalized := Normalize(csvName)
	if normalized == "" {
		return nil, fmt.Errorf("csv name normalizes to empty string: %q", csvName)
	}

	query := `
		INSERT INTO manual_matches (match_type, normalized_name, matched_id, matched_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_type, normalized_name) DO UPDATE SET
			matched_id = EXCLUDED.matched_id,
			matched_name = EXCLUDED.matched_name,
			updated_at = now()
		RETURNING ` + matchColumns + `
	`

	var m ManualMatch
	err := s.db.QueryRow(ctx, query, matchType, normalized, entityID, entityName).Scan(
		&m.ID, &m.Type, &m.NormalizedCSVName, &m.MatchedID, &m.MatchedName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert manual match: %w", err)
	}
	return &m, nil
}

// Update repoints an existing match at a different catalog entity.
func (s *PostgresMatchStore) Update(ctx context.Context, matchID uuid.UUID, entityID uuid.UUID, entityName string) (*ManualMatch, error) {
	query := `
		UPDATE manual_matches
		SET matched_id = $2, matched_name = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + matchColumns + `
	`

	var m ManualMatch
	err := s.db.QueryRow(ctx, query, matchID, entityID, entityName).Scan(
		&m.ID, &m.Type, &m.NormalizedCSVName, &m.MatchedID, &m.MatchedName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("manual match %s not found", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("update manual match: %w", err)
	}
	return &m, nil
}

// Delete removes a saved match.
func (s *PostgresMatchStore) Delete(ctx context.Context, matchID uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM manual_matches WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete manual match: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteByMatchedIDs removes matches pointing at catalog entities that no
// longer exist. Used by the pruning job.
func (s *PostgresMatchStore) DeleteByMatchedIDs(ctx context.Context, matchType MatchType, matchedIDs []uuid.UUID) (int64, error) {
	if len(matchedIDs) == 0 {
		return 0, nil
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM manual_matches WHERE match_type = $1 AND matched_id = ANY($2)`,
		matchType, matchedIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("prune manual matches: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanMatches(rows pgx.Rows) ([]ManualMatch, error) {
	var matches []ManualMatch
	for rows.Next() {
		var m ManualMatch
		if err := rows.Scan(
			&m.ID, &m.Type, &m.NormalizedCSVName, &m.MatchedID, &m.MatchedName, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
