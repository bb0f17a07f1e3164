// internal/claims/postgres.go
package claims

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	stderrors "claims-triage/internal/common/errors"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// PostgresStore persists claims in a single table with the feature,
// score and decision payloads stored as JSONB columns.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "claim-store-postgres"}),
	}
}

// EnsureSchema creates the claims table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS claims (
			id            TEXT PRIMARY KEY,
			claim_number  TEXT NOT NULL UNIQUE,
			claim_type    TEXT NOT NULL,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			features      JSONB NOT NULL,
			scores        JSONB NOT NULL,
			decision      JSONB NOT NULL,
			notes         JSONB NOT NULL DEFAULT '[]',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return stderrors.NewClaimStoreError(err.Error())
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, claim models.ClaimRecord) error {
	if claim.ID == "" {
		return stderrors.NewClaimStoreError("claim id is required")
	}

	now := time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now

	features, err := json.Marshal(claim.Features)
	if err != nil {
		return stderrors.NewClaimStoreError(err.Error())
	}
	scores, err := json.Marshal(claim.Scores)
	if err != nil {
		return stderrors.NewClaimStoreError(err.Error())
	}
	decision, err := json.Marshal(claim.Decision)
	if err != nil {
		return stderrors.NewClaimStoreError(err.Error())
	}
	notes, err := json.Marshal(notesOrEmpty(claim.Notes))
	if err != nil {
		return stderrors.NewClaimStoreError(err.Error())
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (id, claim_number, claim_type, name, email, features, scores, decision, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			claim_type = EXCLUDED.claim_type,
			name       = EXCLUDED.name,
			email      = EXCLUDED.email,
			features   = EXCLUDED.features,
			scores     = EXCLUDED.scores,
			decision   = EXCLUDED.decision,
			notes      = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`,
		claim.ID, claim.ClaimNumber, claim.ClaimType, claim.Name, claim.Email,
		features, scores, decision, notes, claim.CreatedAt, claim.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return stderrors.NewDuplicateClaimError(claim.ClaimNumber)
		}
		return stderrors.NewClaimStoreError(err.Error())
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, claimID string) (models.ClaimRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, claim_number, claim_type, name, email, features, scores, decision, notes, created_at, updated_at
		FROM claims
		WHERE id = $1`, claimID)

	claim, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return models.ClaimRecord{}, stderrors.NewClaimNotFoundError(claimID)
	}
	if err != nil {
		return models.ClaimRecord{}, stderrors.NewClaimStoreError(err.Error())
	}
	return claim, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]models.ClaimRecord, error) {
	query := `
		SELECT id, claim_number, claim_type, name, email, features, scores, decision, notes, created_at, updated_at
		FROM claims
		WHERE ($1 = '' OR decision->>'routing_team' ILIKE $1)
		  AND ($2 = '' OR features->>'severity_level' ILIKE $2)
		  AND ($3 = '' OR claim_number ILIKE $3 OR name ILIKE $3 OR email ILIKE $3)
		ORDER BY created_at DESC, id`

	args := []interface{}{filter.Queue, filter.Severity, searchPattern(filter.Search)}
	if filter.Limit > 0 {
		query += ` LIMIT $4 OFFSET $5`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += ` OFFSET $4`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, stderrors.NewClaimStoreError(err.Error())
	}
	defer rows.Close()

	var out []models.ClaimRecord
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, stderrors.NewClaimStoreError(err.Error())
		}
		out = append(out, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewClaimStoreError(err.Error())
	}
	return out, nil
}

func (s *PostgresStore) UpdateRouting(ctx context.Context, claimID string, decision models.RoutingDecision, note string) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return stderrors.NewClaimUpdateError(claimID, err.Error())
	}

	query := `
		UPDATE claims
		SET decision = $2,
		    notes = CASE WHEN $3 = '' THEN notes ELSE notes || to_jsonb($3::text) END,
		    updated_at = $4
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, claimID, payload, note, time.Now().UTC())
	if err != nil {
		return stderrors.NewClaimUpdateError(claimID, err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return stderrors.NewClaimUpdateError(claimID, err.Error())
	}
	if affected == 0 {
		return stderrors.NewClaimNotFoundError(claimID)
	}
	return nil
}

func (s *PostgresStore) Snapshots(ctx context.Context) ([]models.ClaimSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_number, claim_type,
		       COALESCE((scores->>'fraud_score')::float8, 0),
		       COALESCE((features->>'complexity_score')::float8, 1),
		       COALESCE(features->>'severity_level', 'Low'),
		       COALESCE(scores->>'claim_category', 'accident')
		FROM claims
		ORDER BY id`)
	if err != nil {
		return nil, stderrors.NewClaimStoreError(err.Error())
	}
	defer rows.Close()

	var out []models.ClaimSnapshot
	for rows.Next() {
		var snap models.ClaimSnapshot
		var severity, category string
		if err := rows.Scan(&snap.ClaimID, &snap.ClaimNumber, &snap.ClaimType,
			&snap.FraudScore, &snap.ComplexityScore, &severity, &category); err != nil {
			return nil, stderrors.NewClaimStoreError(err.Error())
		}
		snap.SeverityLevel = models.SeverityLevel(severity)
		snap.ClaimCategory = models.Category(category)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewClaimStoreError(err.Error())
	}
	return out, nil
}

func (s *PostgresStore) QueueSummary(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(decision->>'routing_team', ''), 'Unassigned'), COUNT(*)
		FROM claims
		GROUP BY 1`)
	if err != nil {
		return nil, stderrors.NewClaimStoreError(err.Error())
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var team string
		var count int
		if err := rows.Scan(&team, &count); err != nil {
			return nil, stderrors.NewClaimStoreError(err.Error())
		}
		summary[team] = count
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewClaimStoreError(err.Error())
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (models.ClaimRecord, error) {
	var claim models.ClaimRecord
	var features, scores, decision, notes []byte

	err := row.Scan(&claim.ID, &claim.ClaimNumber, &claim.ClaimType, &claim.Name, &claim.Email,
		&features, &scores, &decision, &notes, &claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		return models.ClaimRecord{}, err
	}

	if err := json.Unmarshal(features, &claim.Features); err != nil {
		return models.ClaimRecord{}, err
	}
	if err := json.Unmarshal(scores, &claim.Scores); err != nil {
		return models.ClaimRecord{}, err
	}
	if err := json.Unmarshal(decision, &claim.Decision); err != nil {
		return models.ClaimRecord{}, err
	}
	if err := json.Unmarshal(notes, &claim.Notes); err != nil {
		return models.ClaimRecord{}, err
	}
	return claim, nil
}

func notesOrEmpty(notes []string) []string {
	if notes == nil {
		return []string{}
	}
	return notes
}

func searchPattern(search string) string {
	if search == "" {
		return ""
	}
	return "%" + search + "%"
}
