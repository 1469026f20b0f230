package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/voicegate/backend/internal/domain/auth"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

// attemptRepository implements voiceauth.AttemptRepository using PostgreSQL
type attemptRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	}
}

// NewAttemptRepository creates a new attempt audit repository
func NewAttemptRepository(db *sql.DB) voiceauth.AttemptRepository {
	return &attemptRepository{db: db}
}

// NewAttemptRepositoryWithTx creates a new attempt repository bound to a transaction
func NewAttemptRepositoryWithTx(tx *sql.Tx) voiceauth.AttemptRepository {
	return &attemptRepository{db: tx}
}

// SaveAttempt inserts a completed attempt record
func (r *attemptRepository) SaveAttempt(ctx context.Context, rec *voiceauth.AttemptRecord) error {
	if rec == nil {
		return fmt.Errorf("attempt record cannot be nil")
	}
	if rec.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	factorsJSON, err := json.Marshal(rec.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}

	query := `
		INSERT INTO auth_attempts (
			id, user_id, success, combined_confidence, security_level,
			critical, used_alternative, stress_detected, outcome, reason,
			factors, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Success, rec.CombinedConfidence,
		rec.SecurityLevel.String(), rec.Critical, rec.UsedAlternative,
		rec.StressDetected, string(rec.Outcome), rec.Reason,
		factorsJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ListAttempts retrieves recent attempts for a user, newest first
func (r *attemptRepository) ListAttempts(ctx context.Context, userID string, limit int) ([]*voiceauth.AttemptRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, success, combined_confidence, security_level,
		       critical, used_alternative, stress_detected, outcome, reason,
		       factors, created_at
		FROM auth_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var records []*voiceauth.AttemptRecord
	for rows.Next() {
		var (
			rec         voiceauth.AttemptRecord
			levelStr    string
			outcomeStr  string
			factorsJSON []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Success, &rec.CombinedConfidence,
			&levelStr, &rec.Critical, &rec.UsedAlternative,
			&rec.StressDetected, &outcomeStr, &rec.Reason,
			&factorsJSON, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}

		level, err := auth.ParseSecurityLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("attempt %s: %w", rec.ID, err)
		}
		rec.SecurityLevel = level
		rec.Outcome = auth.OutcomeKind(outcomeStr)

		if len(factorsJSON) > 0 {
			if err := json.Unmarshal(factorsJSON, &rec.Factors); err != nil {
				return nil, fmt.Errorf("unmarshal factors for attempt %s: %w", rec.ID, err)
			}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return records, nil
}
