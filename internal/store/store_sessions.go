package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/skywatch/drone-ops/pkg/types"
)

// =============================================================================
// SESSIONS
// =============================================================================

// CreateDroneSession inserts a new session. A partial unique index on
// drone_sessions((true)) WHERE stopped_at IS NULL enforces the
// at-most-one-active invariant at the database layer; on conflict this
// returns the session that is already active instead of erroring, so the
// core's idempotent start_session can simply call this and inspect the
// returned row's ID against what it expected to create.
func (s *Store) CreateDroneSession(ctx context.Context, session *types.Session) error {
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO drone_sessions (mode, label, operator, metadata, started_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT ((true)) WHERE stopped_at IS NULL DO NOTHING
		RETURNING id, started_at
	`, session.Mode, session.Label, session.Operator, metadataJSON).Scan(&session.ID, &session.StartedAt)
	if err == pgx.ErrNoRows {
		active, getErr := s.GetActiveDroneSession(ctx)
		if getErr != nil {
			return getErr
		}
		if active != nil {
			*session = *active
		}
		return nil
	}
	return err
}

// GetActiveDroneSession returns the session with stopped_at IS NULL, if any.
func (s *Store) GetActiveDroneSession(ctx context.Context) (*types.Session, error) {
	return s.scanSessionRow(s.pool.QueryRow(ctx, `
		SELECT id, mode, label, operator, metadata, started_at, stopped_at, summary
		FROM drone_sessions WHERE stopped_at IS NULL
		ORDER BY started_at DESC LIMIT 1
	`))
}

// GetDroneSession retrieves a session by ID.
func (s *Store) GetDroneSession(ctx context.Context, id int64) (*types.Session, error) {
	return s.scanSessionRow(s.pool.QueryRow(ctx, `
		SELECT id, mode, label, operator, metadata, started_at, stopped_at, summary
		FROM drone_sessions WHERE id = $1
	`, id))
}

// ListDroneSessions returns sessions, most recent first, optionally
// restricted to the currently active one.
func (s *Store) ListDroneSessions(ctx context.Context, limit int, activeOnly bool) ([]types.Session, error) {
	query := `
		SELECT id, mode, label, operator, metadata, started_at, stopped_at, summary
		FROM drone_sessions
	`
	if activeOnly {
		query += " WHERE stopped_at IS NULL"
	}
	query += " ORDER BY started_at DESC LIMIT $1"

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// StopDroneSession sets stopped_at and summary on a session.
func (s *Store) StopDroneSession(ctx context.Context, id int64, summary map[string]any) (*types.Session, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return s.scanSessionRow(s.pool.QueryRow(ctx, `
		UPDATE drone_sessions SET stopped_at = NOW(), summary = $2
		WHERE id = $1 AND stopped_at IS NULL
		RETURNING id, mode, label, operator, metadata, started_at, stopped_at, summary
	`, id, summaryJSON))
}

// CountDroneDetectionsInSession counts detections attached to a session,
// used to synthesize a stop_session summary when the caller supplies none.
func (s *Store) CountDroneDetectionsInSession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM drone_detections WHERE session_id = $1
	`, sessionID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanSessionRow(row pgx.Row) (*types.Session, error) {
	session, err := scanSession(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return session, err
}

func scanSession(row rowScanner) (*types.Session, error) {
	var session types.Session
	var label *string
	var metadataJSON, summaryJSON []byte
	if err := row.Scan(
		&session.ID, &session.Mode, &label, &session.Operator,
		&metadataJSON, &session.StartedAt, &session.StoppedAt, &summaryJSON,
	); err != nil {
		return nil, err
	}
	if label != nil {
		session.Label = *label
	}
	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &session.Metadata)
	}
	if len(summaryJSON) > 0 {
		json.Unmarshal(summaryJSON, &session.Summary)
	}
	return &session, nil
}
