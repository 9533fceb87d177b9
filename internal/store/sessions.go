package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession registers a new session record in the starting state. A
// second registration under the same id fails with ErrSessionExists even
// after the original session has terminated; session ids are never reused.
func (s *Store) CreateSession(ctx context.Context, sessionID, userID string, videoID, originTs int64) (*SessionRecord, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
            session_id, user_id, video_id, state, origin_ts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, userID, videoID, string(StateStarting), originTs, timestamp, timestamp,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionExists)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

const sessionColumns = `session_id, user_id, video_id, state, cluster_id, origin_ts,
    error_message, windows_emitted, windows_failed, samples_dropped, created_at, updated_at`

// GetSession fetches a session by id, or ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	record, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// ListSessions returns sessions ordered newest first, optionally filtered by
// state.
func (s *Store) ListSessions(ctx context.Context, states ...SessionState) ([]*SessionRecord, error) {
	ctx = ensureContext(ctx)

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if len(states) > 0 {
		query += ` WHERE state IN (?` + repeatPlaceholder(len(states)-1) + `)`
		for _, state := range states {
			args = append(args, string(state))
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// UpdateSessionState transitions a session and records an optional error
// message.
func (s *Store) UpdateSessionState(ctx context.Context, sessionID string, state SessionState, errorMessage string) error {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, error_message = ?, updated_at = ? WHERE session_id = ?`,
		string(state), nullableString(errorMessage), time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// SetSessionCluster records which response-profile cluster the session was
// assigned to once enough history accumulated.
func (s *Store) SetSessionCluster(ctx context.Context, sessionID string, clusterID int) error {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET cluster_id = ?, updated_at = ? WHERE session_id = ?`,
		clusterID, time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("set session cluster: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// UpdateSessionCounters persists window, failure, and drop totals at
// session shutdown.
func (s *Store) UpdateSessionCounters(ctx context.Context, sessionID string, windowsEmitted, windowsFailed, samplesDropped int64) error {
	ctx = ensureContext(ctx)
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET windows_emitted = ?, windows_failed = ?, samples_dropped = ?, updated_at = ? WHERE session_id = ?`,
		windowsEmitted, windowsFailed, samplesDropped, time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var (
		record    SessionRecord
		state     string
		clusterID sql.NullInt64
		errMsg    sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(
		&record.SessionID, &record.UserID, &record.VideoID, &state, &clusterID,
		&record.OriginTs, &errMsg, &record.WindowsEmitted, &record.WindowsFailed,
		&record.SamplesDropped, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	record.State = SessionState(state)
	if clusterID.Valid {
		id := int(clusterID.Int64)
		record.ClusterID = &id
	}
	if errMsg.Valid {
		record.ErrorMessage = errMsg.String
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		record.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		record.UpdatedAt = ts
	}
	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
