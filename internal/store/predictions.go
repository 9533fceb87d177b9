package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"affect/internal/classifier"
)

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AppendPrediction writes a prediction to the permanent log and the active
// cache in one transaction. Transient failures (a busy database, a lock
// timeout) are retried with exponential backoff up to the configured limit;
// a duplicate (session_id, window_index) fails immediately with
// ErrDuplicatePrediction.
func (s *Store) AppendPrediction(ctx context.Context, p Prediction) error {
	ctx = ensureContext(ctx)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	createdAt := p.CreatedAt.Format(time.RFC3339Nano)
	expiresAt := p.CreatedAt.Add(s.cacheTTL).Unix()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryMin

	op := func() error {
		err := s.appendOnce(ctx, p, createdAt, expiresAt)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrDuplicatePrediction) || !isSQLiteBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, s.retryMax), ctx)); err != nil {
		if errors.Is(err, ErrDuplicatePrediction) {
			return err
		}
		return fmt.Errorf("append prediction for session %s window %d: %w", p.SessionID, p.WindowIndex, err)
	}
	return nil
}

func (s *Store) appendOnce(ctx context.Context, p Prediction, createdAt string, expiresAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO prediction_log (
            session_id, user_id, video_id, window_index,
            window_start_ts, window_end_ts, probe,
            prob_hh, prob_hl, prob_lh, prob_ll,
            change_score, gsr_diff, hr_diff, cluster_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, p.UserID, p.VideoID, p.WindowIndex,
		p.WindowStartTs, p.WindowEndTs, string(p.Probe),
		p.Probabilities[0], p.Probabilities[1], p.Probabilities[2], p.Probabilities[3],
		p.ChangeScore, p.GSRDiff, p.HRDiff, p.ClusterID, createdAt,
	); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("session %s window %d: %w", p.SessionID, p.WindowIndex, ErrDuplicatePrediction)
		}
		return fmt.Errorf("insert prediction log row: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO active_predictions (
            session_id, user_id, video_id, window_index,
            window_start_ts, window_end_ts, probe,
            prob_hh, prob_hl, prob_lh, prob_ll,
            change_score, gsr_diff, hr_diff, cluster_id, created_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, p.UserID, p.VideoID, p.WindowIndex,
		p.WindowStartTs, p.WindowEndTs, string(p.Probe),
		p.Probabilities[0], p.Probabilities[1], p.Probabilities[2], p.Probabilities[3],
		p.ChangeScore, p.GSRDiff, p.HRDiff, p.ClusterID, createdAt, expiresAt,
	); err != nil {
		return fmt.Errorf("insert active prediction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prediction: %w", err)
	}
	return nil
}

const predictionColumns = `session_id, user_id, video_id, window_index,
    window_start_ts, window_end_ts, probe,
    prob_hh, prob_hl, prob_lh, prob_ll,
    change_score, gsr_diff, hr_diff, cluster_id, created_at`

// QueryPredictions returns predictions matching the filter ordered by window
// index. It serves from the active cache first and falls back to the
// permanent log when the cache holds nothing for the filter, so recently
// expired sessions remain queryable. Unknown session or user ids yield an
// empty result, not an error.
func (s *Store) QueryPredictions(ctx context.Context, filter PredictionFilter) ([]Prediction, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Unix()

	cached, err := s.queryPredictionTable(ctx, "active_predictions", filter, &now)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}
	return s.queryPredictionTable(ctx, "prediction_log", filter, nil)
}

func (s *Store) queryPredictionTable(ctx context.Context, table string, filter PredictionFilter, notExpiredAfter *int64) ([]Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM ` + table
	var (
		clauses []string
		args    []any
	)
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.VideoID > 0 {
		clauses = append(clauses, "video_id = ?")
		args = append(args, filter.VideoID)
	}
	if filter.SinceIndex != nil {
		clauses = append(clauses, "window_index > ?")
		args = append(args, *filter.SinceIndex)
	}
	if notExpiredAfter != nil {
		clauses = append(clauses, "expires_at > ?")
		args = append(args, *notExpiredAfter)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY window_index ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPrediction(rows *sql.Rows) (Prediction, error) {
	var (
		p         Prediction
		probe     string
		createdAt string
	)
	if err := rows.Scan(
		&p.SessionID, &p.UserID, &p.VideoID, &p.WindowIndex,
		&p.WindowStartTs, &p.WindowEndTs, &probe,
		&p.Probabilities[0], &p.Probabilities[1], &p.Probabilities[2], &p.Probabilities[3],
		&p.ChangeScore, &p.GSRDiff, &p.HRDiff, &p.ClusterID, &createdAt,
	); err != nil {
		return Prediction{}, fmt.Errorf("scan prediction: %w", err)
	}
	p.Probe = classifier.Probe(probe)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		p.CreatedAt = ts
	}
	return p, nil
}

// SweepExpired deletes cache rows past their expiry and reports how many
// were removed. The permanent log is untouched.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM active_predictions WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep expired predictions: %w", err)
	}
	return res.RowsAffected()
}

// PredictionCounts reports rows held by the permanent log and the active
// cache, for status reporting.
func (s *Store) PredictionCounts(ctx context.Context) (logged, cached int64, err error) {
	ctx = ensureContext(ctx)
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM prediction_log`).Scan(&logged); err != nil {
		return 0, 0, fmt.Errorf("count prediction log: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM active_predictions`).Scan(&cached); err != nil {
		return 0, 0, fmt.Errorf("count active predictions: %w", err)
	}
	return logged, cached, nil
}
