package store

import (
	"context"
	"fmt"
	"time"

	"affect/internal/baseline"
)

// SaveBaseline upserts a user's baseline profile. A repeated recording for
// the same user replaces the previous one.
func (s *Store) SaveBaseline(ctx context.Context, profile baseline.Profile) error {
	ctx = ensureContext(ctx)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO baselines (user_id, mean_gsr, mean_hr, computed_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(user_id) DO UPDATE SET
             mean_gsr = excluded.mean_gsr,
             mean_hr = excluded.mean_hr,
             computed_at = excluded.computed_at`,
		profile.UserID, profile.MeanGSR, profile.MeanHR,
		profile.ComputedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save baseline for user %s: %w", profile.UserID, err)
	}
	return nil
}

// LoadBaselines returns every persisted baseline profile.
func (s *Store) LoadBaselines(ctx context.Context) ([]baseline.Profile, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, mean_gsr, mean_hr, computed_at FROM baselines`)
	if err != nil {
		return nil, fmt.Errorf("load baselines: %w", err)
	}
	defer rows.Close()

	var out []baseline.Profile
	for rows.Next() {
		var (
			profile    baseline.Profile
			computedAt string
		)
		if err := rows.Scan(&profile.UserID, &profile.MeanGSR, &profile.MeanHR, &computedAt); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, computedAt); err == nil {
			profile.ComputedAt = ts
		}
		out = append(out, profile)
	}
	return out, rows.Err()
}
