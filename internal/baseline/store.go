package baseline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"affect/internal/logging"
	"affect/internal/signal"
)

// ErrMissing indicates no baseline profile exists for a user. Feature
// extraction for that user's windows fails until a profile is recorded.
var ErrMissing = errors.New("missing baseline")

// Profile is one user's reference physiology.
type Profile struct {
	UserID     string
	MeanGSR    float64
	MeanHR     float64
	ComputedAt time.Time
}

// Persister saves and restores profiles across daemon restarts.
type Persister interface {
	SaveBaseline(ctx context.Context, profile Profile) error
	LoadBaselines(ctx context.Context) ([]Profile, error)
}

// Store keeps profiles in memory for lock-cheap reads on the hot path and
// mirrors writes through the persister. Profiles are recorded during session
// setup and read-only afterwards.
type Store struct {
	mu        sync.RWMutex
	profiles  map[string]Profile
	persister Persister
	logger    *slog.Logger
}

// NewStore constructs a baseline store backed by the given persister.
func NewStore(persister Persister, logger *slog.Logger) *Store {
	return &Store{
		profiles:  make(map[string]Profile),
		persister: persister,
		logger:    logging.NewComponentLogger(logger, "baseline"),
	}
}

// Load warms the in-memory map from persisted profiles.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	profiles, err := s.persister.LoadBaselines(ctx)
	if err != nil {
		return fmt.Errorf("load baselines: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	if len(profiles) > 0 {
		s.logger.Info("baseline profiles restored", logging.Int("count", len(profiles)))
	}
	return nil
}

// Record computes a profile from a baseline recording and stores it. A
// repeat recording for the same user replaces the previous profile.
func (s *Store) Record(ctx context.Context, userID string, samples []signal.Sample) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, errors.New("user id is required")
	}
	if len(samples) == 0 {
		return Profile{}, fmt.Errorf("baseline recording for user %s holds no samples", userID)
	}

	var gsr, hr float64
	for _, sample := range samples {
		gsr += sample.GSR
		hr += sample.HR
	}
	n := float64(len(samples))
	profile := Profile{
		UserID:     userID,
		MeanGSR:    gsr / n,
		MeanHR:     hr / n,
		ComputedAt: time.Now().UTC(),
	}

	if s.persister != nil {
		if err := s.persister.SaveBaseline(ctx, profile); err != nil {
			return Profile{}, fmt.Errorf("persist baseline for user %s: %w", userID, err)
		}
	}

	s.mu.Lock()
	s.profiles[userID] = profile
	s.mu.Unlock()

	s.logger.Info("baseline recorded",
		logging.String(logging.FieldUserID, userID),
		logging.Int("samples", len(samples)),
		logging.Float64("mean_gsr", profile.MeanGSR),
		logging.Float64("mean_hr", profile.MeanHR),
	)
	return profile, nil
}

// Get returns the profile for a user, or ErrMissing when none exists.
func (s *Store) Get(userID string) (Profile, error) {
	s.mu.RLock()
	profile, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, fmt.Errorf("user %s: %w", userID, ErrMissing)
	}
	return profile, nil
}

// Has reports whether a profile exists for the user.
func (s *Store) Has(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.profiles[userID]
	return ok
}
