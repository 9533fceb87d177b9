package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	ModelDir string `toml:"model_dir"`
	APIBind  string `toml:"api_bind"`
}

// Pipeline contains windowing and session timing configuration.
type Pipeline struct {
	WindowSeconds       int `toml:"window_seconds"`
	StaleSignalSeconds  int `toml:"stale_signal_seconds"`
	LookbackWindows     int `toml:"lookback_windows"`
	IngestBufferSamples int `toml:"ingest_buffer_samples"`
}

// ChangePoint contains density-ratio scoring parameters. Alpha and the
// regularization constant are empirically chosen; both are exposed here
// rather than hard-coded.
type ChangePoint struct {
	Alpha           float64 `toml:"alpha"`
	Regularization  float64 `toml:"regularization"`
	SubWindowLength int     `toml:"subwindow_samples"`
}

// Predictions contains dual-sink persistence configuration.
type Predictions struct {
	CacheTTLSeconds   int `toml:"cache_ttl_seconds"`
	CacheSweepSeconds int `toml:"cache_sweep_seconds"`
	WriteRetryLimit   int `toml:"write_retry_limit"`
	WriteRetryBaseMs  int `toml:"write_retry_base_ms"`
}

// Video describes one stimulus video and its static valence/arousal quadrant.
// The quadrant labels come from the experimental design of the stimulus set,
// not from the measured signal.
type Video struct {
	ID         int64 `toml:"id"`
	Valence    int   `toml:"valence"`
	Arousal    int   `toml:"arousal"`
	DurationMs int64 `toml:"duration_ms"`
}

// Cluster contains the precomputed user-profile centroids. Each centroid is a
// fixed 8-dimensional vector; assignment is nearest-centroid by Euclidean
// distance.
type Cluster struct {
	Centroids       [][]float64 `toml:"centroids"`
	HistoryWindows  int         `toml:"history_windows"`
	DeviationScale  float64     `toml:"deviation_scale"`
}

// MQTT contains configuration for the optional broker-based sample ingest.
type MQTT struct {
	Enabled  bool   `toml:"enabled"`
	Broker   string `toml:"broker"`
	Topic    string `toml:"topic"`
	ClientID string `toml:"client_id"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the affect daemon.
//
// Configuration sections by subsystem:
//   - Paths: data/log/model directories and API bind address
//   - Pipeline: window duration and session staleness thresholds
//   - ChangePoint: density-ratio scoring tunables
//   - Predictions: permanent log + TTL cache settings
//   - Videos: stimulus catalog with static valence/arousal quadrants
//   - Cluster: precomputed profile centroids for model selection
//   - MQTT: optional broker-based sample ingest
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Pipeline    Pipeline    `toml:"pipeline"`
	ChangePoint ChangePoint `toml:"changepoint"`
	Predictions Predictions `toml:"predictions"`
	Videos      []Video     `toml:"videos"`
	Cluster     Cluster     `toml:"cluster"`
	MQTT        MQTT        `toml:"mqtt"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/affect/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path and the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("affect.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ModelDir) != "" {
		// Best-effort so the daemon can start before models are installed.
		_ = os.MkdirAll(c.Paths.ModelDir, 0o755)
	}
	return nil
}

// WindowDuration returns the fixed analysis window length.
func (c *Config) WindowDuration() time.Duration {
	return time.Duration(c.Pipeline.WindowSeconds) * time.Second
}

// StaleSignalThreshold returns how long a session may go without samples
// before a staleness warning is emitted.
func (c *Config) StaleSignalThreshold() time.Duration {
	return time.Duration(c.Pipeline.StaleSignalSeconds) * time.Second
}

// CacheTTL returns the active-prediction cache expiry horizon.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Predictions.CacheTTLSeconds) * time.Second
}

// VideoByID returns the stimulus catalog entry for the given id.
func (c *Config) VideoByID(id int64) (Video, bool) {
	for _, v := range c.Videos {
		if v.ID == id {
			return v, true
		}
	}
	return Video{}, false
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading ~ and returns the cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
