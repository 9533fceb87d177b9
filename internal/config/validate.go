package config

import (
	"errors"
	"fmt"
	"strings"
)

const centroidDimensions = 8

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateChangePoint(); err != nil {
		return err
	}
	if err := c.validatePredictions(); err != nil {
		return err
	}
	if err := c.validateVideos(); err != nil {
		return err
	}
	if err := c.validateCluster(); err != nil {
		return err
	}
	if err := c.validateMQTT(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.window_seconds":        c.Pipeline.WindowSeconds,
		"pipeline.stale_signal_seconds":  c.Pipeline.StaleSignalSeconds,
		"pipeline.lookback_windows":      c.Pipeline.LookbackWindows,
		"pipeline.ingest_buffer_samples": c.Pipeline.IngestBufferSamples,
	}); err != nil {
		return err
	}
	if c.Pipeline.StaleSignalSeconds <= c.Pipeline.WindowSeconds {
		return errors.New("pipeline.stale_signal_seconds must be greater than pipeline.window_seconds")
	}
	return nil
}

func (c *Config) validateChangePoint() error {
	if c.ChangePoint.Alpha < 0 || c.ChangePoint.Alpha >= 1 {
		return errors.New("changepoint.alpha must be in [0, 1)")
	}
	if c.ChangePoint.Regularization <= 0 {
		return errors.New("changepoint.regularization must be positive")
	}
	if c.ChangePoint.SubWindowLength < 2 {
		return errors.New("changepoint.subwindow_samples must be at least 2")
	}
	return nil
}

func (c *Config) validatePredictions() error {
	return ensurePositiveMap(map[string]int{
		"predictions.cache_ttl_seconds":   c.Predictions.CacheTTLSeconds,
		"predictions.cache_sweep_seconds": c.Predictions.CacheSweepSeconds,
		"predictions.write_retry_limit":   c.Predictions.WriteRetryLimit,
		"predictions.write_retry_base_ms": c.Predictions.WriteRetryBaseMs,
	})
}

func (c *Config) validateVideos() error {
	if len(c.Videos) == 0 {
		return errors.New("videos: at least one stimulus video must be configured")
	}
	seen := make(map[int64]struct{}, len(c.Videos))
	for _, v := range c.Videos {
		if v.ID <= 0 {
			return fmt.Errorf("videos: id %d must be positive", v.ID)
		}
		if _, ok := seen[v.ID]; ok {
			return fmt.Errorf("videos: duplicate id %d", v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.Valence != 0 && v.Valence != 1 {
			return fmt.Errorf("videos: id %d valence must be 0 or 1", v.ID)
		}
		if v.Arousal != 0 && v.Arousal != 1 {
			return fmt.Errorf("videos: id %d arousal must be 0 or 1", v.ID)
		}
	}
	return nil
}

func (c *Config) validateCluster() error {
	if len(c.Cluster.Centroids) == 0 {
		return errors.New("cluster.centroids must contain at least one centroid")
	}
	for i, centroid := range c.Cluster.Centroids {
		if len(centroid) != centroidDimensions {
			return fmt.Errorf("cluster.centroids[%d] must have %d dimensions, got %d", i, centroidDimensions, len(centroid))
		}
	}
	if c.Cluster.HistoryWindows <= 0 {
		return errors.New("cluster.history_windows must be positive")
	}
	if c.Cluster.DeviationScale <= 0 {
		return errors.New("cluster.deviation_scale must be positive")
	}
	return nil
}

func (c *Config) validateMQTT() error {
	if !c.MQTT.Enabled {
		return nil
	}
	if strings.TrimSpace(c.MQTT.Broker) == "" {
		return errors.New("mqtt.broker must be set when mqtt.enabled is true")
	}
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		return errors.New("mqtt.topic must be set when mqtt.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
