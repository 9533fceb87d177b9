package config

const (
	defaultDataDir             = "~/.local/share/affect/data"
	defaultLogDir              = "~/.local/share/affect/logs"
	defaultModelDir            = "~/.local/share/affect/models"
	defaultAPIBind             = "127.0.0.1:7821"
	defaultWindowSeconds       = 5
	defaultStaleSignalSeconds  = 60
	defaultLookbackWindows     = 3
	defaultIngestBufferSamples = 1024
	defaultChangeAlpha         = 0.1
	defaultRegularization      = 0.1
	defaultSubWindowLength     = 25
	defaultCacheTTLSeconds     = 3600
	defaultCacheSweepSeconds   = 60
	defaultWriteRetryLimit     = 5
	defaultWriteRetryBaseMs    = 100
	defaultHistoryWindows      = 8
	defaultDeviationScale      = 1.0
	defaultMQTTTopic           = "affect/signals/#"
	defaultLogFormat           = "text"
	defaultLogLevel            = "info"
)

// defaultCentroids are the precomputed user-profile cluster centroids from
// the reference study. Each row is one cluster's 8-dim profile vector
// (quadrant mean/std pairs).
var defaultCentroids = [][]float64{
	{0.13223871, 0.1163289, 0.12379743, 0.10381793, 0.13483915, 0.12861226, 0.13613065, 0.12001119},
	{0.32451873, 0.2192287, 0.36434825, 0.22801673, 0.35199746, 0.21530797, 0.31286902, 0.20634948},
}

// defaultVideos is the stimulus catalog: four canonical valence/arousal
// quadrants with their clip durations.
var defaultVideos = []Video{
	{ID: 1, Valence: 1, Arousal: 1, DurationMs: 180000},
	{ID: 2, Valence: 0, Arousal: 1, DurationMs: 151000},
	{ID: 3, Valence: 0, Arousal: 0, DurationMs: 160000},
	{ID: 4, Valence: 1, Arousal: 0, DurationMs: 117000},
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	centroids := make([][]float64, len(defaultCentroids))
	for i, row := range defaultCentroids {
		cp := make([]float64, len(row))
		copy(cp, row)
		centroids[i] = cp
	}
	videos := make([]Video, len(defaultVideos))
	copy(videos, defaultVideos)

	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			ModelDir: defaultModelDir,
			APIBind:  defaultAPIBind,
		},
		Pipeline: Pipeline{
			WindowSeconds:       defaultWindowSeconds,
			StaleSignalSeconds:  defaultStaleSignalSeconds,
			LookbackWindows:     defaultLookbackWindows,
			IngestBufferSamples: defaultIngestBufferSamples,
		},
		ChangePoint: ChangePoint{
			Alpha:           defaultChangeAlpha,
			Regularization:  defaultRegularization,
			SubWindowLength: defaultSubWindowLength,
		},
		Predictions: Predictions{
			CacheTTLSeconds:   defaultCacheTTLSeconds,
			CacheSweepSeconds: defaultCacheSweepSeconds,
			WriteRetryLimit:   defaultWriteRetryLimit,
			WriteRetryBaseMs:  defaultWriteRetryBaseMs,
		},
		Videos: videos,
		Cluster: Cluster{
			Centroids:      centroids,
			HistoryWindows: defaultHistoryWindows,
			DeviationScale: defaultDeviationScale,
		},
		MQTT: MQTT{
			Topic: defaultMQTTTopic,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
