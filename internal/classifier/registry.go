package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"

	"affect/internal/logging"
)

// ErrUnavailable indicates no model is loaded for the requested cluster.
// Windows routed to a missing model fail individually; the session keeps
// running.
var ErrUnavailable = errors.New("classifier unavailable")

var modelFilePattern = regexp.MustCompile(`^cluster_(\d+)\.json$`)

// Registry holds the loaded per-cluster models. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	models map[int]Classifier
}

// NewRegistry builds a registry from an explicit model table. Used by tests
// and by callers that construct models in memory.
func NewRegistry(models map[int]Classifier) *Registry {
	if models == nil {
		models = make(map[int]Classifier)
	}
	return &Registry{models: models}
}

// LoadRegistry scans modelDir for cluster_<id>.json files and loads each
// one. A malformed file fails the whole load so a bad deploy is caught at
// startup rather than mid-session.
func LoadRegistry(modelDir string, logger *slog.Logger) (*Registry, error) {
	log := logging.NewComponentLogger(logger, "classifier")
	entries, err := filepath.Glob(filepath.Join(modelDir, "cluster_*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan model directory %s: %w", modelDir, err)
	}

	models := make(map[int]Classifier, len(entries))
	for _, path := range entries {
		match := modelFilePattern.FindStringSubmatch(filepath.Base(path))
		if match == nil {
			continue
		}
		id, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		model, err := LoadModel(path)
		if err != nil {
			return nil, err
		}
		models[id] = model
		log.Info("classifier model loaded",
			logging.Int("cluster_id", id),
			logging.Int("look_back", model.LookBack()),
			logging.String("path", path),
		)
	}
	if len(models) == 0 {
		log.Warn("no classifier models found, predictions will be unavailable",
			logging.String("model_dir", modelDir))
	}
	return &Registry{models: models}, nil
}

// Get returns the model for a cluster, or ErrUnavailable.
func (r *Registry) Get(clusterID int) (Classifier, error) {
	model, ok := r.models[clusterID]
	if !ok {
		return nil, fmt.Errorf("cluster %d: %w", clusterID, ErrUnavailable)
	}
	return model, nil
}

// Clusters lists the cluster ids with a loaded model.
func (r *Registry) Clusters() []int {
	ids := make([]int, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}

// Len reports how many models are loaded.
func (r *Registry) Len() int {
	return len(r.models)
}
