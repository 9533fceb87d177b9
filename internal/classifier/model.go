package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Prediction is one classifier verdict: the winning probe and the full
// probability distribution in Probes order.
type Prediction struct {
	Probe         Probe
	Probabilities [4]float64
}

// Classifier scores a look-back sequence of feature vectors. The sequence is
// ordered oldest to newest and every vector must match the model's feature
// width.
type Classifier interface {
	Classify(sequence [][]float64) (Prediction, error)
	LookBack() int
}

// modelFile is the on-disk JSON layout of an exported model. Weights are
// indexed [class][timestep][feature].
type modelFile struct {
	ClusterID    int           `json:"cluster_id"`
	LookBack     int           `json:"look_back"`
	FeatureWidth int           `json:"feature_width"`
	Weights      [][][]float64 `json:"weights"`
	Bias         []float64     `json:"bias"`
}

// linearModel is a flattened sequence model: each class logit is a weighted
// sum over every timestep and feature of the look-back window, pushed
// through a softmax.
type linearModel struct {
	clusterID    int
	lookBack     int
	featureWidth int
	weights      [][][]float64
	bias         []float64
}

// LoadModel reads and validates one exported model file.
func LoadModel(path string) (Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var file modelFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	model := &linearModel{
		clusterID:    file.ClusterID,
		lookBack:     file.LookBack,
		featureWidth: file.FeatureWidth,
		weights:      file.Weights,
		bias:         file.Bias,
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return model, nil
}

func (m *linearModel) validate() error {
	if m.lookBack < 1 {
		return fmt.Errorf("look_back %d is not positive", m.lookBack)
	}
	if m.featureWidth < 1 {
		return fmt.Errorf("feature_width %d is not positive", m.featureWidth)
	}
	if len(m.weights) != len(Probes) {
		return fmt.Errorf("weights cover %d classes, expected %d", len(m.weights), len(Probes))
	}
	if len(m.bias) != len(Probes) {
		return fmt.Errorf("bias covers %d classes, expected %d", len(m.bias), len(Probes))
	}
	for class, perStep := range m.weights {
		if len(perStep) != m.lookBack {
			return fmt.Errorf("class %d weights cover %d timesteps, expected %d", class, len(perStep), m.lookBack)
		}
		for step, perFeature := range perStep {
			if len(perFeature) != m.featureWidth {
				return fmt.Errorf("class %d timestep %d has %d weights, expected %d", class, step, len(perFeature), m.featureWidth)
			}
		}
	}
	return nil
}

func (m *linearModel) LookBack() int {
	return m.lookBack
}

func (m *linearModel) Classify(sequence [][]float64) (Prediction, error) {
	if len(sequence) != m.lookBack {
		return Prediction{}, fmt.Errorf("sequence holds %d windows, model expects %d", len(sequence), m.lookBack)
	}
	for i, vector := range sequence {
		if len(vector) != m.featureWidth {
			return Prediction{}, fmt.Errorf("window %d has %d features, model expects %d", i, len(vector), m.featureWidth)
		}
	}

	var logits [4]float64
	for class := range Probes {
		logit := m.bias[class]
		for step, vector := range sequence {
			for f, value := range vector {
				logit += m.weights[class][step][f] * value
			}
		}
		logits[class] = logit
	}

	return Prediction{
		Probe:         Probes[argmax(logits)],
		Probabilities: softmax(logits),
	}, nil
}

// softmax shifts by the max logit before exponentiating so large weights do
// not overflow.
func softmax(logits [4]float64) [4]float64 {
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}
	var sum float64
	var out [4]float64
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the first index of the largest value, so ties resolve to
// the lowest class index.
func argmax(values [4]float64) int {
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}
