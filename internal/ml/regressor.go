package ml

import (
	"fmt"
	"math"
)

// Tree is one fitted regression tree in flat array form. Node i is a leaf
// when Left[i] is -1; otherwise samples with x[Feature[i]] <= Threshold[i]
// go to Left[i] and the rest to Right[i].
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

const leaf = -1

func (t *Tree) validate(nFeatures int) error {
	n := len(t.Value)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Feature) != n || len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n {
		return fmt.Errorf("tree arrays have different lengths")
	}
	for i := 0; i < n; i++ {
		if t.Left[i] == leaf {
			continue
		}
		// Children always follow their parent, so traversal terminates
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, t.Feature[i], nFeatures)
		}
	}
	return nil
}

func (t *Tree) predict(x []float64) float64 {
	node := 0
	for t.Left[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return t.Value[node]
}

// RandomForest averages the predictions of its trees.
type RandomForest struct {
	Version   string `json:"version"`
	NFeatures int    `json:"n_features"`
	Trees     []Tree `json:"trees"`
}

// Validate checks the forest's structure.
func (f *RandomForest) Validate() error {
	if f.NFeatures <= 0 {
		return fmt.Errorf("random forest needs a positive feature count")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("random forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// InputWidth is the expected feature vector length.
func (f *RandomForest) InputWidth() int { return f.NFeatures }

// Predict implements Predictor.
func (f *RandomForest) Predict(features []float64) (float64, error) {
	if len(features) != f.NFeatures {
		return 0, &SchemaMismatchError{Expected: f.NFeatures, Got: len(features)}
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(features)
	}
	return sum / float64(len(f.Trees)), nil
}

// LinearRegressor is an ordinary least squares model.
type LinearRegressor struct {
	Version      string    `json:"version"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Validate checks the regressor's parameters.
func (l *LinearRegressor) Validate() error {
	if len(l.Coefficients) == 0 {
		return fmt.Errorf("linear model has no coefficients")
	}
	for i, c := range l.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	return nil
}

// InputWidth is the expected feature vector length.
func (l *LinearRegressor) InputWidth() int { return len(l.Coefficients) }

// Predict implements Predictor.
func (l *LinearRegressor) Predict(features []float64) (float64, error) {
	if len(features) != len(l.Coefficients) {
		return 0, &SchemaMismatchError{Expected: len(l.Coefficients), Got: len(features)}
	}
	y := l.Intercept
	for i, c := range l.Coefficients {
		y += c * features[i]
	}
	return y, nil
}
