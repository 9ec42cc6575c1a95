// Package linear loads a linear regression artifact stored as CSV coefficients.
//
// The file has a feature,weight header, one intercept row and one row per model
// feature in training order:
//
//	feature,weight
//	intercept,41.7
//	Latitude,0.82
//	...
package linear

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"github.com/greennav/greennav/internal/prediction"
)

// Name identifies this model kind.
const Name = "linear"

const interceptKey = "intercept"

type coefficient struct {
	Feature string  `csv:"feature"`
	Weight  float64 `csv:"weight"`
}

// Model is a fitted linear regressor.
type Model struct {
	intercept float64
	weights   []float64
	source    string
}

// Load reads a coefficient file. A missing file wraps os.ErrNotExist.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model artifact: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	m.source = path
	return m, nil
}

// Parse reads coefficients from r and checks them against prediction.FeatureNames.
func Parse(r io.Reader) (*Model, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []coefficient
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding coefficients: %w", err)
	}

	m := &Model{}
	haveIntercept := false
	for _, row := range rows {
		if row.Feature != interceptKey {
			m.weights = append(m.weights, row.Weight)
			if n := len(m.weights); n > len(prediction.FeatureNames) || prediction.FeatureNames[n-1] != row.Feature {
				return nil, fmt.Errorf("%w: unexpected feature %q at position %d", prediction.ErrFeatureMismatch, row.Feature, n-1)
			}
			continue
		}
		if haveIntercept {
			return nil, fmt.Errorf("%w: duplicate intercept", prediction.ErrFeatureMismatch)
		}
		m.intercept = row.Weight
		haveIntercept = true
	}

	if !haveIntercept {
		return nil, fmt.Errorf("%w: missing intercept", prediction.ErrFeatureMismatch)
	}
	if len(m.weights) != len(prediction.FeatureNames) {
		return nil, fmt.Errorf("%w: got %d features, want %d",
			prediction.ErrFeatureMismatch, len(m.weights), len(prediction.FeatureNames))
	}
	return m, nil
}

// Name returns the model name.
func (m *Model) Name() string {
	return Name
}

// Source returns the path the model was loaded from, if any.
func (m *Model) Source() string {
	return m.source
}

// Predict returns intercept + w·x, floored at zero.
func (m *Model) Predict(_ context.Context, row prediction.FeatureRow) (float64, error) {
	v := m.intercept
	for i, x := range row.Values() {
		v += m.weights[i] * x
	}
	if v < 0 {
		return 0, nil
	}
	return v, nil
}
