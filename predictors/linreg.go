package predictors

import (
	"context"
	"math/rand"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
)

const (
	linregSamples  = 100
	linregFeatures = 3
	linregNoise    = 0.1
)

// LinearPlaceholder fits a regression on generated data and returns its
// in-sample predictions. The input is ignored.
type LinearPlaceholder struct {
	seed int64
}

func NewLinearPlaceholder(seed int64) *LinearPlaceholder {
	return &LinearPlaceholder{seed: seed}
}

func (l *LinearPlaceholder) Predict(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, gate_errors.WrapExecution(gate_errors.KindTimeout, err)
	}

	rnd := rand.New(rand.NewSource(l.seed))
	truth := make([]float64, linregFeatures)
	for j := range truth {
		truth[j] = 100 * rnd.Float64()
	}

	x := make([][]float64, linregSamples)
	y := make([]float64, linregSamples)
	for i := range x {
		x[i] = make([]float64, linregFeatures)
		for j := range x[i] {
			x[i][j] = rnd.NormFloat64()
			y[i] += truth[j] * x[i][j]
		}
		y[i] += rnd.NormFloat64() * linregNoise
	}

	fit, err := fitOLS(x, y)
	if err != nil {
		return nil, gate_errors.WrapExecution(gate_errors.KindInternal, err)
	}

	predictions := make([]interface{}, linregSamples)
	for i := range x {
		predictions[i] = fit.predict(x[i])
	}
	return map[string]interface{}{"predictions": predictions}, nil
}
