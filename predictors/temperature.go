package predictors

import (
	"context"
	"math"
	"math/rand"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
)

const (
	temperatureSeed    = 42
	temperatureSamples = 1000
)

type featureRange struct {
	name     string
	min, max int
}

var temperatureFeatures = []featureRange{
	{"latitude", -90, 90},
	{"longitude", -180, 180},
	{"month", 1, 12},
	{"hour", 0, 23},
}

// TemperatureModel predicts a temperature from position and time of year.
type TemperatureModel struct {
	fit *linearModel
}

// NewTemperatureModel trains on a deterministic synthetic dataset.
func NewTemperatureModel() (*TemperatureModel, error) {
	rnd := rand.New(rand.NewSource(temperatureSeed))
	x := make([][]float64, temperatureSamples)
	y := make([]float64, temperatureSamples)
	for i := range x {
		lat := float64(rnd.Intn(180) - 90)
		lon := float64(rnd.Intn(360) - 180)
		month := float64(rnd.Intn(12) + 1)
		hour := float64(rnd.Intn(24))
		x[i] = []float64{lat, lon, month, hour}
		y[i] = 30 - math.Abs(lat)/3 +
			math.Sin((month-1)/12*2*math.Pi)*10 +
			math.Cos((hour-12)/24*2*math.Pi)*5 +
			rnd.NormFloat64()*2
	}

	fit, err := fitOLS(x, y)
	if err != nil {
		return nil, err
	}
	return &TemperatureModel{fit: fit}, nil
}

// Predict expects integral latitude, longitude, month and hour fields.
func (t *TemperatureModel) Predict(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, gate_errors.WrapExecution(gate_errors.KindTimeout, err)
	}

	features := make([]float64, len(temperatureFeatures))
	for i, f := range temperatureFeatures {
		raw, ok := input[f.name]
		if !ok || raw == nil {
			return nil, gate_errors.NewExecutionError(gate_errors.KindMalformedInput, "field %q is required", f.name)
		}
		v, err := integral(f.name, raw)
		if err != nil {
			return nil, err
		}
		if v < f.min || v > f.max {
			return nil, gate_errors.NewExecutionError(gate_errors.KindOutOfRange,
				"field %q must be between %d and %d, got %d", f.name, f.min, f.max, v)
		}
		features[i] = float64(v)
	}

	return map[string]interface{}{"temperature": t.fit.predict(features)}, nil
}

func integral(name string, raw interface{}) (int, error) {
	var f float64
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return 0, gate_errors.NewExecutionError(gate_errors.KindTypeMismatch, "field %q must be an integer, got %T", name, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, gate_errors.NewExecutionError(gate_errors.KindTypeMismatch, "field %q must be an integer, got %v", name, f)
	}
	if math.Abs(f) > 1e9 {
		return 0, gate_errors.NewExecutionError(gate_errors.KindOutOfRange, "field %q is out of range: %v", name, f)
	}
	return int(f), nil
}
