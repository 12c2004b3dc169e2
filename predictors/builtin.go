// Package predictors provides the models that ship with the service.
package predictors

import (
	"fmt"

	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/registry"
)

var (
	LinregMetadata = model.ModelMetadata{
		ID:             "1",
		Name:           "linreg_placeholder",
		Problem:        "regression",
		Category:       "linear",
		Version:        "0.0.1",
		AccessPolicyID: model.BasePolicyID,
	}
	TemperatureMetadata = model.ModelMetadata{
		ID:             "2",
		Name:           "temperature_model",
		Problem:        "regression",
		Category:       "temperature",
		Version:        "1.0.0",
		AccessPolicyID: model.BasePolicyID,
	}
)

// RegisterBuiltins trains the built-in models and adds them to r.
func RegisterBuiltins(r *registry.Registry) error {
	if err := r.Register(LinregMetadata, NewLinearPlaceholder(0).Predict); err != nil {
		return err
	}

	temperature, err := NewTemperatureModel()
	if err != nil {
		return fmt.Errorf("train %s: %w", TemperatureMetadata.Name, err)
	}
	return r.Register(TemperatureMetadata, temperature.Predict)
}
