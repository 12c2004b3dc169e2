// util/validation_util.go

package util

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

type ValidationUtil struct {
	validate *validator.Validate
}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *ValidationUtil) ValidatePolicy(policy model.AccessPolicy) error {
	if err := v.validate.Struct(policy); err != nil {
		return fmt.Errorf("%w: %s", gate_errors.ErrInvalidPolicyData, describe(err))
	}
	if policy.MonthlyLimit < policy.DailyLimit {
		return fmt.Errorf("%w: monthly limit cannot be lower than daily limit", gate_errors.ErrInvalidPolicyData)
	}
	return nil
}

func (v *ValidationUtil) ValidateGrant(grant model.AccessGrant) error {
	if err := v.validate.Struct(grant); err != nil {
		return fmt.Errorf("%w: %s", gate_errors.ErrInvalidGrantData, describe(err))
	}
	return nil
}

// ValidateSubmission checks the envelope of a job submission. The input
// itself is validated by the model that receives it.
func (v *ValidationUtil) ValidateSubmission(userID, modelID string, input map[string]interface{}) error {
	if err := v.validate.Var(userID, "required,max=64"); err != nil {
		return fmt.Errorf("%w: user id %s", gate_errors.ErrInvalidInput, describe(err))
	}
	if err := v.validate.Var(modelID, "required,max=64"); err != nil {
		return fmt.Errorf("%w: model id %s", gate_errors.ErrInvalidInput, describe(err))
	}
	if len(input) > 256 {
		return fmt.Errorf("%w: too many input fields", gate_errors.ErrInvalidInput)
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Field() == "" {
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
	return fmt.Sprintf("field %s failed on '%s'", fe.Field(), fe.Tag())
}
