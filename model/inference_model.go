// model/inference_model.go
package model

// ModelMetadata describes a registered model. The executable itself is
// held by the registry and never serialized.
type ModelMetadata struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Problem        string `json:"problem"`
	Category       string `json:"category,omitempty"`
	Version        string `json:"version,omitempty"`
	AccessPolicyID string `json:"access_policy_id,omitempty"`
}
