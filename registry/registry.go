// registry/registry.go

// Package registry maps model identifiers to their executables.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// Executable runs a model on one input. It should honour ctx cancellation
// and report failures as *errors.ExecutionError.
type Executable func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)

type entry struct {
	metadata   model.ModelMetadata
	executable Executable
}

// Registry is built once at startup and read concurrently afterwards.
type Registry struct {
	mu     sync.RWMutex
	models map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]entry)}
}

// Register adds a model. Registering the same id twice is an error.
func (r *Registry) Register(metadata model.ModelMetadata, executable Executable) error {
	if metadata.ID == "" {
		return fmt.Errorf("model id cannot be empty")
	}
	if executable == nil {
		return fmt.Errorf("model %s has no executable", metadata.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[metadata.ID]; exists {
		return fmt.Errorf("register model %s: %w", metadata.ID, gate_errors.ErrModelConflict)
	}
	r.models[metadata.ID] = entry{metadata: metadata, executable: executable}

	logger.Info("Model registered",
		zap.String("modelID", metadata.ID),
		zap.String("name", metadata.Name),
		zap.String("version", metadata.Version))
	return nil
}

// Resolve returns the executable registered under modelID.
func (r *Registry) Resolve(modelID string) (Executable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.models[modelID]
	if !ok {
		return nil, gate_errors.ErrModelNotFound
	}
	return e.executable, nil
}

// Metadata returns the description of modelID.
func (r *Registry) Metadata(modelID string) (*model.ModelMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.models[modelID]
	if !ok {
		return nil, gate_errors.ErrModelNotFound
	}
	metadata := e.metadata
	return &metadata, nil
}

func (r *Registry) Has(modelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.models[modelID]
	return ok
}

// List returns every model ordered by id.
func (r *Registry) List() []model.ModelMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ModelMetadata, 0, len(r.models))
	for _, e := range r.models {
		out = append(out, e.metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
