// test/mock/neo4j.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCypherRunner is a mock implementation of dao.CypherRunner
type MockCypherRunner struct {
	mock.Mock
}

func (m *MockCypherRunner) Read(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	args := m.Called(ctx, query, params)
	rows, _ := args.Get(0).([]map[string]interface{})
	return rows, args.Error(1)
}

func (m *MockCypherRunner) Write(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	args := m.Called(ctx, query, params)
	rows, _ := args.Get(0).([]map[string]interface{})
	return rows, args.Error(1)
}
