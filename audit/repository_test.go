package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElasticsearchRepository(t *testing.T) {
	var indexed AuditLog
	var searchBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		body, _ := io.ReadAll(r.Body)

		switch {
		case strings.HasPrefix(r.URL.Path, "/modelgate-audit/_doc/"):
			assert.NoError(t, json.Unmarshal(body, &indexed))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result":"created"}`))
		case r.URL.Path == "/modelgate-audit/_search":
			searchBody = string(body)
			w.Write([]byte(`{"hits":{"hits":[{"_source":{"user_id":"u1","model_id":"2","action":"ADMIT_CALL","access_granted":false,"reason":"Daily API call limit exceeded"}}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	repo, err := NewElasticsearchRepository(server.URL, "modelgate-audit")
	require.NoError(t, err)
	svc := NewService(repo)

	ctx := context.Background()
	require.NoError(t, svc.LogAccess(ctx, AuditLog{
		UserID:        "u1",
		Action:        ActionAdmitCall,
		ModelID:       "2",
		AccessGranted: true,
		PolicyID:      "base",
		Reason:        "Access granted",
	}))
	assert.Equal(t, "u1", indexed.UserID)
	assert.True(t, indexed.AccessGranted)
	assert.False(t, indexed.Timestamp.IsZero(), "service stamps missing timestamps")

	now := time.Now()
	logs, err := svc.QueryLogs(ctx, now.Add(-time.Hour), now, "u1", "2")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Daily API call limit exceeded", logs[0].Reason)
	assert.Contains(t, searchBody, `"user_id":"u1"`)
	assert.Contains(t, searchBody, `"model_id":"2"`)
}

func TestElasticsearchRepository_IndexError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo, err := NewElasticsearchRepository(server.URL, "modelgate-audit")
	require.NoError(t, err)
	assert.Error(t, repo.LogAccess(context.Background(), AuditLog{UserID: "u1"}))
}

func TestLogRepository(t *testing.T) {
	repo := NewLogRepository()
	require.NoError(t, repo.LogAccess(context.Background(), AuditLog{UserID: "u1", Action: ActionAdmitCall}))
	logs, err := repo.QueryLogs(context.Background(), time.Now(), time.Now(), "", "")
	require.NoError(t, err)
	assert.Empty(t, logs)
}
