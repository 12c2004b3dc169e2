// controller/policy_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/modelgate/audit"
	"github.com/dev-mohitbeniwal/modelgate/controller"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
	mock_service "github.com/dev-mohitbeniwal/modelgate/test/service_mock"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

// setupRouter stands in for the identity middleware.
func setupRouter(userID string, admin bool) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/", func(c *gin.Context) {
		if userID != "" {
			c.Set(util.ContextUserID, userID)
			c.Set(util.ContextIsAdmin, admin)
		}
		c.Next()
	})
	return r, api
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPolicyController(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockPolicyService := mock_service.NewMockIPolicyService(ctrl)
	router, api := setupRouter("admin-1", true)
	controller.NewPolicyController(mockPolicyService).RegisterRoutes(api)

	t.Run("CreatePolicy_Success", func(t *testing.T) {
		mockPolicyService.EXPECT().
			CreatePolicy(gomock.Any(), model.AccessPolicy{Name: "gold", DailyLimit: 10, MonthlyLimit: 0}, "admin-1").
			Return(&model.AccessPolicy{ID: "p1", Name: "gold", DailyLimit: 10}, nil)

		w := serve(router, http.MethodPost, "/policies", `{"name":"gold","daily_limit":10,"monthly_limit":0}`)
		assert.Equal(t, http.StatusCreated, w.Code)

		var got model.AccessPolicy
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "p1", got.ID)
	})

	t.Run("CreatePolicy_MissingLimits", func(t *testing.T) {
		w := serve(router, http.MethodPost, "/policies", `{"name":"gold"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("CreatePolicy_Conflict", func(t *testing.T) {
		mockPolicyService.EXPECT().
			CreatePolicy(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, gate_errors.ErrPolicyConflict)

		w := serve(router, http.MethodPost, "/policies", `{"name":"gold","daily_limit":1,"monthly_limit":1}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("UpdatePolicy_Success", func(t *testing.T) {
		mockPolicyService.EXPECT().
			UpdatePolicy(gomock.Any(), model.AccessPolicy{ID: "p1", Name: "gold", DailyLimit: 5, MonthlyLimit: 50}, "admin-1").
			Return(&model.AccessPolicy{ID: "p1", Name: "gold", DailyLimit: 5, MonthlyLimit: 50}, nil)

		w := serve(router, http.MethodPut, "/policies/p1", `{"name":"gold","daily_limit":5,"monthly_limit":50}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpdatePolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.EXPECT().
			UpdatePolicy(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, gate_errors.ErrPolicyNotFound)

		w := serve(router, http.MethodPut, "/policies/p9", `{"name":"gold","daily_limit":5,"monthly_limit":50}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetPolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.EXPECT().
			GetPolicy(gomock.Any(), "p9").
			Return(nil, gate_errors.ErrPolicyNotFound)

		w := serve(router, http.MethodGet, "/policies/p9", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListPolicies_Pagination", func(t *testing.T) {
		mockPolicyService.EXPECT().
			ListPolicies(gomock.Any(), 5, 10).
			Return([]model.AccessPolicy{{ID: "base", Name: "base"}}, nil)

		w := serve(router, http.MethodGet, "/policies?limit=5&offset=10", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = serve(router, http.MethodGet, "/policies?limit=-1", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("QueryAuditLogs", func(t *testing.T) {
		from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		mockPolicyService.EXPECT().
			QueryAuditLogs(gomock.Any(), from, to, "u1", "").
			Return([]audit.AuditLog{{UserID: "u1", Action: audit.ActionAdmitCall}}, nil)

		w := serve(router, http.MethodGet, "/audit?from=2024-05-01T00:00:00Z&to=2024-05-02T00:00:00Z&user_id=u1", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = serve(router, http.MethodGet, "/audit?from=yesterday", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGrantController(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockGrantService := mock_service.NewMockIGrantService(ctrl)
	router, api := setupRouter("admin-1", true)
	controller.NewGrantController(mockGrantService).RegisterRoutes(api)

	t.Run("GrantAccess_Success", func(t *testing.T) {
		mockGrantService.EXPECT().
			GrantAccess(gomock.Any(), model.AccessGrant{UserID: "u1", ModelID: "2"}, "admin-1").
			Return(&model.AccessGrant{UserID: "u1", ModelID: "2", PolicyID: "base", Granted: true}, nil)

		w := serve(router, http.MethodPost, "/grants", `{"user_id":"u1","model_id":"2"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("GrantAccess_Errors", func(t *testing.T) {
		mockGrantService.EXPECT().
			GrantAccess(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, gate_errors.ErrGrantConflict)
		w := serve(router, http.MethodPost, "/grants", `{"user_id":"u1","model_id":"2"}`)
		assert.Equal(t, http.StatusConflict, w.Code)

		mockGrantService.EXPECT().
			GrantAccess(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, gate_errors.ErrModelNotFound)
		w = serve(router, http.MethodPost, "/grants", `{"user_id":"u1","model_id":"404"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = serve(router, http.MethodPost, "/grants", `{"user_id":"u1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("BulkGrantAccess", func(t *testing.T) {
		mockGrantService.EXPECT().
			BulkGrantAccess(gomock.Any(), gomock.Len(2), "admin-1").
			Return([]model.AccessGrant{{UserID: "a"}, {UserID: "b"}}, nil)

		w := serve(router, http.MethodPost, "/grants/bulk", `[{"user_id":"a","model_id":"2"},{"user_id":"b","model_id":"2"}]`)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = serve(router, http.MethodPost, "/grants/bulk", `[]`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RevokeAccess", func(t *testing.T) {
		mockGrantService.EXPECT().RevokeAccess(gomock.Any(), "u1", "2", "admin-1").Return(nil)
		w := serve(router, http.MethodDelete, "/grants/u1/2", "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		mockGrantService.EXPECT().RevokeAccess(gomock.Any(), "u9", "2", "admin-1").Return(gate_errors.ErrGrantNotFound)
		w = serve(router, http.MethodDelete, "/grants/u9/2", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetGrant", func(t *testing.T) {
		mockGrantService.EXPECT().GetGrant(gomock.Any(), "u1", "2").
			Return(&model.AccessGrant{UserID: "u1", ModelID: "2", CallCount: 3}, nil)
		w := serve(router, http.MethodGet, "/grants/u1/2", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"call_count":3`)
	})
}
