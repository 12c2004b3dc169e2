// controller/policy_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/service"
	"github.com/dev-mohitbeniwal/modelgate/util"
	helper_util "github.com/dev-mohitbeniwal/modelgate/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
	now           func() time.Time
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
		now:           time.Now,
	}
}

type policyRequest struct {
	Name         string `json:"name" binding:"required"`
	DailyLimit   *int   `json:"daily_limit" binding:"required"`
	MonthlyLimit *int   `json:"monthly_limit" binding:"required"`
}

func (r policyRequest) toModel() model.AccessPolicy {
	return model.AccessPolicy{Name: r.Name, DailyLimit: *r.DailyLimit, MonthlyLimit: *r.MonthlyLimit}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.PUT("/:id", pc.UpdatePolicy)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("", pc.ListPolicies)
	}
	r.GET("/audit", pc.QueryAuditLogs)
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", gate_errors.ErrInvalidPolicyData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c, req.toModel(), userID)
	if err != nil {
		util.RespondWithDomainError(c, "Failed to create policy", err)
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	policy := req.toModel()
	policy.ID = c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedPolicy, err := pc.policyService.UpdatePolicy(c, policy, userID)
	if err != nil {
		util.RespondWithDomainError(c, "Failed to update policy", err)
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policy, err := pc.policyService.GetPolicy(c, c.Param("id"))
	if err != nil {
		util.RespondWithDomainError(c, "Failed to get policy", err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	policies, err := pc.policyService.ListPolicies(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	c.JSON(http.StatusOK, policies)
}

// QueryAuditLogs endpoint
func (pc *PolicyController) QueryAuditLogs(c *gin.Context) {
	from, to, err := helper_util.ParseTimeRange(c.Query("from"), c.Query("to"), pc.now())
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid time range", err)
		return
	}

	logs, err := pc.policyService.QueryAuditLogs(c, from, to, c.Query("user_id"), c.Query("model_id"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
