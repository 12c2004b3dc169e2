// controller/grant_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/service"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

const maxBulkGrants = 100

type GrantController struct {
	grantService service.IGrantService
}

func NewGrantController(grantService service.IGrantService) *GrantController {
	return &GrantController{grantService: grantService}
}

type grantRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	ModelID  string `json:"model_id" binding:"required"`
	PolicyID string `json:"policy_id"`
}

func (r grantRequest) toModel() model.AccessGrant {
	return model.AccessGrant{UserID: r.UserID, ModelID: r.ModelID, PolicyID: r.PolicyID}
}

// RegisterRoutes registers the API routes
func (gc *GrantController) RegisterRoutes(r *gin.RouterGroup) {
	grants := r.Group("/grants")
	{
		grants.POST("", gc.GrantAccess)
		grants.POST("/bulk", gc.BulkGrantAccess)
		grants.GET("/:userId", gc.ListUserGrants)
		grants.GET("/:userId/:modelId", gc.GetGrant)
		grants.DELETE("/:userId/:modelId", gc.RevokeAccess)
	}
}

// GrantAccess endpoint
func (gc *GrantController) GrantAccess(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", gate_errors.ErrInvalidGrantData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	grant, err := gc.grantService.GrantAccess(c, req.toModel(), userID)
	if err != nil {
		util.RespondWithDomainError(c, "Failed to grant access", err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// BulkGrantAccess endpoint
func (gc *GrantController) BulkGrantAccess(c *gin.Context) {
	var reqs []grantRequest
	if err := c.ShouldBindJSON(&reqs); err != nil || len(reqs) == 0 || len(reqs) > maxBulkGrants {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid grant data", gate_errors.ErrInvalidGrantData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	grants := make([]model.AccessGrant, len(reqs))
	for i, req := range reqs {
		grants[i] = req.toModel()
	}
	created, err := gc.grantService.BulkGrantAccess(c, grants, userID)
	if err != nil {
		util.RespondWithDomainError(c, "Failed to grant access", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetGrant endpoint
func (gc *GrantController) GetGrant(c *gin.Context) {
	grant, err := gc.grantService.GetGrant(c, c.Param("userId"), c.Param("modelId"))
	if err != nil {
		util.RespondWithDomainError(c, "Failed to get grant", err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// ListUserGrants endpoint
func (gc *GrantController) ListUserGrants(c *gin.Context) {
	grants, err := gc.grantService.ListUserGrants(c, c.Param("userId"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list grants", err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// RevokeAccess endpoint
func (gc *GrantController) RevokeAccess(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	if err := gc.grantService.RevokeAccess(c, c.Param("userId"), c.Param("modelId"), userID); err != nil {
		util.RespondWithDomainError(c, "Failed to revoke access", err)
		return
	}
	c.Status(http.StatusNoContent)
}
