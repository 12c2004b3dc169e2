// controller/inference_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/service"
	"github.com/dev-mohitbeniwal/modelgate/util"
	helper_util "github.com/dev-mohitbeniwal/modelgate/util/helper"
)

type InferenceController struct {
	inferenceService service.IInferenceService
}

func NewInferenceController(inferenceService service.IInferenceService) *InferenceController {
	return &InferenceController{inferenceService: inferenceService}
}

type submitRequest struct {
	Input map[string]interface{} `json:"input"`
}

type jobStatusResponse struct {
	JobID         string                 `json:"job_id"`
	ModelID       string                 `json:"model_id"`
	State         model.JobState         `json:"state"`
	Result        map[string]interface{} `json:"result,omitempty"`
	Error         *model.JobError        `json:"error,omitempty"`
	Attempts      int                    `json:"attempts"`
	RetryDelaysMs []int64                `json:"retry_delays_ms"`
	CacheHit      bool                   `json:"cache_hit"`
	RequestedAt   time.Time              `json:"requested_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
}

func newJobStatusResponse(s *model.JobStatus) jobStatusResponse {
	return jobStatusResponse{
		JobID:         s.JobID,
		ModelID:       s.ModelID,
		State:         s.State,
		Result:        s.Result,
		Error:         s.Error,
		Attempts:      s.Attempts,
		RetryDelaysMs: helper_util.Millis(s.RetryDelays),
		CacheHit:      s.CacheHit,
		RequestedAt:   s.RequestedAt,
		UpdatedAt:     s.UpdatedAt,
		CompletedAt:   s.CompletedAt,
	}
}

// RegisterRoutes registers the API routes
func (ic *InferenceController) RegisterRoutes(r *gin.RouterGroup) {
	models := r.Group("/models")
	{
		models.GET("", ic.ListModels)
		models.GET("/:id", ic.GetModel)
		models.POST("/:id/jobs", ic.SubmitJob)
	}
	r.GET("/jobs/:id", ic.GetJobStatus)
}

// ListModels endpoint
func (ic *InferenceController) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, ic.inferenceService.ListModels(c))
}

// GetModel endpoint
func (ic *InferenceController) GetModel(c *gin.Context) {
	metadata, err := ic.inferenceService.GetModelMetadata(c, c.Param("id"))
	if err != nil {
		util.RespondWithDomainError(c, "Failed to get model", err)
		return
	}
	c.JSON(http.StatusOK, metadata)
}

// SubmitJob endpoint
func (ic *InferenceController) SubmitJob(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid job input", gate_errors.ErrInvalidInput)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	decision, err := ic.inferenceService.SubmitJob(c, userID, c.Param("id"), req.Input)
	if err != nil {
		var denied *gate_errors.AdmissionDeniedError
		if errors.As(err, &denied) {
			util.RespondWithError(c, http.StatusForbidden, denied.Reason, err)
			return
		}
		util.RespondWithDomainError(c, "Failed to submit job", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": decision.JobID})
}

// GetJobStatus endpoint
func (ic *InferenceController) GetJobStatus(c *gin.Context) {
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	status, err := ic.inferenceService.GetJobStatus(c, userID, c.GetBool(util.ContextIsAdmin), c.Param("id"))
	if err != nil {
		util.RespondWithDomainError(c, "Failed to get job status", err)
		return
	}
	c.JSON(http.StatusOK, newJobStatusResponse(status))
}
