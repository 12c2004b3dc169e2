// controller/controllers.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/modelgate/service"
)

type Controllers struct {
	Policy    *PolicyController
	Grant     *GrantController
	Inference *InferenceController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Policy:    NewPolicyController(services.Policy),
		Grant:     NewGrantController(services.Grant),
		Inference: NewInferenceController(services.Inference),
	}
}

// Health endpoint
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
