// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dev-mohitbeniwal/modelgate/controller"
	"github.com/dev-mohitbeniwal/modelgate/middleware"
)

type Options struct {
	AdminGroup        string
	RateLimitRequests int
	RateLimitDuration time.Duration
	Gatherer          prometheus.Gatherer
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	if opts.AdminGroup == "" {
		opts.AdminGroup = "admin"
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger("/api/v1/health", "/metrics"))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	api.GET("/health", controller.Health)

	caller := api.Group("")
	caller.Use(middleware.Identity(opts.AdminGroup))
	caller.Use(middleware.RateLimiter(opts.RateLimitRequests, opts.RateLimitDuration))
	controllers.Inference.RegisterRoutes(caller)

	admin := caller.Group("")
	admin.Use(middleware.GroupAuthMiddleware([]string{opts.AdminGroup}))
	controllers.Policy.RegisterRoutes(admin)
	controllers.Grant.RegisterRoutes(admin)

	return router
}
