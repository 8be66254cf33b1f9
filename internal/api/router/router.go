package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskpin/taskpin-be/internal/api/auth"
	"github.com/taskpin/taskpin-be/internal/api/handler"
	"github.com/taskpin/taskpin-be/internal/ratelimit"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, authn *auth.StoreAuthenticator, limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if !deps.RabbitClient.IsConnected() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "taskpin-api-service",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jobHandler := handler.NewJobHandler(deps)
	wsHandler := handler.NewWSHandler(deps.Logger, deps.Hub, authn, authn)

	limit := func(category ratelimit.Category) gin.HandlerFunc {
		return RateLimitMiddleware(limiter, category)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		agentJobs := v1.Group("/agent/jobs", auth.RequireAgent(authn))
		{
			agentJobs.POST("", limit(ratelimit.CategoryJobCreate), jobHandler.CreateJob)
			agentJobs.GET("", limit(ratelimit.CategoryJobRead), jobHandler.ListAgentJobs)
			agentJobs.GET("/:job_id", limit(ratelimit.CategoryJobRead), jobHandler.GetAgentJob)
			agentJobs.POST("/:job_id/approve", limit(ratelimit.CategoryJobAction), jobHandler.ApproveJob)
			agentJobs.POST("/:job_id/reject", limit(ratelimit.CategoryJobAction), jobHandler.RejectJob)
			agentJobs.POST("/:job_id/cancel", limit(ratelimit.CategoryJobAction), jobHandler.CancelJob)
			agentJobs.GET("/:job_id/deliverables", limit(ratelimit.CategoryJobRead), jobHandler.ListAgentDeliverables)
			agentJobs.GET("/:job_id/messages", limit(ratelimit.CategoryMessaging), jobHandler.ListAgentMessages)
			agentJobs.POST("/:job_id/messages", limit(ratelimit.CategoryMessaging), jobHandler.PostAgentMessage)
			agentJobs.POST("/:job_id/messages/read", limit(ratelimit.CategoryMessaging), jobHandler.MarkAgentMessagesRead)
			agentJobs.POST("/:job_id/review", limit(ratelimit.CategoryJobAction), jobHandler.CreateReview)
		}

		workerJobs := v1.Group("/worker/jobs", auth.RequireWorker(authn))
		{
			workerJobs.GET("", limit(ratelimit.CategoryJobRead), jobHandler.ListAvailableJobs)
			workerJobs.GET("/:job_id", limit(ratelimit.CategoryJobRead), jobHandler.GetWorkerJob)
			workerJobs.POST("/:job_id/accept", limit(ratelimit.CategoryJobAction), jobHandler.AcceptJob)
			workerJobs.POST("/:job_id/start", limit(ratelimit.CategoryJobAction), jobHandler.StartJob)
			workerJobs.POST("/:job_id/submit", limit(ratelimit.CategoryJobAction), jobHandler.SubmitJob)
			workerJobs.POST("/:job_id/deliverables", limit(ratelimit.CategoryDeliverable), jobHandler.UploadDeliverable)
			workerJobs.GET("/:job_id/deliverables", limit(ratelimit.CategoryJobRead), jobHandler.ListWorkerDeliverables)
			workerJobs.GET("/:job_id/messages", limit(ratelimit.CategoryMessaging), jobHandler.ListWorkerMessages)
			workerJobs.POST("/:job_id/messages", limit(ratelimit.CategoryMessaging), jobHandler.PostWorkerMessage)
			workerJobs.POST("/:job_id/messages/read", limit(ratelimit.CategoryMessaging), jobHandler.MarkWorkerMessagesRead)
		}

		// The upgrade request carries its own credentials; the
		// handler authenticates before upgrading.
		v1.GET("/ws", wsHandler.Connect)
	}

	return r
}
