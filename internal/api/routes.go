package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Divy1030/Code-Arena-Backend/internal/config"
	"github.com/Divy1030/Code-Arena-Backend/internal/judge"
	"github.com/Divy1030/Code-Arena-Backend/internal/middleware"
	"github.com/Divy1030/Code-Arena-Backend/internal/store"
	"github.com/Divy1030/Code-Arena-Backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, st *store.Store, jobs *judge.Client, gateway *ws.Gateway, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	// Websocket sessions authenticate inside the handler; cookies and
	// bearer headers both work on the handshake request.
	router.GET("/ws", gateway.HandleWebSocket)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		public := v1.Group("", middleware.OptionalAuth(cfg, st))
		{
			public.GET("/get-problem/:id", GetProblem(st))
			public.GET("/get-leaderboard/:contestId", GetLeaderboard(st))
			public.GET("/get-all-problems", GetAllProblems(st))
		}

		authed := v1.Group("", middleware.Auth(cfg, st))
		{
			authed.GET("/users/me", GetMe(st))

			// Contest problem view shares the /get-problem prefix; the
			// router requires the shared segment to keep one param name.
			authed.GET("/get-problem/:id/:problemId", GetContestProblem(st))
			authed.POST("/submit-solution/:contestId/:problemId", SubmitContestSolution(st))
			authed.POST("/update-contest-ratings/:contestId", UpdateContestRatings(st))

			code := authed.Group("/code")
			{
				code.POST("/run", RunCode(jobs))
				code.POST("/submit", SubmitCode(st, jobs))
				code.GET("/result/:jobId", CodeResult(jobs))
			}
		}
	}
}
