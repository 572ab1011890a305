package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-project-dashboard/internal/auth"
)

// SetupRoutes sets up the API routes. allowedOrigins lists the browser
// origins permitted to call the API with the session cookie.
func SetupRoutes(handler *Handler, authHandler *AuthHandler, sessions *auth.Manager, cookieName string, allowedOrigins []string, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS(allowedOrigins))
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// OAuth flow
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", authHandler.Login)
		authGroup.GET("/callback", authHandler.Callback)
		authGroup.POST("/logout", authHandler.Logout)
	}

	api := router.Group("/api", RequireSession(sessions, cookieName))
	{
		api.GET("/me", authHandler.Me)

		gh := api.Group("/github")
		{
			gh.GET("/gist", handler.GetGist)
			gh.GET("/repo", handler.GetRepository)
			gh.GET("/overview", handler.GetOverview)
			gh.GET("/workflow", handler.GetWorkflow)

			repos := gh.Group("/repos/:owner/:repo")
			{
				repos.GET("/issues", handler.GetIssues)
				repos.GET("/pulls", handler.GetPulls)
				repos.GET("/pulls/:number/status", handler.GetPullStatus)
				repos.GET("/commits/latest", handler.GetLastCommit)
				repos.GET("/alerts", handler.GetVulnerabilityAlerts)
				repos.GET("/cells", handler.GetCellStates)
			}
		}
	}

	return router
}
