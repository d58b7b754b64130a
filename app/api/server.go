package api

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ademidov/newspulse/app/cfg"
)

// NewServer builds the gin engine with all routes configured. The /api
// group is only mounted when an access key is set; health and stats stay
// public either way.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API_ACCESS_KEY not set, API endpoints are unauthenticated")
	}
	{
		api.GET("/articles/latest", handler.GetLatestArticles)
		api.GET("/articles/recommended", handler.GetRecommendedArticles)
		api.POST("/articles/read", handler.MarkArticleRead)

		api.GET("/user/preferences", handler.ListPreferences)
		api.POST("/user/preferences", handler.AddPreference)
		api.PUT("/user/preferences/:id", handler.UpdatePreference)
		api.DELETE("/user/preferences/:id", handler.DeletePreference)
		api.DELETE("/user/preferences", handler.ClearPreferences)
		api.GET("/user/reading-history", handler.GetReadingHistory)
		api.DELETE("/user/account", handler.DeleteAccount)

		api.POST("/scrape", handler.TriggerScrape)
		api.GET("/scheduler/status", handler.GetSchedulerStatus)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "NewsPulse",
			"version":     cfg.Get().Version,
			"description": "News aggregation service with deduplication and preference-based ranking",
			"endpoints": map[string]string{
				"health":      "/health",
				"stats":       "/stats",
				"latest":      "/api/articles/latest",
				"recommended": "/api/articles/recommended?user=<name>",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also accept Authorization: Bearer <key>
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				providedKey = authHeader[7:]
			}
		}

		if providedKey == "" {
			c.JSON(401, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(401, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
