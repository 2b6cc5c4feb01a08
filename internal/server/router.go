package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cardiacai/riskengine/internal/handlers"
)

type RouterConfig struct {
	AssessHandler  *handlers.AssessHandler
	HistoryHandler *handlers.HistoryHandler
	AdminHandler   *handlers.AdminHandler
	AllowOrigins   []string
	ReleaseMode    bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api/v1")
	{
		api.GET("/features", cfg.AssessHandler.Features)
		api.POST("/predict", cfg.AssessHandler.Predict)
		api.POST("/preview", cfg.AssessHandler.Preview)
		api.GET("/history", cfg.HistoryHandler.List)
		api.GET("/history/export", cfg.HistoryHandler.Export)
		api.DELETE("/history", cfg.HistoryHandler.Clear)
		api.DELETE("/history/:id", cfg.HistoryHandler.Remove)
	}
	router.POST("/admin/login", cfg.AdminHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/admin")
	protected.Use(cfg.AdminHandler.RequireAuth())
	protected.POST("/logout", cfg.AdminHandler.Logout)
	protected.GET("/dashboard", cfg.AdminHandler.Dashboard)
	protected.POST("/monitor/pause", cfg.AdminHandler.PauseMonitor)
	protected.POST("/monitor/resume", cfg.AdminHandler.ResumeMonitor)

	return router
}
