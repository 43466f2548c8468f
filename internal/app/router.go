package app

import (
	"questor_backend/docs"
	"questor_backend/internal/config"
	"questor_backend/internal/middleware"
	"questor_backend/internal/model"
	"questor_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/scenarios", c.scenario.List)
		public.GET("/scenarios/:id", c.scenario.Get)

		// Telegram 通过路径密钥鉴权
		public.POST("/telegram/webhook/:secret", c.telegram.Webhook)
	}

	// 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 场景挑战
		authGroup.POST("/attempts", c.attempt.Start)
		authGroup.GET("/attempts", c.attempt.ListMine)
		authGroup.GET("/attempts/:id", c.attempt.Get)
		authGroup.POST("/attempts/:id/answer", c.attempt.SubmitAnswer)
		authGroup.POST("/attempts/:id/finish", c.attempt.Finish)

		// 成就
		authGroup.GET("/achievements", c.achievement.List)
		authGroup.GET("/achievements/mine", c.achievement.Mine)
		authGroup.GET("/achievements/leaderboard", c.achievement.Leaderboard)

		// Telegram 绑定
		authGroup.POST("/telegram/link", c.telegram.CreateLink)
	}

	// 教师/管理员路由
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Teacher))
	{
		adminGroup.POST("/scenarios", c.admin.CreateScenario)
		adminGroup.PUT("/scenarios/:id/publish", c.admin.PublishScenario)
		adminGroup.POST("/scenarios/:id/steps", c.admin.ReplaceSteps)
		adminGroup.POST("/achievements", c.admin.CreateAchievement)
		adminGroup.POST("/achievements/:id/icon", c.admin.UploadAchievementIcon)
	}
}
