package app

import (
	"simulado_backend/docs"
	"simulado_backend/internal/config"
	"simulado_backend/internal/middleware"
	"simulado_backend/internal/model"
	"simulado_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("/variants/generate", c.variant.GenerateBatch)
			teacher.GET("/banks/:id/variants", c.variant.ListVariants)
			teacher.GET("/variants/:id", c.variant.GetVariant)
			teacher.PUT("/variants/:id", c.variant.UpdateDraft)
			teacher.DELETE("/variants/:id", c.variant.DeleteDraft)
			teacher.POST("/variants/:id/publish", c.variant.PublishVariant)
			teacher.POST("/variants/:id/close", c.variant.CloseVariant)
		}

		student := authGroup.Group("/student")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.POST("/variants/:id/attempts", c.attempt.StartAttempt)
			student.GET("/variants/:id/attempts", c.attempt.ListAttempts)
			student.GET("/attempts/:id", c.attempt.GetAttemptView)
			student.PUT("/attempts/:id/answers", c.attempt.RecordAnswer)
			student.POST("/attempts/:id/submit", c.attempt.SubmitAttempt)
		}
	}
}
