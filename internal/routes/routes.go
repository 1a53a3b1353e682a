package routes

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/container"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/middleware"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/roles"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/security"
)

func RegisterPublicRoutes(router *gin.Engine, c *container.Container) {
	c.LoginHandler.RegisterRoutes(router)
}

func RegisterProtectedRoutes(router *gin.Engine, c *container.Container) {
	protected := router.Group("")
	protected.Use(security.JWTMiddleware())

	c.RequestHandler.RegisterRoutes(protected)
	c.AssetHandler.RegisterRoutes(protected)
	c.DepartmentHandler.RegisterRoutes(protected)

	admin := router.Group("")
	admin.Use(security.JWTMiddleware(), security.Authorize(roles.Admin))
	c.UserHandler.RegisterRoutes(admin)
}

func RegisterUtilityRoutes(router *gin.Engine) {
	router.GET("/health", middleware.HealthCheckMiddleware())

	openapiFilePath := "./docs/index.html"
	if _, err := os.Stat(openapiFilePath); err == nil {
		router.GET("/openapi.html", func(c *gin.Context) {
			c.File(openapiFilePath)
		})
	} else {
		log.Printf("Warning: %s not found. Route /openapi.html will not be registered.\n", openapiFilePath)
	}
}
