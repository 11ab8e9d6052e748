package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"imgmeta/internal/config"
	"imgmeta/internal/handler"
	"imgmeta/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware. Routes are
// mounted at the root and, when configured, again under server.base_path.
func Setup(
	cfg *config.Config,
	imageH *handler.ImageHandler,
	healthH *handler.HealthHandler,
	apiDoc []byte,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	mount(r.Group(""), imageH, healthH, apiDoc)
	if cfg.Server.BasePath != "" {
		mount(r.Group(cfg.Server.BasePath), imageH, healthH, apiDoc)
	}

	r.NoRoute(func(c *gin.Context) {
		handler.RespondError(c, http.StatusNotFound, handler.CodeNotFound, "route not found")
	})

	return r
}

func mount(g *gin.RouterGroup, imageH *handler.ImageHandler, healthH *handler.HealthHandler, apiDoc []byte) {
	// Health checks
	g.GET("/healthz", healthH.Liveness)
	g.GET("/readyz", healthH.Readiness)

	// API document and UI
	g.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", apiDoc)
	})
	g.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	images := g.Group("/images")
	images.POST("", imageH.Create)
	images.GET("", imageH.List)
	images.GET("/export", imageH.Export)
	images.GET("/:image_id", imageH.Get)
	images.DELETE("/:image_id", imageH.Delete)
}
