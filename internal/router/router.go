package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ddtft/internal/auth"
	"ddtft/internal/handler"
	"ddtft/internal/middleware"

	_ "ddtft/docs" // registers the swagger document
)

// Options configures Setup. A nil Validator disables authentication.
type Options struct {
	Validator   auth.TokenValidator
	CORSOrigins []string
	Logger      zerolog.Logger
	Swagger     bool
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(opts Options, extractionH *handler.ExtractionHandler, healthH *handler.HealthHandler) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.CORS(opts.CORSOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	if opts.Validator != nil {
		v1.Use(middleware.AuthMiddleware(opts.Validator))
	} else {
		v1.Use(middleware.Anonymous())
	}

	extractions := v1.Group("/extractions")
	extractions.POST("", extractionH.Create)
	extractions.POST("/upload", extractionH.Upload)
	extractions.POST("/batch", extractionH.Batch)
	extractions.GET("", extractionH.List)
	extractions.GET("/export", extractionH.Export)
	extractions.GET("/:id", extractionH.GetByID)
	extractions.GET("/:id/source", extractionH.Source)
	extractions.POST("/:id/reextract", extractionH.Reextract)

	return r
}
