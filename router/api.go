package router

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/handlers"
	"github.com/phonginreallife/contracthub/internal/logger"
	"github.com/phonginreallife/contracthub/services"
)

// Deps are the services the API is built from
type Deps struct {
	PG    *sql.DB
	Redis *redis.Client

	Backend       *authz.Backend
	Contracts     *authz.ContractService
	Organizations *authz.OrganizationService
	Auth          *services.AuthService
	Exports       *services.ExportService
}

func NewGinRouter(deps Deps, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinRequests(log))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Auth)
	contractHandler := handlers.NewContractHandler(deps.Contracts)
	orgHandler := handlers.NewOrgHandler(deps.Organizations)
	exportHandler := handlers.NewExportHandler(deps.Exports)

	authzMiddleware := authz.NewAuthzMiddleware(deps.Backend.Authorizer)
	authzMiddleware.OnDenied = handlers.DeniedEnvelope

	// PUBLIC ENDPOINTS (no authentication required)
	r.GET("/health", healthCheck(deps))

	tokenRoutes := r.Group("/api/token")
	{
		tokenRoutes.POST("/", authHandler.ObtainToken)
		tokenRoutes.POST("/refresh/", authHandler.RefreshToken)
	}

	// PROTECTED ENDPOINTS (require a bearer access token)
	protected := r.Group("/")
	protected.Use(authHandler.RequireAuth())
	{
		// =====================================================================
		// CONTRACTS
		// =====================================================================
		contractRoutes := protected.Group("/api/contracts")
		{
			contractRoutes.GET("/", contractHandler.ListContracts)
			contractRoutes.POST("/export/", exportHandler.CreateExport)

			contractRoutes.GET("/:id/", authzMiddleware.RequireContractView(), contractHandler.GetContract)

			manageRoutes := contractRoutes.Group("/:id/manage-users")
			manageRoutes.Use(authzMiddleware.RequireContractManage())
			{
				manageRoutes.GET("/", contractHandler.ListEligibleUsers)
				manageRoutes.POST("/", contractHandler.AddRole)
				manageRoutes.DELETE("/", contractHandler.RemoveRole)
			}
		}

		// =====================================================================
		// EXPORTS (job owner only, checked by the export service)
		// =====================================================================
		exportRoutes := protected.Group("/api/exports")
		{
			exportRoutes.GET("/:id/", exportHandler.GetExport)
			exportRoutes.GET("/:id/download/", exportHandler.DownloadExport)
		}

		// Contract form helper
		protected.GET("/fetch_users/", orgHandler.FetchUsers)
	}

	return r
}

func healthCheck(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := gin.H{"status": "ok", "database": "ok", "redis": "ok"}
		code := http.StatusOK

		if deps.PG != nil {
			if err := deps.PG.PingContext(ctx); err != nil {
				status["database"] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				status["redis"] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, status)
	}
}

// WithCORS adds CORS support to the API handler. No origins allows any origin
// without credentials.
func WithCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: len(allowedOrigins) > 0,
	})
	return middleware.Handler(h)
}
