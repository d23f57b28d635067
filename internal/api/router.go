// Package api wires the HTTP surface of the planner.
package api

import (
	"net/http"

	"microgrid-planner/internal/api/handlers"
	"microgrid-planner/internal/api/middleware"
	"microgrid-planner/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configure the router.
type Options struct {
	ProjectsRoot  string
	DefaultSolver string
	Store         *handlers.RunStore
	Logger        *zap.Logger
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(o Options) *gin.Engine {
	log := logging.OrNop(o.Logger).Named("api")
	if o.Gatherer == nil {
		o.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(middleware.CORS(o.AllowedOrigins...))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler(log))

	optimizeHandler := handlers.NewOptimizeHandler(o.ProjectsRoot, o.DefaultSolver, o.Store, log)
	runHandler := handlers.NewRunHandler(o.Store)
	catalogHandler := handlers.NewCatalogHandler(o.ProjectsRoot, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/optimize", optimizeHandler.RunOptimize)
		api.POST("/pareto", optimizeHandler.RunPareto)

		api.GET("/runs/:id", runHandler.GetRun)
		api.GET("/runs/:id/variables/:name", runHandler.GetVariable)

		api.GET("/projects", catalogHandler.ListProjects)
		api.GET("/projects/:name/profile", catalogHandler.GetProfile)
		api.GET("/solvers", catalogHandler.ListSolvers)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})

	return router
}
