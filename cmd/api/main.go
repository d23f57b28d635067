package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"microgrid-planner/internal/api"
	"microgrid-planner/internal/api/handlers"
	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	log, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync() //nolint:errcheck
	if envErr != nil {
		log.Debug("no .env file loaded", zap.Error(envErr))
	}

	// Get configuration from environment
	port := getenv("API_PORT", "8080")
	root := getenv("PROJECTS_DIR", ".")
	solverName := getenv("SOLVER", "gonum")

	ttl := time.Hour
	if v := os.Getenv("RUN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal("invalid RUN_TTL", zap.String("value", v), zap.Error(err))
		}
		ttl = d
	}

	var origins []string
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	store := handlers.NewRunStore(ttl)
	defer store.Close()

	router := api.NewRouter(api.Options{
		ProjectsRoot:   root,
		DefaultSolver:  solverName,
		Store:          store,
		Logger:         log,
		AllowedOrigins: origins,
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info("starting API server",
		zap.String("addr", addr),
		zap.String("projects_dir", root),
		zap.String("solver", solverName),
		zap.Duration("run_ttl", ttl))
	if err := router.Run(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
