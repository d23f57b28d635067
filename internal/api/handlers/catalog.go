package handlers

import (
	"net/http"

	"microgrid-planner/internal/analysis"
	"microgrid-planner/internal/api/models"
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/inputs"
	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/solver"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler lists projects and solver backends
type CatalogHandler struct {
	root string
	log  *zap.Logger
}

// NewCatalogHandler creates a handler listing projects under root
func NewCatalogHandler(root string, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{root: root, log: logging.OrNop(logger)}
}

// ListProjects handles GET /api/v1/projects
func (h *CatalogHandler) ListProjects(c *gin.Context) {
	names, err := config.ListProjects(h.root)
	if err != nil {
		respondError(c, err)
		return
	}

	projects := make([]models.ProjectInfo, 0, len(names))
	for _, name := range names {
		info := models.ProjectInfo{Name: name}
		cfg, err := config.LoadProject(h.root, name)
		if err != nil {
			// Listed anyway so the document can be fixed.
			h.log.Debug("project does not validate", zap.String("project", name), zap.Error(err))
			info.Error = err.Error()
			projects = append(projects, info)
			continue
		}
		info.SystemConfiguration = cfg.Project.SystemConfiguration
		info.TimeHorizon = cfg.Project.TimeHorizon
		info.Scenarios = cfg.Advanced.NumScenarios
		info.Renewables = cfg.Resource.ResNames
		if cfg.HasGenerator() {
			info.Generators = cfg.Generator.GenNames
		}
		projects = append(projects, info)
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProfile handles GET /api/v1/projects/:name/profile
func (h *CatalogHandler) GetProfile(c *gin.Context) {
	p, err := inputs.LoadProject(c.Request.Context(), h.root, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	profile, err := analysis.ProfileProject(p.Config, p.TimeSeries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListSolvers handles GET /api/v1/solvers
func (h *CatalogHandler) ListSolvers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"solvers": solver.Describe()})
}
