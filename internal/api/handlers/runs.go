package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"microgrid-planner/internal/api/models"

	"github.com/gin-gonic/gin"
)

// RunHandler serves stored runs
type RunHandler struct {
	store *RunStore
}

// NewRunHandler creates a new run handler
func NewRunHandler(store *RunStore) *RunHandler {
	return &RunHandler{store: store}
}

func (h *RunHandler) lookup(c *gin.Context) (*Run, bool) {
	id := c.Param("id")
	run, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "RUN_NOT_FOUND",
				Message: "run " + id + " does not exist or has expired",
			},
		})
		return nil, false
	}
	return run, true
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.RunInfo{
		ID:        run.ID,
		Kind:      run.Kind,
		Project:   run.Project,
		CreatedAt: run.CreatedAt,
		ExpiresAt: run.ExpiresAt,
		Summary:   run.Summary,
		Points:    run.Points,
		Variables: run.Solution.Names(),
	})
}

// GetVariable handles GET /api/v1/runs/:id/variables/:name
// The name may be a variable name or a display name. Pareto runs accept
// ?point=i to read the i-th front solution instead of the cost optimum.
func (h *RunHandler) GetVariable(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	sol := run.Solution
	if q := c.Query("point"); q != "" {
		i, err := strconv.Atoi(q)
		if err != nil || i < 0 || i >= len(run.Solutions) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "point must index the run's Pareto solutions",
					Details: map[string]interface{}{"points": len(run.Solutions)},
				},
			})
			return
		}
		sol = run.Solutions[i]
	}

	name := strings.TrimSpace(c.Param("name"))
	a, err := sol.Variable(name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.VariableResponse{
		Name:  name,
		Dims:  a.Dims,
		Shape: a.Shape,
		Data:  a.Data,
	})
}
