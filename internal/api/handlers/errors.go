package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"

	"microgrid-planner/internal/api/models"
	"microgrid-planner/internal/model"

	"github.com/gin-gonic/gin"
)

// errorKinds maps error kinds to an HTTP status and error code, first match
// wins.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{os.ErrNotExist, http.StatusNotFound, "PROJECT_NOT_FOUND"},
	{model.ErrInvalidConfiguration, http.StatusBadRequest, "INVALID_CONFIGURATION"},
	{model.ErrMissingTimeSeries, http.StatusUnprocessableEntity, "MISSING_TIME_SERIES"},
	{model.ErrShapeMismatch, http.StatusUnprocessableEntity, "SHAPE_MISMATCH"},
	{model.ErrSolverUnavailable, http.StatusServiceUnavailable, "SOLVER_UNAVAILABLE"},
	{model.ErrInfeasibleModel, http.StatusUnprocessableEntity, "INFEASIBLE_MODEL"},
	{model.ErrUnboundedModel, http.StatusUnprocessableEntity, "UNBOUNDED_MODEL"},
	{model.ErrSolverError, http.StatusBadGateway, "SOLVER_ERROR"},
	{model.ErrModelNotSolved, http.StatusConflict, "MODEL_NOT_SOLVED"},
	{model.ErrUnknownVariable, http.StatusNotFound, "UNKNOWN_VARIABLE"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
	{context.Canceled, http.StatusRequestTimeout, "CANCELED"},
}

// StatusFor classifies err into an HTTP status and error code.
func StatusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// respondError writes err as an ErrorResponse. Solver failures carry the
// backend status in details.
func respondError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	detail := models.ErrorDetail{
		Code:    code,
		Message: err.Error(),
	}
	var se *model.SolverStatusError
	if errors.As(err, &se) {
		detail.Details = map[string]interface{}{
			"solver": se.Solver,
			"status": se.Status,
		}
	}
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: detail})
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}
