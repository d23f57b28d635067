package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"microgrid-planner/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("load: %w", os.ErrNotExist), http.StatusNotFound, "PROJECT_NOT_FOUND"},
		{fmt.Errorf("%w: bad horizon", model.ErrInvalidConfiguration), http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{fmt.Errorf("demand: %w", model.ErrMissingTimeSeries), http.StatusUnprocessableEntity, "MISSING_TIME_SERIES"},
		{&model.SolverStatusError{Solver: "highs", Status: "Infeasible", Err: model.ErrInfeasibleModel}, http.StatusUnprocessableEntity, "INFEASIBLE_MODEL"},
		{&model.SolverStatusError{Solver: "highs", Status: "Time limit reached", Err: model.ErrSolverError}, http.StatusBadGateway, "SOLVER_ERROR"},
		{model.ErrSolverUnavailable, http.StatusServiceUnavailable, "SOLVER_UNAVAILABLE"},
		{fmt.Errorf("solve: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code := StatusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}
