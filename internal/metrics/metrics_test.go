package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveSolve(t *testing.T) {
	before := testutil.ToFloat64(SolvesTotal.WithLabelValues("gonum", "optimal"))
	ObserveSolve("gonum", "optimal", 20*time.Millisecond)
	after := testutil.ToFloat64(SolvesTotal.WithLabelValues("gonum", "optimal"))
	assert.Equal(t, before+1, after)

	ObserveModel(10, 4, 1)
	assert.Equal(t, 4.0, testutil.ToFloat64(ModelSize.WithLabelValues("constraints")))
}
