package lp

import (
	"bytes"
	"testing"

	"microgrid-planner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarArrayLayout(t *testing.T) {
	p := NewProblem("layout")
	p.AddVar("lead", 0, Inf, Continuous)
	a := p.AddArray("flow", []string{"years", "periods"}, []int{2, 3}, 0, Inf, Continuous)

	assert.Equal(t, Var(1), a.At(0, 0))
	assert.Equal(t, Var(6), a.At(1, 2))
	assert.Equal(t, "flow[1,2]", p.Variable(a.At(1, 2)).Name)
	assert.Equal(t, 7, p.NumVars())
	assert.Panics(t, func() { a.At(2, 0) })

	values := []float64{9, 0, 1, 2, 3, 4, 5}
	arr := a.Values(values)
	assert.Equal(t, []string{"years", "periods"}, arr.Dims)
	assert.Equal(t, 5.0, arr.At(1, 2))
}

func TestExprNormalize(t *testing.T) {
	e := NewExpr().Add(0, 1).Add(1, 2).Add(0, 3).Add(1, -2).AddConst(4)
	e.Normalize()
	assert.Equal(t, []Term{{Var: 0, Coef: 4}}, e.Terms)
	assert.Equal(t, 4.0+4*2, e.Eval([]float64{2, 7}))
}

func TestConstraintsAddRemove(t *testing.T) {
	p := NewProblem("cons")
	x := p.AddVar("x", 0, Inf, Continuous)
	y := p.AddVar("y", 0, Inf, Continuous)

	require.NoError(t, p.AddConstraint("a", NewExpr().Add(x, 1).AddConst(2), LessEq, 5))
	require.NoError(t, p.AddConstraint("b", NewExpr().Add(y, 1), GreaterEq, 1))
	require.NoError(t, p.AddConstraint("c", NewExpr().Add(x, 1).Add(y, 1), Equal, 3))

	c, ok := p.Constraint("a")
	require.True(t, ok)
	assert.Equal(t, 3.0, c.RHS, "expression constant folds into the right-hand side")

	err := p.AddConstraint("a", NewExpr().Add(x, 1), LessEq, 1)
	assert.ErrorIs(t, err, model.ErrInternalInvariant)

	require.NoError(t, p.RemoveConstraint("b"))
	assert.False(t, p.HasConstraint("b"))
	c, ok = p.Constraint("c")
	require.True(t, ok)
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, 2, p.NumConstraints())
	assert.ErrorIs(t, p.RemoveConstraint("b"), model.ErrInternalInvariant)

	name, ok := p.Check([]float64{1, 2}, 1e-9)
	assert.True(t, ok, name)
	name, ok = p.Check([]float64{4, -1}, 1e-9)
	assert.False(t, ok)
	assert.Equal(t, "y", name)
}

func TestWriteLP(t *testing.T) {
	p := NewProblem("demo")
	units := p.AddArray("res_units", []string{"steps", "renewable_sources"}, []int{1, 1}, 0, 10, Integer)
	on := p.AddVar("on", 0, 1, Binary)
	cost := p.AddVar("npc", -Inf, Inf, Continuous)
	require.NoError(t, p.AddConstraint("cost def", NewExpr().Add(cost, 1).Add(units.At(0, 0), -2.5), Equal, 0))
	require.NoError(t, p.AddConstraint("link", NewExpr().Add(units.At(0, 0), 1).Add(on, -10), LessEq, 0))
	p.SetObjective(NewExpr().Add(cost, 1).AddConst(7))

	var buf bytes.Buffer
	require.NoError(t, p.WriteLP(&buf))
	out := buf.String()

	assert.Contains(t, out, "Minimize\n obj: 1 x_npc\n")
	assert.Contains(t, out, " c_cost_def: 1 x_npc - 2.5 x_res_units(0,0) = 0\n")
	assert.Contains(t, out, " c_link: 1 x_res_units(0,0) - 10 x_on <= 0\n")
	assert.Contains(t, out, " 0 <= x_res_units(0,0) <= 10\n")
	assert.Contains(t, out, " x_npc free\n")
	assert.Contains(t, out, "General\n x_res_units(0,0)\n")
	assert.Contains(t, out, "Binary\n x_on\n")
	assert.True(t, p.IsMIP())
}

func TestColumnNamesAreUnique(t *testing.T) {
	p := NewProblem("names")
	p.AddVar("a b", 0, Inf, Continuous)
	p.AddVar("a+b", 0, Inf, Continuous)
	assert.Equal(t, []string{"x_a_b", "x_a_b_1"}, p.ColumnNames())
}
