package lp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"microgrid-planner/internal/model"
)

// Inf is the unbounded bound value.
var Inf = math.Inf(1)

// VarArray is a block of variables laid out row-major over named dims.
type VarArray struct {
	Name  string
	Dims  []string
	Shape []int
	Base  Var
	Kind  Kind
}

// Len is the number of variables in the block.
func (a *VarArray) Len() int {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	return n
}

// At returns the variable at the given coordinates.
func (a *VarArray) At(idx ...int) Var {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("lp: %d indices for %s%v", len(idx), a.Name, a.Dims))
	}
	off := 0
	for i, k := range idx {
		if k < 0 || k >= a.Shape[i] {
			panic(fmt.Sprintf("lp: index %d out of range [0,%d) on %s.%s", k, a.Shape[i], a.Name, a.Dims[i]))
		}
		off = off*a.Shape[i] + k
	}
	return a.Base + Var(off)
}

// Values extracts the block from a full solution vector.
func (a *VarArray) Values(values []float64) *model.Array {
	out := model.NewArray(a.Dims, a.Shape)
	copy(out.Data, values[int(a.Base):int(a.Base)+a.Len()])
	return out
}

// Problem is a minimization over bounded, possibly integer variables with
// named linear constraints. Constraint order is insertion order.
type Problem struct {
	Name string

	vars      []Variable
	arrays    []*VarArray
	arrayIdx  map[string]*VarArray
	cons      []*Constraint
	consIdx   map[string]int
	objective Expr
}

// NewProblem returns an empty problem.
func NewProblem(name string) *Problem {
	return &Problem{
		Name:     name,
		arrayIdx: map[string]*VarArray{},
		consIdx:  map[string]int{},
	}
}

// AddVar adds a single variable.
func (p *Problem) AddVar(name string, lower, upper float64, kind Kind) Var {
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	p.vars = append(p.vars, Variable{Name: name, Lower: lower, Upper: upper, Kind: kind})
	return Var(len(p.vars) - 1)
}

// AddScalar adds a named 0-d variable block.
func (p *Problem) AddScalar(name string, lower, upper float64, kind Kind) Var {
	return p.AddArray(name, nil, nil, lower, upper, kind).At()
}

// AddArray adds a block of variables over the given dims. Element names are
// name[i,j,...].
func (p *Problem) AddArray(name string, dims []string, shape []int, lower, upper float64, kind Kind) *VarArray {
	if _, dup := p.arrayIdx[name]; dup {
		panic(fmt.Sprintf("lp: duplicate variable array %q", name))
	}
	a := &VarArray{
		Name:  name,
		Dims:  append([]string(nil), dims...),
		Shape: append([]int(nil), shape...),
		Base:  Var(len(p.vars)),
		Kind:  kind,
	}
	n := a.Len()
	idx := make([]int, len(shape))
	for i := 0; i < n; i++ {
		p.AddVar(elementName(name, idx), lower, upper, kind)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	p.arrays = append(p.arrays, a)
	p.arrayIdx[name] = a
	return a
}

func elementName(name string, idx []int) string {
	if len(idx) == 0 {
		return name
	}
	parts := make([]string, len(idx))
	for i, k := range idx {
		parts[i] = strconv.Itoa(k)
	}
	return name + "[" + strings.Join(parts, ",") + "]"
}

// Array returns the named variable block.
func (p *Problem) Array(name string) (*VarArray, bool) {
	a, ok := p.arrayIdx[name]
	return a, ok
}

// Arrays lists variable blocks in declaration order.
func (p *Problem) Arrays() []*VarArray {
	return p.arrays
}

// Variable returns the column definition.
func (p *Problem) Variable(v Var) Variable {
	return p.vars[v]
}

// Variables returns all column definitions. The slice must not be modified.
func (p *Problem) Variables() []Variable {
	return p.vars
}

// SetBounds overrides the bounds of v.
func (p *Problem) SetBounds(v Var, lower, upper float64) {
	p.vars[v].Lower = lower
	p.vars[v].Upper = upper
}

// SetUpper tightens the upper bound of v.
func (p *Problem) SetUpper(v Var, upper float64) {
	if upper < p.vars[v].Upper {
		p.vars[v].Upper = upper
	}
}

// AddConstraint adds expr (sense) rhs under a unique name.
func (p *Problem) AddConstraint(name string, expr *Expr, sense Sense, rhs float64) error {
	if _, dup := p.consIdx[name]; dup {
		return fmt.Errorf("%w: duplicate constraint %q", model.ErrInternalInvariant, name)
	}
	e := expr.Clone()
	e.Normalize()
	p.consIdx[name] = len(p.cons)
	p.cons = append(p.cons, &Constraint{
		Name:  name,
		Terms: e.Terms,
		Sense: sense,
		RHS:   rhs - e.Const,
	})
	return nil
}

// RemoveConstraint deletes the named constraint.
func (p *Problem) RemoveConstraint(name string) error {
	i, ok := p.consIdx[name]
	if !ok {
		return fmt.Errorf("%w: no constraint %q", model.ErrInternalInvariant, name)
	}
	p.cons = append(p.cons[:i], p.cons[i+1:]...)
	delete(p.consIdx, name)
	for j := i; j < len(p.cons); j++ {
		p.consIdx[p.cons[j].Name] = j
	}
	return nil
}

// HasConstraint reports whether a constraint of that name exists.
func (p *Problem) HasConstraint(name string) bool {
	_, ok := p.consIdx[name]
	return ok
}

// Constraint returns the named constraint.
func (p *Problem) Constraint(name string) (*Constraint, bool) {
	i, ok := p.consIdx[name]
	if !ok {
		return nil, false
	}
	return p.cons[i], true
}

// Constraints lists constraints in insertion order. The slice must not be
// modified.
func (p *Problem) Constraints() []*Constraint {
	return p.cons
}

// SetObjective replaces the minimization objective.
func (p *Problem) SetObjective(expr *Expr) {
	e := expr.Clone()
	e.Normalize()
	p.objective = *e
}

// Objective returns the current objective.
func (p *Problem) Objective() *Expr {
	return &p.objective
}

// NumVars is the number of columns.
func (p *Problem) NumVars() int {
	return len(p.vars)
}

// NumConstraints is the number of rows.
func (p *Problem) NumConstraints() int {
	return len(p.cons)
}

// NumIntegers counts integer and binary columns.
func (p *Problem) NumIntegers() int {
	n := 0
	for _, v := range p.vars {
		if v.Kind != Continuous {
			n++
		}
	}
	return n
}

// IsMIP reports whether any column is integer or binary.
func (p *Problem) IsMIP() bool {
	return p.NumIntegers() > 0
}

// Check verifies values against bounds, integrality and every constraint.
// It returns the name of the first violated item.
func (p *Problem) Check(values []float64, tol float64) (string, bool) {
	for i, v := range p.vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return v.Name, false
		}
		if v.Kind != Continuous && math.Abs(x-math.Round(x)) > tol {
			return v.Name, false
		}
	}
	for _, c := range p.cons {
		if !c.Satisfied(values, tol) {
			return c.Name, false
		}
	}
	return "", true
}
