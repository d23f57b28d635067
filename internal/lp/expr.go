package lp

import "fmt"

// Var is the index of a decision variable within its Problem.
type Var int

// Kind is the integrality class of a variable.
type Kind int

const (
	Continuous Kind = iota
	Integer
	Binary
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	}
	return "continuous"
}

// Variable is one column of the problem.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
	Kind  Kind
}

// Term is coef·var.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is an affine expression Σ coef·var + Const. Terms may repeat a
// variable; Normalize merges them.
type Expr struct {
	Terms []Term
	Const float64
}

// NewExpr returns an empty expression.
func NewExpr() *Expr {
	return &Expr{}
}

// Add appends coef·v. Zero coefficients are dropped.
func (e *Expr) Add(v Var, coef float64) *Expr {
	if coef != 0 {
		e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	}
	return e
}

// AddConst adds a constant.
func (e *Expr) AddConst(c float64) *Expr {
	e.Const += c
	return e
}

// AddExpr adds scale·o.
func (e *Expr) AddExpr(o *Expr, scale float64) *Expr {
	if o == nil || scale == 0 {
		return e
	}
	for _, t := range o.Terms {
		e.Add(t.Var, scale*t.Coef)
	}
	e.Const += scale * o.Const
	return e
}

// Clone returns a deep copy.
func (e *Expr) Clone() *Expr {
	return &Expr{Terms: append([]Term(nil), e.Terms...), Const: e.Const}
}

// Normalize merges repeated variables in first-appearance order and drops
// terms that cancel.
func (e *Expr) Normalize() {
	pos := make(map[Var]int, len(e.Terms))
	out := e.Terms[:0]
	for _, t := range e.Terms {
		if i, ok := pos[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	e.Terms = kept
}

// Eval computes the expression for a full value vector.
func (e *Expr) Eval(values []float64) float64 {
	v := e.Const
	for _, t := range e.Terms {
		v += t.Coef * values[t.Var]
	}
	return v
}

func (e *Expr) String() string {
	return fmt.Sprintf("Expr{%d terms, const=%g}", len(e.Terms), e.Const)
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	}
	return "="
}

// Constraint is Σ terms (sense) RHS. The expression constant is folded
// into RHS when the constraint is added.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Satisfied checks the constraint at values within an absolute tolerance.
func (c *Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := 0.0
	for _, t := range c.Terms {
		lhs += t.Coef * values[t.Var]
	}
	switch c.Sense {
	case LessEq:
		return lhs <= c.RHS+tol
	case GreaterEq:
		return lhs >= c.RHS-tol
	}
	return lhs >= c.RHS-tol && lhs <= c.RHS+tol
}
