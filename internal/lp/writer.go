package lp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const maxLineLen = 240

// ColumnNames returns LP-file-safe, unique names for every variable, in
// column order. Brackets become parentheses and reserved characters become
// underscores.
func (p *Problem) ColumnNames() []string {
	return uniqueNames("x_", len(p.vars), func(i int) string { return p.vars[i].Name })
}

// RowNames returns LP-file-safe, unique names for every constraint.
func (p *Problem) RowNames() []string {
	return uniqueNames("c_", len(p.cons), func(i int) string { return p.cons[i].Name })
}

func uniqueNames(prefix string, n int, name func(int) string) []string {
	out := make([]string, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		s := prefix + sanitize(name(i))
		if seen[s] {
			s = s + "_" + strconv.Itoa(i)
		}
		seen[s] = true
		out[i] = s
	}
	return out
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '[':
			b.WriteByte('(')
		case r == ']':
			b.WriteByte(')')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("_.,()!\"#$%&/;?@{}|~'", r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func formatNum(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type lineWriter struct {
	w   *bufio.Writer
	len int
}

func (lw *lineWriter) start(s string) {
	lw.w.WriteString(s)
	lw.len = len(s)
}

func (lw *lineWriter) token(s string) {
	if lw.len+len(s)+1 > maxLineLen {
		lw.w.WriteString("\n ")
		lw.len = 1
	}
	lw.w.WriteByte(' ')
	lw.w.WriteString(s)
	lw.len += len(s) + 1
}

func (lw *lineWriter) end() {
	lw.w.WriteByte('\n')
	lw.len = 0
}

func (lw *lineWriter) terms(terms []Term, cols []string) {
	if len(terms) == 0 {
		lw.token("0")
		lw.token(cols[0])
		return
	}
	for i, t := range terms {
		coef := t.Coef
		sign := "+"
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		if i == 0 && sign == "+" {
			lw.token(formatNum(coef) + " " + cols[t.Var])
			continue
		}
		lw.token(sign + " " + formatNum(coef) + " " + cols[t.Var])
	}
}

// WriteLP writes the problem in CPLEX LP text format. The objective
// constant is not written; readers recover it from Objective().Const.
func (p *Problem) WriteLP(w io.Writer) error {
	if len(p.vars) == 0 {
		return fmt.Errorf("lp: problem %q has no variables", p.Name)
	}
	cols := p.ColumnNames()
	rows := p.RowNames()
	lw := &lineWriter{w: bufio.NewWriter(w)}

	fmt.Fprintf(lw.w, "\\ Problem: %s\n", p.Name)
	lw.w.WriteString("Minimize\n")
	lw.start(" obj:")
	lw.terms(p.objective.Terms, cols)
	lw.end()

	lw.w.WriteString("Subject To\n")
	for i, c := range p.cons {
		lw.start(" " + rows[i] + ":")
		lw.terms(c.Terms, cols)
		lw.token(c.Sense.String())
		lw.token(formatNum(c.RHS))
		lw.end()
	}

	lw.w.WriteString("Bounds\n")
	for i, v := range p.vars {
		if v.Kind == Binary {
			continue
		}
		switch {
		case v.Lower == 0 && math.IsInf(v.Upper, 1):
		case math.IsInf(v.Lower, -1) && math.IsInf(v.Upper, 1):
			fmt.Fprintf(lw.w, " %s free\n", cols[i])
		case v.Lower == v.Upper:
			fmt.Fprintf(lw.w, " %s = %s\n", cols[i], formatNum(v.Lower))
		default:
			fmt.Fprintf(lw.w, " %s <= %s <= %s\n", formatNum(v.Lower), cols[i], formatNum(v.Upper))
		}
	}

	p.writeKindSection(lw, "General", Integer, cols)
	p.writeKindSection(lw, "Binary", Binary, cols)
	lw.w.WriteString("End\n")
	return lw.w.Flush()
}

func (p *Problem) writeKindSection(lw *lineWriter, header string, kind Kind, cols []string) {
	first := true
	for i, v := range p.vars {
		if v.Kind != kind {
			continue
		}
		if first {
			lw.w.WriteString(header + "\n")
			lw.start("")
			first = false
		}
		lw.token(cols[i])
	}
	if !first {
		lw.end()
	}
}
