package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/lp"

	"go.uber.org/zap"
)

// Gurobi runs gurobi_cl on an LP file.
type Gurobi struct {
	Binary string
	log    *zap.Logger
}

func NewGurobi(logger *zap.Logger) *Gurobi {
	return &Gurobi{Binary: "gurobi_cl", log: logging.OrNop(logger).Named("gurobi")}
}

func (g *Gurobi) Name() string { return "gurobi" }

func (g *Gurobi) Available() error {
	return executableAvailable(g.Name(), g.Binary)
}

func (g *Gurobi) Solve(ctx context.Context, p *lp.Problem, opts Options) (*Result, error) {
	options, err := profileOptions(g.Name(), opts)
	if err != nil {
		return nil, err
	}
	ws, err := newWorkspace("gurobi-")
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	modelPath, err := ws.writeModel(p)
	if err != nil {
		return nil, err
	}
	solutionPath := ws.path("model.sol")
	options["ResultFile"] = solutionPath

	args := make([]string, 0, len(options)+1)
	for _, k := range sortedKeys(options) {
		args = append(args, k+"="+options[k])
	}
	args = append(args, modelPath)
	g.log.Debug("running", zap.String("binary", g.Binary), zap.Strings("args", args))
	out, err := runCommand(ctx, g.Binary, args)
	if err != nil {
		return nil, fmt.Errorf("gurobi: %w: %s", err, tail(out))
	}

	raw := gurobiStatusFromLog(string(out))
	status := gurobiStatus(raw)
	f, err := os.Open(solutionPath)
	if errors.Is(err, os.ErrNotExist) {
		if raw == "" {
			return nil, fmt.Errorf("gurobi produced no solution file: %s", tail(out))
		}
		if status == StatusOptimal {
			status, raw = StatusError, raw+" (no solution file)"
		}
		return &Result{Status: status, RawStatus: raw}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	values, err := parseGurobiSolution(f)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		raw, status = "Optimal solution found", StatusOptimal
	}
	res := &Result{Status: status, RawStatus: raw}
	if status == StatusOptimal {
		res.Values = assignValues(p, values)
	}
	return res, nil
}

// parseGurobiSolution reads a .sol file: comment lines start with '#',
// every other line is "name value".
func parseGurobiSolution(r io.Reader) (map[string]float64, error) {
	values := map[string]float64{}
	err := scanLines(r, func(line string) bool {
		if line == "" || strings.HasPrefix(line, "#") {
			return true
		}
		if name, v, ok := parseNameValue(line); ok {
			values[name] = v
		}
		return true
	})
	return values, err
}

var gurobiStatusPhrases = []struct {
	phrase string
	status Status
}{
	{"Optimal solution found", StatusOptimal},
	{"Infeasible or unbounded model", StatusInfeasibleOrUnbounded},
	{"Model is infeasible or unbounded", StatusInfeasibleOrUnbounded},
	{"Infeasible model", StatusInfeasible},
	{"Model is infeasible", StatusInfeasible},
	{"Unbounded model", StatusUnbounded},
	{"Model is unbounded", StatusUnbounded},
	{"Time limit reached", StatusLimit},
	{"Node limit reached", StatusLimit},
	{"Solution limit reached", StatusLimit},
}

func gurobiStatusFromLog(log string) string {
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimSpace(line)
		for _, p := range gurobiStatusPhrases {
			if strings.HasPrefix(line, p.phrase) {
				return p.phrase
			}
		}
	}
	return ""
}

func gurobiStatus(raw string) Status {
	if raw == "" {
		return StatusError
	}
	for _, p := range gurobiStatusPhrases {
		if p.phrase == raw {
			return p.status
		}
	}
	return StatusError
}
