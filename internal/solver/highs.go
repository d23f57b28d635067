package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/lp"

	"go.uber.org/zap"
)

// Highs runs the HiGHS command-line solver on an LP file.
type Highs struct {
	Binary string
	log    *zap.Logger
}

func NewHighs(logger *zap.Logger) *Highs {
	return &Highs{Binary: "highs", log: logging.OrNop(logger).Named("highs")}
}

func (h *Highs) Name() string { return "highs" }

func (h *Highs) Available() error {
	return executableAvailable(h.Name(), h.Binary)
}

func (h *Highs) Solve(ctx context.Context, p *lp.Problem, opts Options) (*Result, error) {
	options, err := profileOptions(h.Name(), opts)
	if err != nil {
		return nil, err
	}
	ws, err := newWorkspace("highs-")
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	modelPath, err := ws.writeModel(p)
	if err != nil {
		return nil, err
	}
	optionsPath := ws.path("options.txt")
	var sb strings.Builder
	for _, k := range sortedKeys(options) {
		fmt.Fprintf(&sb, "%s = %s\n", k, options[k])
	}
	if err := os.WriteFile(optionsPath, []byte(sb.String()), 0o644); err != nil {
		return nil, err
	}
	solutionPath := ws.path("solution.txt")

	args := []string{
		"--model_file", modelPath,
		"--options_file", optionsPath,
		"--solution_file", solutionPath,
	}
	h.log.Debug("running", zap.String("binary", h.Binary), zap.Strings("args", args))
	out, err := runCommand(ctx, h.Binary, args)
	if err != nil {
		return nil, fmt.Errorf("highs: %w: %s", err, tail(out))
	}

	f, err := os.Open(solutionPath)
	if errors.Is(err, os.ErrNotExist) {
		raw := highsStatusFromLog(string(out))
		if raw == "" {
			return nil, fmt.Errorf("highs produced no solution file: %s", tail(out))
		}
		return &Result{Status: highsStatus(raw), RawStatus: raw}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sol, err := parseHighsSolution(f)
	if err != nil {
		return nil, err
	}
	res := &Result{Status: highsStatus(sol.status), RawStatus: sol.status}
	if res.Status == StatusOptimal {
		res.Values = assignValues(p, sol.values)
	}
	return res, nil
}

type highsSolution struct {
	status string
	values map[string]float64
}

// parseHighsSolution reads the raw HiGHS solution format:
//
//	Model status
//	Optimal
//	...
//	# Columns 2
//	x_a 1
//	x_b 0.5
func parseHighsSolution(r io.Reader) (*highsSolution, error) {
	sol := &highsSolution{values: map[string]float64{}}
	state := ""
	remaining := 0
	err := scanLines(r, func(line string) bool {
		switch {
		case line == "Model status":
			state = "status"
		case state == "status" && line != "":
			sol.status = line
			state = ""
		case strings.HasPrefix(line, "# Columns"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
			if err == nil && len(sol.values) == 0 {
				remaining = n
				state = "columns"
			}
		case state == "columns" && remaining > 0:
			if name, v, ok := parseNameValue(line); ok {
				sol.values[name] = v
				remaining--
			}
			if remaining == 0 {
				state = "done"
			}
		case strings.HasPrefix(line, "# Rows") || strings.HasPrefix(line, "# Dual"):
			if state == "columns" {
				state = "done"
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if sol.status == "" {
		return nil, errors.New("highs solution file has no model status")
	}
	return sol, nil
}

var highsStatusLine = regexp.MustCompile(`(?m)^\s*Model\s+status\s*:\s*(.+?)\s*$`)

func highsStatusFromLog(log string) string {
	m := highsStatusLine.FindStringSubmatch(log)
	if m == nil {
		return ""
	}
	return m[1]
}

func highsStatus(raw string) Status {
	s := strings.ToLower(raw)
	switch {
	case s == "optimal":
		return StatusOptimal
	case strings.Contains(s, "infeasible or unbounded"):
		return StatusInfeasibleOrUnbounded
	case strings.Contains(s, "infeasible"):
		return StatusInfeasible
	case strings.Contains(s, "unbounded"):
		return StatusUnbounded
	case strings.Contains(s, "limit"):
		return StatusLimit
	}
	return StatusError
}

func tail(out []byte) string {
	const n = 400
	s := strings.TrimSpace(string(out))
	if len(s) > n {
		return "..." + s[len(s)-n:]
	}
	return s
}
