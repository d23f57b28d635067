package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"microgrid-planner/internal/lp"
	"microgrid-planner/internal/model"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

func executableAvailable(backend, binary string) error {
	if _, err := lookPath(binary); err != nil {
		return fmt.Errorf("%w: %s needs %q on PATH: %v", model.ErrSolverUnavailable, backend, binary, err)
	}
	return nil
}

// workspace is a temporary directory holding the model, options and
// solution files of one external solve.
type workspace struct {
	dir string
}

func newWorkspace(prefix string) (*workspace, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, err
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) writeModel(p *lp.Problem) (string, error) {
	path := w.path("model.lp")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := p.WriteLP(f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func (w *workspace) Close() error {
	return os.RemoveAll(w.dir)
}

// runCommand executes the solver and returns its combined output. A non-zero
// exit is not an error by itself: solvers exit non-zero on infeasibility.
func runCommand(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if ctx.Err() != nil {
		return out.Bytes(), ctx.Err()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return out.Bytes(), err
	}
	return out.Bytes(), nil
}

// assignValues maps "name value" pairs onto column positions. Columns the
// solver omitted stay zero.
func assignValues(p *lp.Problem, pairs map[string]float64) []float64 {
	values := make([]float64, p.NumVars())
	for j, name := range p.ColumnNames() {
		if v, ok := pairs[name]; ok {
			values[j] = v
		}
	}
	return values
}

// parseNameValue splits a "name value" line.
func parseNameValue(line string) (string, float64, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, false
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, false
	}
	return fields[0], v, true
}

// scanLines calls fn for each trimmed line until fn returns false.
func scanLines(r io.Reader, fn func(line string) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if !fn(strings.TrimSpace(sc.Text())) {
			break
		}
	}
	return sc.Err()
}
