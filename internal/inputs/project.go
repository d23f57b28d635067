// Package inputs reads a project's tabular inputs into canonical time
// series. Tables live under projects/<name>/inputs/. A per-scenario table
// is named <base>_<s>.csv (s from 1) and falls back to <base>.csv, which is
// then shared by every scenario.
package inputs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/model"

	"golang.org/x/sync/errgroup"
)

// Table base names.
const (
	DemandTable           = "demand"
	ResourcesTable        = "resources"
	TemperatureTable      = "temperature"
	FuelSpecificCostTable = "fuel_specific_cost"
	GridAvailabilityTable = "grid_availability"
)

// Project is a validated configuration with its time series.
type Project struct {
	Name       string
	Config     *config.Config
	TimeSeries *model.TimeSeries
}

// Dir is root/projects/<name>/inputs.
func Dir(root, name string) string {
	return filepath.Join(config.ProjectDir(root, name), "inputs")
}

// LoadProject loads the configuration document, applies an optional fuel
// cost table, validates, and reads the time-series tables concurrently.
func LoadProject(ctx context.Context, root, name string) (*Project, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: invalid project name %q", model.ErrInvalidConfiguration, name)
	}
	c, err := config.LoadUnchecked(config.ProjectPath(root, name))
	if err != nil {
		return nil, err
	}
	if c.Project.Name == "" {
		c.Project.Name = name
	}
	dir := Dir(root, name)
	if err := ApplyFuelCosts(dir, c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ts, err := Load(ctx, dir, c)
	if err != nil {
		return nil, err
	}
	return &Project{Name: name, Config: c, TimeSeries: ts}, nil
}

// Load reads every table the configuration needs from dir.
func Load(ctx context.Context, dir string, c *config.Config) (*model.TimeSeries, error) {
	startYear, err := c.StartYear()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	var gens []string
	if c.HasGenerator() {
		gens = c.Generator.GenNames
	}
	sets, err := model.NewSets(startYear, c.Project.TimeHorizon, c.Project.TimeResolution,
		c.Advanced.NumScenarios, c.Advanced.StepDuration, c.Resource.ResNames, gens)
	if err != nil {
		return nil, err
	}

	ts := &model.TimeSeries{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := readDemand(ctx, dir, sets)
		ts.Demand = a
		return err
	})
	if len(sets.RenewableSources) > 0 {
		g.Go(func() error {
			a, err := readResources(ctx, dir, sets)
			ts.Resource = a
			return err
		})
	}
	g.Go(func() error {
		a, err := readTemperature(ctx, dir, sets)
		ts.Temperature = a
		return err
	})
	if c.HasGrid() && c.Advanced.GridAvailabilitySimulation {
		g.Go(func() error {
			a, err := readGridAvailability(ctx, dir, sets)
			ts.GridAvailability = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ts, nil
}

// scenarioPath resolves the table for 0-based scenario s.
func scenarioPath(dir, base string, s int) string {
	p := filepath.Join(dir, base+"_"+strconv.Itoa(s+1)+".csv")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(dir, base+".csv")
}

// yearColumn finds the column of 0-based year y by calendar label or by
// 1-based index. A single-column table serves every year.
func yearColumn(t *Table, sets *model.Sets, y int) (int, error) {
	if len(t.Columns) == 1 {
		return 0, nil
	}
	i := t.Column(strconv.Itoa(sets.Years[y]), strconv.Itoa(y+1))
	if i < 0 {
		return 0, fmt.Errorf("%w: no column for year %d", model.ErrShapeMismatch, sets.Years[y])
	}
	return i, nil
}

// readYearly fills an array with (scenarios, periods, years) layout from
// per-scenario tables whose columns are years.
func readYearly(ctx context.Context, dir, base string, dims []string, sets *model.Sets) (*model.Array, error) {
	a := model.NewArray(dims, sets.Shape(dims...))
	P := len(sets.Periods)
	for s := range sets.Scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := scenarioPath(dir, base, s)
		t, err := ReadTableFile(path)
		if err != nil {
			return nil, err
		}
		if err := t.requireRows(P); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for y := range sets.Years {
			col, err := yearColumn(t, sets, y)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			for p := 0; p < P; p++ {
				a.Set(t.Rows[p][col], s, p, y)
			}
		}
	}
	return a, nil
}

func readDemand(ctx context.Context, dir string, sets *model.Sets) (*model.Array, error) {
	a, err := readYearly(ctx, dir, DemandTable, model.DemandDims, sets)
	if err != nil {
		return nil, fmt.Errorf("demand: %w", err)
	}
	return a, nil
}

func readGridAvailability(ctx context.Context, dir string, sets *model.Sets) (*model.Array, error) {
	a, err := readYearly(ctx, dir, GridAvailabilityTable, model.GridAvailabilityDims, sets)
	if err != nil {
		return nil, fmt.Errorf("grid availability: %w", err)
	}
	return a, nil
}

func readResources(ctx context.Context, dir string, sets *model.Sets) (*model.Array, error) {
	a := model.NewArray(model.ResourceDims, sets.Shape(model.ResourceDims...))
	P := len(sets.Periods)
	for s := range sets.Scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := scenarioPath(dir, ResourcesTable, s)
		t, err := ReadTableFile(path)
		if err != nil {
			return nil, fmt.Errorf("resources: %w", err)
		}
		if err := t.requireRows(P); err != nil {
			return nil, fmt.Errorf("resources: %s: %w", path, err)
		}
		for r, name := range sets.RenewableSources {
			col := t.Column(name)
			if col < 0 {
				return nil, fmt.Errorf("resources: %s: %w: no column %q", path, model.ErrShapeMismatch, name)
			}
			for p := 0; p < P; p++ {
				a.Set(t.Rows[p][col], s, r, p)
			}
		}
	}
	return a, nil
}

// readTemperature returns nil when no table exists; temperature is reserved.
func readTemperature(ctx context.Context, dir string, sets *model.Sets) (*model.Array, error) {
	a := model.NewArray(model.TemperatureDims, sets.Shape(model.TemperatureDims...))
	P := len(sets.Periods)
	for s := range sets.Scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := ReadTableFile(scenarioPath(dir, TemperatureTable, s))
		if errors.Is(err, model.ErrMissingTimeSeries) && s == 0 {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("temperature: %w", err)
		}
		if err := t.requireRows(P); err != nil {
			return nil, fmt.Errorf("temperature: %w", err)
		}
		for p := 0; p < P; p++ {
			a.Set(t.Rows[p][0], s, p)
		}
	}
	return a, nil
}

// ApplyFuelCosts replaces generator_params.fuel_specific_cost with the
// fuel cost table when one exists. Rows are years 1..Y, columns generator
// names.
func ApplyFuelCosts(dir string, c *config.Config) error {
	path := filepath.Join(dir, FuelSpecificCostTable+".csv")
	t, err := ReadTableFile(path)
	if errors.Is(err, model.ErrMissingTimeSeries) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fuel specific cost: %w", err)
	}
	costs := make([][]float64, len(c.Generator.GenNames))
	for g, name := range c.Generator.GenNames {
		col := t.Column(name)
		if col < 0 {
			return fmt.Errorf("fuel specific cost: %s: %w: no column %q", path, model.ErrInvalidConfiguration, name)
		}
		costs[g] = t.Values(col)
	}
	for i, y := range t.Index {
		if y != i+1 {
			return fmt.Errorf("fuel specific cost: %s: %w: row %d has year %d, want %d",
				path, model.ErrInvalidConfiguration, i+1, y, i+1)
		}
	}
	c.Generator.FuelSpecificCost = costs
	return nil
}

// WriteExample writes single-scenario demand and resource tables for sets,
// using the given per-period profiles. It is used to scaffold new projects.
func WriteExample(dir string, sets *model.Sets, demand func(p int) float64, resource func(r, p int) float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	years := make([]string, len(sets.Years))
	for i, y := range sets.Years {
		years[i] = strconv.Itoa(y)
	}
	var sb strings.Builder
	sb.WriteString("Periods," + strings.Join(years, ",") + "\n")
	for p := range sets.Periods {
		sb.WriteString(strconv.Itoa(p + 1))
		v := strconv.FormatFloat(demand(p), 'g', -1, 64)
		for range sets.Years {
			sb.WriteString("," + v)
		}
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, DemandTable+".csv"), []byte(sb.String()), 0o644); err != nil {
		return err
	}
	if len(sets.RenewableSources) == 0 {
		return nil
	}
	sb.Reset()
	sb.WriteString("Periods," + strings.Join(sets.RenewableSources, ",") + "\n")
	for p := range sets.Periods {
		sb.WriteString(strconv.Itoa(p + 1))
		for r := range sets.RenewableSources {
			sb.WriteString("," + strconv.FormatFloat(resource(r, p), 'g', -1, 64))
		}
		sb.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, ResourcesTable+".csv"), []byte(sb.String()), 0o644)
}
