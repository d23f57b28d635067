package solver

import (
	"fmt"
	"sort"
	"strconv"

	"microgrid-planner/internal/model"
)

// Option profiles.
const (
	ProfileDefault = "default"
	ProfileBarrier = "barrier"
	ProfileSimplex = "simplex"
	ProfileMILP    = "milp"
)

// Profiles lists the known option profiles.
func Profiles() []string {
	return []string{ProfileDefault, ProfileBarrier, ProfileSimplex, ProfileMILP}
}

var profileSets = map[string]map[string]map[string]string{
	"highs": {
		ProfileDefault: {},
		ProfileBarrier: {"solver": "ipm", "run_crossover": "off"},
		ProfileSimplex: {"solver": "simplex", "simplex_strategy": "1"},
		ProfileMILP:    {"presolve": "on", "mip_detect_symmetry": "true"},
	},
	"gurobi": {
		ProfileDefault: {},
		ProfileBarrier: {"Method": "2", "Crossover": "0", "BarConvTol": "1e-05"},
		ProfileSimplex: {"Method": "1"},
		ProfileMILP:    {"MIPFocus": "1", "Cuts": "2"},
	},
	"gonum": {
		ProfileDefault: {},
		ProfileBarrier: {},
		ProfileSimplex: {},
		ProfileMILP:    {},
	},
}

// profileOptions merges a backend's profile set with the explicit limits and
// extra options. Later entries win: profile, then limits, then extra.
func profileOptions(backend string, opts Options) (map[string]string, error) {
	profile := opts.Profile
	if profile == "" {
		profile = ProfileDefault
	}
	sets, ok := profileSets[backend]
	if !ok {
		sets = profileSets["gonum"]
	}
	base, ok := sets[profile]
	if !ok {
		return nil, fmt.Errorf("%w: unknown solver profile %q (known: %v)", model.ErrInvalidConfiguration, profile, Profiles())
	}
	out := make(map[string]string, len(base)+len(opts.Extra)+3)
	for k, v := range base {
		out[k] = v
	}
	switch backend {
	case "highs":
		if opts.TimeLimit > 0 {
			out["time_limit"] = formatFloat(opts.TimeLimit.Seconds())
		}
		if opts.MIPGap > 0 {
			out["mip_rel_gap"] = formatFloat(opts.MIPGap)
		}
		if opts.Tolerance > 0 {
			out["primal_feasibility_tolerance"] = formatFloat(opts.Tolerance)
			out["dual_feasibility_tolerance"] = formatFloat(opts.Tolerance)
		}
		if opts.LogPath != "" {
			out["log_file"] = opts.LogPath
		}
	case "gurobi":
		if opts.TimeLimit > 0 {
			out["TimeLimit"] = formatFloat(opts.TimeLimit.Seconds())
		}
		if opts.MIPGap > 0 {
			out["MIPGap"] = formatFloat(opts.MIPGap)
		}
		if opts.Tolerance > 0 {
			out["FeasibilityTol"] = formatFloat(opts.Tolerance)
		}
		if opts.LogPath != "" {
			out["LogFile"] = opts.LogPath
		}
	}
	for k, v := range opts.Extra {
		out[k] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// sortedKeys gives a stable order for option files and command lines.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
