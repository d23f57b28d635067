package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"microgrid-planner/internal/model"

	"gopkg.in/yaml.v3"
)

// ProjectDir is root/projects/<name>.
func ProjectDir(root, name string) string {
	return filepath.Join(root, "projects", name)
}

// ProjectPath is root/projects/<name>/<name>.yaml.
func ProjectPath(root, name string) string {
	return filepath.Join(ProjectDir(root, name), name+".yaml")
}

// LoadProject loads and validates the named project's configuration.
func LoadProject(root, name string) (*Config, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: invalid project name %q", model.ErrInvalidConfiguration, name)
	}
	c, err := Load(ProjectPath(root, name))
	if err != nil {
		return nil, err
	}
	if c.Project.Name == "" {
		c.Project.Name = name
	}
	return c, nil
}

// ListProjects returns the names of project directories under root/projects
// that contain a configuration document, sorted.
func ListProjects(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "projects"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(ProjectPath(root, e.Name())); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetSetting looks up a key of a top-level section (e.g. "project_settings",
// "time_horizon") by its document name.
func (c *Config) GetSetting(section, key string) (any, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var doc map[string]map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	sec, ok := doc[section]
	if !ok {
		return nil, fmt.Errorf("%w: unknown section %q", model.ErrInvalidConfiguration, section)
	}
	v, ok := sec[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown setting %s.%s", model.ErrInvalidConfiguration, section, key)
	}
	return v, nil
}
