// Package config locates a loom project and loads its loom.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	rtconfig "github.com/go-drift/loom/pkg/config"
)

// FileName is the project configuration file looked up in the project root.
const FileName = "loom.yaml"

// Config represents the optional loom.yaml configuration.
type Config struct {
	App        AppConfig         `yaml:"app"`
	Runtime    *rtconfig.Config  `yaml:"runtime,omitempty"`
	Components []ComponentConfig `yaml:"components"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
	// Entry names the component `loom run` instantiates by default.
	Entry string `yaml:"entry,omitempty"`
}

// ComponentConfig declares one component type.
type ComponentConfig struct {
	Name    string   `yaml:"name"`
	Extends string   `yaml:"extends,omitempty"`
	Mixins  []string `yaml:"mixins,omitempty"`
	// Global registers the component on the root type.
	Global bool `yaml:"global,omitempty"`
	// Components lists the component names usable from this one's render.
	Components []string                  `yaml:"components,omitempty"`
	Props      []PropConfig              `yaml:"props,omitempty"`
	Data       map[string]any            `yaml:"data,omitempty"`
	Provide    map[string]any            `yaml:"provide,omitempty"`
	Inject     []string                  `yaml:"inject,omitempty"`
	Hooks      map[string][]ActionConfig `yaml:"hooks,omitempty"`
	Render     *NodeConfig               `yaml:"render,omitempty"`
}

// PropConfig declares one prop.
type PropConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Default  any    `yaml:"default,omitempty"`
	Required bool   `yaml:"required,omitempty"`
}

// ActionConfig is one step run by a lifecycle hook.
type ActionConfig struct {
	Set       map[string]any `yaml:"set,omitempty"`
	Increment string         `yaml:"increment,omitempty"`
	Emit      string         `yaml:"emit,omitempty"`
}

// NodeConfig is a declarative render tree node. Text may reference
// instance keys as {{key}}; attribute and prop values starting with ':'
// are bound to the instance key that follows.
type NodeConfig struct {
	Tag      string         `yaml:"tag,omitempty"`
	Text     string         `yaml:"text,omitempty"`
	Attrs    map[string]any `yaml:"attrs,omitempty"`
	Props    map[string]any `yaml:"props,omitempty"`
	Slot     string         `yaml:"slot,omitempty"`
	Outlet   string         `yaml:"outlet,omitempty"`
	Children []NodeConfig   `yaml:"children,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string
	AppName    string
	Entry      string
	Runtime    *rtconfig.Config
	Components []ComponentConfig
}

// LoadOptional reads loom.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads a loom.yaml at path. A missing file yields an empty
// configuration.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	return &cfg, nil
}

// Resolve loads loom.yaml from the project root dir and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	return resolve(cfg, dir, modulePath)
}

// ResolveFile loads the configuration at path. The module path is read
// from a go.mod next to it when present.
func ResolveFile(path string) (*Resolved, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	modPath, _ := modulePath(dir)
	return resolve(cfg, dir, modPath)
}

func resolve(cfg *Config, dir, modulePath string) (*Resolved, error) {
	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}

	rt := cfg.Runtime
	if rt == nil {
		rt = rtconfig.Default()
	}

	if err := validateComponents(cfg.Components); err != nil {
		return nil, err
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppName:    appName,
		Entry:      strings.TrimSpace(cfg.App.Entry),
		Runtime:    rt,
		Components: cfg.Components,
	}, nil
}

// FindProjectRoot walks up from the current directory to find go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	modName, _, ok := module.SplitPathVersion(modulePath)
	if ok && modName != "" {
		parts := strings.Split(modName, "/")
		base = parts[len(parts)-1]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "loom_app"
	}
	return base
}

var propTypes = []string{"", "any", "string", "int", "float", "bool", "map", "list"}

func validateComponents(components []ComponentConfig) error {
	seen := make(map[string]bool, len(components))
	for i, c := range components {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("components[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("component %q is declared more than once", name)
		}
		seen[name] = true
		for _, p := range c.Props {
			if p.Name == "" {
				return fmt.Errorf("component %q: prop name is required", name)
			}
			if !slices.Contains(propTypes, p.Type) {
				return fmt.Errorf("component %q: prop %q has unknown type %q", name, p.Name, p.Type)
			}
		}
	}
	return nil
}
