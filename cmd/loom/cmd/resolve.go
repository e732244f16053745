package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/loom/cmd/loom/internal/definition"
	"github.com/go-drift/loom/pkg/core"
)

func init() {
	RegisterCommand(&Command{
		Name:  "resolve",
		Short: "Show resolved component options",
		Long: `Resolve every declared component (or only the named ones) through its
extension chain and print a summary of the effective options.

Flags:
  --file PATH   Read components from PATH instead of the project's loom.yaml`,
		Usage: "loom resolve [--file PATH] [component...]",
		Run:   runResolve,
	})
}

// typeSummary is the printed view of one resolved type.
type typeSummary struct {
	Name       string         `yaml:"name"`
	CID        int            `yaml:"cid"`
	Extends    string         `yaml:"extends,omitempty"`
	Options    []string       `yaml:"options"`
	Hooks      map[string]int `yaml:"hooks,omitempty"`
	Props      []string       `yaml:"props,omitempty"`
	Inject     []string       `yaml:"inject,omitempty"`
	Components []string       `yaml:"components,omitempty"`
}

func runResolve(args []string) error {
	flags := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
	file := flags.String("file", "", "path to a loom.yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadProject(*file)
	if err != nil {
		return err
	}
	set, err := buildProject(cfg)
	if err != nil {
		return err
	}

	names := flags.Args()
	if len(names) == 0 {
		names = set.Names()
	}
	summaries := make([]typeSummary, 0, len(names))
	for _, name := range names {
		t, ok := set.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown component %q", name)
		}
		summaries = append(summaries, summarizeType(name, t, set))
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(summaries); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return enc.Close()
}

func summarizeType(name string, t *core.Type, set *definition.Set) typeSummary {
	opts := t.ResolveOptions()
	s := typeSummary{
		Name:       name,
		CID:        t.CID(),
		Options:    opts.Keys(),
		Props:      slices.Sorted(maps.Keys(opts.Props())),
		Inject:     slices.Sorted(maps.Keys(opts.Inject())),
		Components: opts.Components().Names(),
	}
	if super := t.Super(); super != nil && super != set.Root {
		s.Extends = super.Options().Name()
	}
	for _, hook := range core.LifecycleHooks {
		if n := len(opts.Hooks(hook)); n > 0 {
			if s.Hooks == nil {
				s.Hooks = make(map[string]int)
			}
			s.Hooks[string(hook)] = n
		}
	}
	return s
}
