package cmd

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/loom/pkg/core"
	"github.com/go-drift/loom/pkg/perf"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Create and mount a component",
		Long: `Create an instance of a declared component, mount it and print the
lifecycle trace, the instance state and the rendered tree.

The component defaults to app.entry from loom.yaml.

Flags:
  --file PATH        Read components from PATH instead of the project's loom.yaml
  --prop KEY=VALUE   Pass a prop to the instance (repeatable, VALUE is YAML)
  --destroy          Destroy the instance before printing
  --metrics          Record init timings and print them`,
		Usage: "loom run [component] [--prop KEY=VALUE]... [--destroy] [--metrics] [--file PATH]",
		Run:   runRun,
	})
}

type runReport struct {
	Component string           `yaml:"component"`
	Status    string           `yaml:"status"`
	Props     map[string]any   `yaml:"props,omitempty"`
	Data      map[string]any   `yaml:"data,omitempty"`
	Trace     []string         `yaml:"trace"`
	Tree      *nodeSummary     `yaml:"tree,omitempty"`
	Metrics   []measureSummary `yaml:"metrics,omitempty"`
}

type nodeSummary struct {
	Tag       string         `yaml:"tag,omitempty"`
	Text      string         `yaml:"text,omitempty"`
	Component string         `yaml:"component,omitempty"`
	Children  []*nodeSummary `yaml:"children,omitempty"`
}

type measureSummary struct {
	Name    string  `yaml:"name"`
	Count   uint64  `yaml:"count"`
	Seconds float64 `yaml:"seconds"`
}

func runRun(args []string) error {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	file := flags.String("file", "", "path to a loom.yaml")
	rawProps := flags.StringArray("prop", nil, "prop passed to the instance as KEY=VALUE")
	destroy := flags.Bool("destroy", false, "destroy the instance before printing")
	metrics := flags.Bool("metrics", false, "record init timings")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadProject(*file)
	if err != nil {
		return err
	}
	name := cfg.Entry
	if flags.NArg() > 0 {
		name = flags.Arg(0)
	}
	if name == "" {
		return fmt.Errorf("component is required (pass a name or set app.entry)\n\nUsage: loom run [component]")
	}

	props, err := parseProps(*rawProps)
	if err != nil {
		return err
	}

	set, err := buildProject(cfg)
	if err != nil {
		return err
	}
	typ, ok := set.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown component %q", name)
	}

	var reg *prometheus.Registry
	if *metrics {
		reg = prometheus.NewRegistry()
		rec, err := perf.NewRecorder(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		env := set.Root.Env()
		env.Perf = rec
		env.Config.Performance = true
	}

	trace := &tracer{}
	if _, err := set.Root.Use(trace); err != nil {
		return err
	}

	vm := core.New(typ, core.NewOptions().WithPropsData(props).WithEl("#app"))
	report := runReport{
		Component: name,
		Props:     vm.Props(),
		Data:      vm.Data(),
		Tree:      summarizeNode(vm.VNode()),
	}
	if *destroy {
		vm.Destroy()
	}
	report.Status = vm.Status().String()
	report.Trace = trace.Lines()
	if reg != nil {
		report.Metrics, err = gatherMeasures(reg)
		if err != nil {
			return err
		}
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// parseProps decodes KEY=VALUE pairs, reading each VALUE as YAML.
func parseProps(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	props := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --prop %q (expected KEY=VALUE)", kv)
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("invalid value for prop %q: %w", key, err)
		}
		props[key] = v
	}
	return props, nil
}

func summarizeNode(v *core.VNode) *nodeSummary {
	if v == nil || v.IsComment {
		return nil
	}
	if v.IsComponent() {
		n := &nodeSummary{Component: v.ComponentOptions.Tag}
		if inst := v.ComponentInstance; inst != nil {
			n.Component = core.FormatComponentName(inst)
			if child := summarizeNode(inst.VNode()); child != nil {
				n.Children = []*nodeSummary{child}
			}
		}
		return n
	}
	n := &nodeSummary{Tag: v.Tag, Text: v.Text}
	for _, child := range v.Children {
		if c := summarizeNode(child); c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// gatherMeasures reads the init duration histogram back from reg.
func gatherMeasures(reg *prometheus.Registry) ([]measureSummary, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	var res []measureSummary
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := measureSummary{}
			for _, l := range m.GetLabel() {
				if l.GetName() == "measure" {
					s.Name = l.GetValue()
				}
			}
			if h := m.GetHistogram(); h != nil {
				s.Count = h.GetSampleCount()
				s.Seconds = h.GetSampleSum()
			}
			res = append(res, s)
		}
	}
	return res, nil
}
