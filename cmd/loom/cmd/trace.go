package cmd

import (
	"fmt"
	"sync"

	"github.com/go-drift/loom/pkg/core"
)

// tracer is a plugin recording every lifecycle hook invocation of every
// instance created from the root it is installed on.
type tracer struct {
	mu    sync.Mutex
	lines []string
}

var _ core.Installer = (*tracer)(nil)

// Install mixes one recording hook per lifecycle slot into root.
func (t *tracer) Install(root *core.Type, _ ...any) error {
	opts := core.NewOptions()
	for _, hook := range core.LifecycleHooks {
		opts.On(hook, func(vm *core.Instance) error {
			t.record(fmt.Sprintf("%s %s", hook, core.FormatComponentName(vm)))
			return nil
		})
	}
	root.Mixin(opts)
	return nil
}

func (t *tracer) record(line string) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

// Lines returns the recorded invocations in order.
func (t *tracer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
