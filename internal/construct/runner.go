// Package construct runs mixin initializers in linearization order and
// records the observable construction trace. A run brackets the
// per-node initializer calls with Creating/Created events for the root,
// seeds every declared field with its type default, and aborts atomically
// on the first initializer error.
package construct

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/linearize"
)

// Initializer is the side-effecting body run for one node during
// construction. It receives a Builder bound to that node.
type Initializer func(b *Builder)

// Run executes the composition's initializers in ascending linearization
// order and returns the trace. Every node in the order must have an
// initializer; validation happens before any initializer runs, so a
// missing one never yields a partial trace.
func Run(order *linearize.Order, inits map[string]Initializer) (*Trace, error) {
	_, trace, err := run(order, inits)
	return trace, err
}

// RunInstance is Run plus the constructed field state, for callers that
// inspect final values as well as the trace.
func RunInstance(order *linearize.Order, inits map[string]Initializer) (*Instance, *Trace, error) {
	return run(order, inits)
}

func run(order *linearize.Order, inits map[string]Initializer) (*Instance, *Trace, error) {
	var missing []string
	for _, name := range order.Names() {
		if inits[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errorf(ErrMissingInitializer,
			"no initializer for %s", strings.Join(missing, ", "))
	}

	inst := newInstance(order.Graph())
	trace := &Trace{}
	root := order.Graph().Root().Name

	trace.Append(root, fmt.Sprintf("Creating %s", root))
	for _, name := range order.Names() {
		b := &Builder{node: name, inst: inst, trace: trace}
		inits[name](b)
		if b.err != nil {
			return nil, nil, b.err
		}
	}
	trace.Append(root, fmt.Sprintf("Created %s", root))

	return inst, trace, nil
}
