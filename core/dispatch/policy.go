package dispatch

import (
	"context"

	"github.com/kilianp07/ridepool/core/factory"
	"github.com/kilianp07/ridepool/core/trip"
)

// Built-in policy names.
const (
	PolicyGreedy   = "greedy"
	PolicyMarginal = "marginal"
)

// Policy matches a batch of requests to vehicles through the engine and
// returns the requests it could not assign, in batch order.
type Policy interface {
	Name() string
	Assign(ctx context.Context, e *Engine, batch []*trip.Request) []*trip.Request
}

var policyRegistry = factory.NewRegistry[Policy]()

func init() {
	_ = RegisterPolicy(PolicyGreedy, func(conf map[string]any) (Policy, error) {
		g := &Greedy{}
		if err := factory.Decode(conf, g); err != nil {
			return nil, err
		}
		return g, nil
	})
	_ = RegisterPolicy(PolicyMarginal, func(conf map[string]any) (Policy, error) {
		m := &Marginal{}
		if err := factory.Decode(conf, m); err != nil {
			return nil, err
		}
		return m, nil
	})
}

// RegisterPolicy adds a policy factory identified by name.
func RegisterPolicy(name string, f factory.Factory[Policy]) error {
	return policyRegistry.Register(name, f)
}

// NewPolicy creates the policy registered under name. Legacy strategy names
// resolve to their policy.
func NewPolicy(name string, conf map[string]any) (Policy, error) {
	if l, ok := legacyNames[name]; ok {
		name = l[0]
	}
	return policyRegistry.Create(factory.ModuleConfig{Type: name, Conf: conf})
}

// unassigned keeps the requests whose done flag is false.
func unassigned(batch []*trip.Request, done []bool) []*trip.Request {
	var out []*trip.Request
	for i, r := range batch {
		if !done[i] {
			out = append(out, r)
		}
	}
	return out
}
