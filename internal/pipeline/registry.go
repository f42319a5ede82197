package pipeline

import (
	"fmt"

	"reelsmith/internal/ops"
	"reelsmith/internal/services"
)

// Request carries everything a planner needs.
type Request struct {
	Descriptor ops.Descriptor
	Refs       Refs
	WorkDir    string
	Defaults   Defaults
	target     target
}

// Planner builds the plan for one operation.
type Planner func(Request) (Plan, error)

// Registry maps every operation to its planner.
type Registry struct {
	planners map[ops.Operation]Planner
}

// NewRegistry returns a registry, failing when any operation has no planner.
func NewRegistry(planners map[ops.Operation]Planner) (*Registry, error) {
	for _, op := range ops.All() {
		if planners[op] == nil {
			return nil, fmt.Errorf("pipeline: no planner registered for %s", op)
		}
	}
	copied := make(map[ops.Operation]Planner, len(planners))
	for op, p := range planners {
		if !op.Valid() {
			return nil, fmt.Errorf("pipeline: planner registered for unknown operation %q", op)
		}
		copied[op] = p
	}
	return &Registry{planners: copied}, nil
}

// DefaultRegistry returns the built-in planners.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(map[ops.Operation]Planner{
		ops.Trim:    planTrim,
		ops.Concat:  planConcat,
		ops.Overlay: planOverlay,
		ops.Mixdown: planMixdown,
	})
	if err != nil {
		panic(err)
	}
	return reg
}

// Has reports whether op has a planner.
func (r *Registry) Has(op ops.Operation) bool {
	return r != nil && r.planners[op] != nil
}

// Build validates the descriptor against the resolved inputs and plans it.
func (r *Registry) Build(desc ops.Descriptor, refs Refs, workDir string, defaults Defaults) (Plan, error) {
	if err := ops.Validate(desc); err != nil {
		return Plan{}, err
	}
	planner := r.planners[desc.Operation]
	if planner == nil {
		return Plan{}, services.Wrap(services.ErrConfiguration, "plan", string(desc.Operation), "no planner registered", nil)
	}
	for _, id := range desc.MediaIDs() {
		if _, ok := refs[id]; !ok {
			return Plan{}, services.Wrap(services.ErrInternal, "plan", string(desc.Operation), fmt.Sprintf("input %s was not resolved", id), nil)
		}
	}
	plan, err := planner(Request{
		Descriptor: desc,
		Refs:       refs,
		WorkDir:    workDir,
		Defaults:   defaults,
		target:     defaults.target(desc),
	})
	if err != nil {
		return Plan{}, err
	}
	plan.Operation = desc.Operation
	return plan, nil
}

// Build plans desc with the default registry.
func Build(desc ops.Descriptor, refs Refs, workDir string, defaults Defaults) (Plan, error) {
	return DefaultRegistry().Build(desc, refs, workDir, defaults)
}

func invalidf(op ops.Operation, format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "plan", string(op), fmt.Sprintf(format, args...), nil)
}
