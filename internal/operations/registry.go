package operations

import (
	"fmt"
)

// Registry keeps steps in the order they will run
type Registry struct {
	steps []Step
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends step; ids must be unique and non-empty
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("step %q has an empty id", step.Name())
	}
	if _, dup := r.index[id]; dup {
		return fmt.Errorf("step %s registered twice", id)
	}
	r.index[id] = len(r.steps)
	r.steps = append(r.steps, step)
	return nil
}

func (r *Registry) Get(id string) (Step, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("unknown step %s", id)
	}
	return r.steps[i], nil
}

func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// List returns a copy of the steps in run order
func (r *Registry) List() []Step {
	return append([]Step(nil), r.steps...)
}

func (r *Registry) Count() int { return len(r.steps) }
