// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"fmt"
	"sync"
)

// Transform derives zero or more events from one source event. A
// transform instance may carry internal windowed state (rolling windows,
// calibration offsets); that state is owned exclusively by the instance
// and the registry serializes calls into it.
//
// The returned events need only carry Data; the registry stamps the
// definition's output type and producer before re-emitting.
type Transform interface {
	Transform(Event) []Event
}

// TransformFunc adapts a stateless function to Transform.
type TransformFunc func(Event) []Event

// Transform implements Transform.
func (f TransformFunc) Transform(e Event) []Event { return f(e) }

// VirtualDefinition declares a derived peripheral: which event types it
// listens to, what it emits, and how to build its transform.
type VirtualDefinition struct {
	// Name uniquely identifies the definition within a registry.
	Name string

	// InputTypes are the source event types the transform observes.
	InputTypes []string

	// OutputType is the derived events' type.
	OutputType string

	// OutputProducer is the derived events' producer id.
	OutputProducer int

	// NewTransform builds the definition's runtime transform instance.
	// Called once per Register, so each registration owns fresh state.
	NewTransform func() Transform
}

func (d VirtualDefinition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("bus: virtual definition needs a name")
	}
	if len(d.InputTypes) == 0 {
		return fmt.Errorf("bus: virtual definition %q needs at least one input type", d.Name)
	}
	if d.OutputType == "" {
		return fmt.Errorf("bus: virtual definition %q needs an output type", d.Name)
	}
	if d.NewTransform == nil {
		return fmt.Errorf("bus: virtual definition %q needs a transform constructor", d.Name)
	}
	for _, in := range d.InputTypes {
		if in == d.OutputType {
			return fmt.Errorf("bus: virtual definition %q would feed back into its own input type %q", d.Name, in)
		}
	}
	return nil
}

// virtualInstance is one registered definition's runtime state.
type virtualInstance struct {
	def       VirtualDefinition
	transform Transform
	subs      []*Subscription

	// mu serializes transform calls: input subscriptions can fire from
	// concurrent emitters, but the transform's windowed state is owned
	// by exactly this instance.
	mu sync.Mutex
}

// VirtualRegistry wires virtual peripherals into a bus. It is an
// explicit object handed around by construction, so tests and engines
// instantiate isolated registries instead of sharing process globals.
type VirtualRegistry struct {
	bus *Bus

	mu        sync.Mutex
	instances map[string]*virtualInstance
}

// NewVirtualRegistry creates a registry over b.
func NewVirtualRegistry(b *Bus) *VirtualRegistry {
	return &VirtualRegistry{
		bus:       b,
		instances: make(map[string]*virtualInstance),
	}
}

// Register validates def, builds its transform, and subscribes it to
// every input type. Derived events re-enter the same bus stamped with
// the definition's output type and producer.
func (r *VirtualRegistry) Register(def VirtualDefinition) error {
	if err := def.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[def.Name]; exists {
		return fmt.Errorf("bus: virtual definition %q already registered", def.Name)
	}

	inst := &virtualInstance{
		def:       def,
		transform: def.NewTransform(),
	}
	for _, typ := range def.InputTypes {
		inst.subs = append(inst.subs, r.bus.Subscribe(typ, inst.handle(r.bus)))
	}
	r.instances[def.Name] = inst
	return nil
}

// handle returns the bus handler feeding one instance.
func (inst *virtualInstance) handle(b *Bus) Handler {
	return func(e Event) error {
		inst.mu.Lock()
		derived := inst.transform.Transform(e)
		inst.mu.Unlock()

		for _, d := range derived {
			d.Type = inst.def.OutputType
			d.Producer = inst.def.OutputProducer
			b.Emit(d)
		}
		return nil
	}
}

// Unregister cancels def's subscriptions and drops it.
func (r *VirtualRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[name]
	if !ok {
		return fmt.Errorf("bus: virtual definition %q not registered", name)
	}
	for _, sub := range inst.subs {
		sub.Cancel()
	}
	delete(r.instances, name)
	return nil
}

// Names returns the registered definition names.
func (r *VirtualRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	return names
}
