package taski

import "fmt"

// Section is a task whose body picks one of several concrete
// implementations at run time and presents that implementation's exports as
// its own. It is the Go shape of the spec's "select an implementation based
// on runtime conditions, forward its exports" construct (§4.8): Go has no
// metaprogramming story for dynamically redefining a struct's fields, so
// Section instead copies the selected implementation's exported field
// values onto itself via reflection (export.go's copyExports), once the
// implementation has completed.
//
// A Section is built by embedding it into a concrete struct, providing a
// Select method, and a Run method that hands the struct itself to
// Section.Run:
//
//	type Deploy struct {
//		taski.Section
//		Endpoint string
//	}
//
//	func (d *Deploy) Select(rc *taski.RunContext) (taski.Class, taski.Args, error) {
//		if isProduction() {
//			return ProdDeployClass{}, nil, nil
//		}
//		return DevDeployClass{}, nil, nil
//	}
//
//	func (d *Deploy) Run(rc *taski.RunContext) error { return d.Section.Run(d, rc) }
//
// Section.Run resolves the selected class's dependency, then forwards every
// exported field present on both Deploy and the resolved implementation.
type Section struct {
	// Section has no fields; when Run forwards exports, the field names are
	// read by reflection from the selected implementation, and names the
	// embedding struct lacks are skipped.
}

// Selector is implemented by the struct embedding Section.
type Selector interface {
	Select(rc *RunContext) (Class, Args, error)
}

// Select is Section's own fallback, promoted to any embedding struct that
// does not define its own. Go has no way to require an embedder override a
// promoted method at compile time, so an embedder that forgets to define
// Select dispatches here instead of panicking on a nil Class, matching the
// spec's base-class "Subclasses must implement the impl method" failure.
func (s *Section) Select(rc *RunContext) (Class, Args, error) {
	return nil, nil, fmt.Errorf("Subclasses must implement the impl method")
}

// Run resolves the embedding struct's Select, needs that dependency, and
// copies its exports onto the caller. self must be the concrete struct that
// embeds Section (Go cannot recover that pointer from inside the embedded
// value itself), since reflection needs the real exported-field set.
func (s *Section) Run(self Selector, rc *RunContext) error {
	class, args, err := self.Select(rc)
	if err != nil {
		return err
	}
	if class == nil {
		return fmt.Errorf("%s does not have an implementation", selectorName(self))
	}
	impl, err := rc.Need(class, args)
	if err != nil {
		return err
	}
	selfTask, ok := self.(Task)
	if !ok {
		return nil
	}
	names := exportNames(impl)
	return copyExports(selfTask, impl, names)
}

// selectorName gives the "does not have an implementation" failure a
// concrete subject: the selecting task's own class name when available, or
// its Go type name otherwise.
func selectorName(self Selector) string {
	if task, ok := self.(Task); ok {
		if named, ok := task.(interface{ Name() string }); ok {
			return named.Name()
		}
	}
	return fmt.Sprintf("%T", self)
}
