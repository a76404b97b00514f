package labeler

import (
	"fmt"
	"maps"
	"slices"
)

// Factory maps class names to constructors taking an A and producing a T.
// Registries are open: configuration fills them at startup.
type Factory[A, T any] struct {
	ctors map[string]func(A) T
}

// ItemFactory builds the graphical item for an annotation node by class.
type ItemFactory = Factory[*Node, Item]

// InserterFactory builds the inserter for a drawing tool by class.
type InserterFactory = Factory[InserterContext, Inserter]

// NewFactory returns an empty Factory.
func NewFactory[A, T any]() *Factory[A, T] {
	return &Factory[A, T]{ctors: make(map[string]func(A) T)}
}

// Register binds name to ctor. It fails with ErrDuplicateRegistration when
// name is already bound and replace is false. A nil ctor registers the name
// as known but disabled: Create reports false for it.
func (f *Factory[A, T]) Register(name string, ctor func(A) T, replace bool) error {
	if f.ctors == nil {
		f.ctors = make(map[string]func(A) T)
	}
	if _, ok := f.ctors[name]; ok && !replace {
		return fmt.Errorf("labeler: register %q: %w", name, ErrDuplicateRegistration)
	}
	f.ctors[name] = ctor
	return nil
}

// MustRegister is Register with replace false that panics on a duplicate.
func (f *Factory[A, T]) MustRegister(name string, ctor func(A) T) {
	if err := f.Register(name, ctor, false); err != nil {
		panic(err.Error())
	}
}

// Create invokes the constructor bound to name. It reports false when name
// is unregistered or disabled.
func (f *Factory[A, T]) Create(name string, arg A) (T, bool) {
	ctor := f.ctors[name]
	if ctor == nil {
		var zero T
		return zero, false
	}
	return ctor(arg), true
}

// Unregister removes name.
func (f *Factory[A, T]) Unregister(name string) {
	delete(f.ctors, name)
}

// Clear removes every binding.
func (f *Factory[A, T]) Clear() {
	clear(f.ctors)
}

// Has reports whether name is registered, including disabled names.
func (f *Factory[A, T]) Has(name string) bool {
	_, ok := f.ctors[name]
	return ok
}

// Names returns the registered names in sorted order.
func (f *Factory[A, T]) Names() []string {
	return slices.Sorted(maps.Keys(f.ctors))
}
