package labeler

import (
	"errors"
	"slices"
	"testing"
)

func TestFactoryRegisterCreate(t *testing.T) {
	f := NewFactory[int, string]()
	if err := f.Register("double", func(n int) string { return string(rune('a' + 2*n)) }, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok := f.Create("double", 1)
	if !ok || got != "c" {
		t.Errorf("Create = (%q, %v), want (\"c\", true)", got, ok)
	}
	if _, ok := f.Create("missing", 1); ok {
		t.Error("Create of unregistered name should report false")
	}
}

func TestFactoryDuplicate(t *testing.T) {
	f := NewFactory[int, int]()
	f.MustRegister("id", func(n int) int { return n })
	err := f.Register("id", func(n int) int { return -n }, false)
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("Register duplicate err = %v, want ErrDuplicateRegistration", err)
	}
	if got, _ := f.Create("id", 3); got != 3 {
		t.Errorf("failed duplicate replaced the constructor: got %d", got)
	}
	if err := f.Register("id", func(n int) int { return -n }, true); err != nil {
		t.Fatalf("Register replace: %v", err)
	}
	if got, _ := f.Create("id", 3); got != -3 {
		t.Errorf("Create after replace = %d, want -3", got)
	}
}

func TestFactoryMustRegisterPanics(t *testing.T) {
	f := NewFactory[int, int]()
	f.MustRegister("x", func(int) int { return 0 })
	defer func() {
		if recover() == nil {
			t.Error("MustRegister duplicate should panic")
		}
	}()
	f.MustRegister("x", func(int) int { return 0 })
}

func TestFactoryDisabledName(t *testing.T) {
	f := NewFactory[int, int]()
	if err := f.Register("off", nil, false); err != nil {
		t.Fatalf("Register nil: %v", err)
	}
	if !f.Has("off") {
		t.Error("disabled name should be registered")
	}
	if _, ok := f.Create("off", 0); ok {
		t.Error("Create of disabled name should report false")
	}
}

func TestFactoryNamesUnregisterClear(t *testing.T) {
	f := NewFactory[int, int]()
	for _, n := range []string{"c", "a", "b"} {
		f.MustRegister(n, func(int) int { return 0 })
	}
	if got := f.Names(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Names = %v, want [a b c]", got)
	}
	f.Unregister("b")
	if f.Has("b") {
		t.Error("Unregister left the name")
	}
	f.Clear()
	if len(f.Names()) != 0 {
		t.Errorf("Names after Clear = %v", f.Names())
	}
}

func TestFactoryZeroValue(t *testing.T) {
	var f Factory[string, int]
	if _, ok := f.Create("x", ""); ok {
		t.Error("zero Factory Create should report false")
	}
	if err := f.Register("x", func(string) int { return 1 }, false); err != nil {
		t.Fatalf("zero Factory Register: %v", err)
	}
	if got, ok := f.Create("x", ""); !ok || got != 1 {
		t.Errorf("Create = (%d, %v), want (1, true)", got, ok)
	}
}
