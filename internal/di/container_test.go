package di

import (
	"sync"
	"testing"
)

func TestContainer_FactoryRunsOnce(t *testing.T) {
	c := NewContainer()
	tok := NewToken[*int]("test.Counter")

	calls := 0
	RegisterToken(c, tok, func(sr ServiceRegistry) *int {
		calls++
		v := 42
		return &v
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := *GetToken(c, tok); got != 42 {
				t.Errorf("GetToken() = %d, want 42", got)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestContainer_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("prefix", "flash")

	tok := NewToken[string]("test:name")
	RegisterToken(c, tok, func(sr ServiceRegistry) string {
		return sr.Get("prefix").(string) + "arb"
	})

	if got := GetToken(c, tok); got != "flasharb" {
		t.Errorf("GetToken() = %q, want %q", got, "flasharb")
	}
	if !c.Has("test:name") {
		t.Error("Has() = false for registered token")
	}
}

func TestContainer_UnknownServicePanics(t *testing.T) {
	c := NewContainer()
	defer func() {
		if recover() == nil {
			t.Error("Get() on unknown name did not panic")
		}
	}()
	c.Get("missing")
}

func TestGetToken_NilInterface(t *testing.T) {
	c := NewContainer()
	tok := NewToken[error]("test:optional")
	RegisterToken(c, tok, func(ServiceRegistry) error { return nil })

	if got := GetToken(c, tok); got != nil {
		t.Errorf("GetToken() = %v, want nil", got)
	}
}
