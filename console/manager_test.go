package console

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"demo-console/runtime"
)

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t, nil, nil)
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, ok := m.Get(s.ID)
	if !ok {
		t.Fatal("Get returned ok=false for existing session")
	}
	if got.ID != s.ID {
		t.Fatalf("Get returned wrong session")
	}
}

func TestCreateOptions(t *testing.T) {
	m := newTestManager(t, nil, nil)
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	opts := s.Options()
	if len(opts) != 2 || opts[0].Key != "HelloWorld" || opts[1].Key != "Fibonacci" {
		t.Fatalf("expected built-ins then catalog without repeats, got %+v", opts)
	}
}

func TestCatalogMatchesNewSession(t *testing.T) {
	m := newTestManager(t, nil, nil)
	cat := m.Catalog()
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	opts := s.Options()
	if len(cat) != len(opts) {
		t.Fatalf("catalog %+v differs from session options %+v", cat, opts)
	}
	for i := range cat {
		if cat[i] != opts[i] {
			t.Fatalf("catalog %+v differs from session options %+v", cat, opts)
		}
	}
}

func TestCreateSelectsInitialDemo(t *testing.T) {
	m := NewManager(Options{
		Builtins: map[string]string{"HelloWorld": helloWorld},
		Catalog:  []string{"Fibonacci"},
		Fetcher:  &mapFetcher{},
		Runtime:  jsFactory,
		Initial:  "HelloWorld",
	})
	t.Cleanup(m.CloseAll)

	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.Focus() != "HelloWorld" || s.Editor().Text() != helloWorld {
		t.Fatalf("expected HelloWorld shown at start, got focus=%q editor=%q", s.Focus(), s.Editor().Text())
	}
	if _, err := s.Duplicate(); err != nil {
		t.Fatalf("Duplicate on a fresh session failed: %v", err)
	}
	res, err := s.Submit(context.Background(), false)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Output != "Hello World!\n" {
		t.Fatalf("expected hello output, got %q", res.Output)
	}
}

func TestCreateRuntimeFailure(t *testing.T) {
	m := newTestManager(t, nil, func(io.Writer) (runtime.Runtime, error) {
		return nil, errors.New("boom")
	})
	if _, err := m.Create(); err == nil {
		t.Fatal("expected runtime init error")
	}
	if len(m.List()) != 0 {
		t.Fatal("failed session must not be registered")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	m := newTestManager(t, nil, nil)
	a, _ := m.Create()
	b, _ := m.Create()
	waitErr(t, a.Select("HelloWorld"))
	a.Edit("changed")
	a.Snap()
	if src, _ := b.Store().Get("HelloWorld"); src != helloWorld {
		t.Fatalf("edit leaked across sessions: %q", src)
	}
}

func TestList(t *testing.T) {
	m := newTestManager(t, nil, nil)
	m.Create()
	m.Create()
	list := m.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatal("expected oldest first")
	}
}

func TestKill(t *testing.T) {
	rt := &fakeRuntime{}
	m := newTestManager(t, nil, fakeFactory(rt))
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.Kill(s.ID); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}
	if _, ok := m.Get(s.ID); ok {
		t.Fatal("session still exists after Kill")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Kill")
	}
	if rt.Quits() != 1 {
		t.Fatalf("expected runtime quit once, got %d", rt.Quits())
	}
}

func TestKillNotFound(t *testing.T) {
	m := newTestManager(t, nil, nil)
	if err := m.Kill("nonexistent"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReap(t *testing.T) {
	m := newTestManager(t, nil, nil)
	idle, _ := m.Create()
	time.Sleep(30 * time.Millisecond)
	busy, _ := m.Create()

	if n := m.Reap(20 * time.Millisecond); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if _, ok := m.Get(idle.ID); ok {
		t.Fatal("idle session survived Reap")
	}
	if _, ok := m.Get(busy.ID); !ok {
		t.Fatal("active session was reaped")
	}
	if n := m.Reap(0); n != 0 {
		t.Fatalf("Reap(0) must be disabled, got %d", n)
	}
}

func TestCloseAll(t *testing.T) {
	m := newTestManager(t, nil, nil)
	s1, _ := m.Create()
	s2, _ := m.Create()
	m.CloseAll()
	if len(m.List()) != 0 {
		t.Fatal("expected no sessions after CloseAll")
	}
	for _, s := range []*Session{s1, s2} {
		select {
		case <-s.Done():
		default:
			t.Fatalf("session %s still open", s.ID)
		}
	}
}
