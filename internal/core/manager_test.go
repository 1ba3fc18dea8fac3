package core

import "testing"

func newTestManager(plugins ...*fakePlugin) *Manager {
	byPkg := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		byPkg[p.pkg] = p
	}
	return NewManager(func(pkg string) (Plugin, bool) {
		p, ok := byPkg[pkg]
		return p, ok
	})
}

func TestCreateAndFindSession(t *testing.T) {
	m := newTestManager()
	s := m.CreateSession()
	if s.ID == 0 {
		t.Fatalf("expected non-zero session id")
	}
	got, ok := m.FindSession(s.ID)
	if !ok || got != s {
		t.Fatalf("FindSession did not return the created session")
	}
}

func TestDestroySessionRemovesItAndCascades(t *testing.T) {
	fp := newFakePlugin("test.echo")
	m := newTestManager(fp)
	s := m.CreateSession()
	h, err := m.CreateHandle(s, "test.echo")
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}

	if err := m.DestroySession(s.ID); err != nil {
		t.Fatalf("DestroySession: %v", err)
	}

	if _, ok := m.FindSession(s.ID); ok {
		t.Fatalf("expected session to be gone after destroy")
	}
	if !h.IsDestroyed() {
		t.Fatalf("expected handle to be marked destroyed")
	}
	if len(fp.destroyed) != 1 || fp.destroyed[0] != h.ID {
		t.Fatalf("expected plugin DestroySession to be called once for handle %d, got %v", h.ID, fp.destroyed)
	}
	if len(fp.hungup) != 1 {
		t.Fatalf("expected HangupMedia to be called before DestroySession")
	}
}

func TestCreateHandleUnknownPluginFails(t *testing.T) {
	m := newTestManager()
	s := m.CreateSession()
	if _, err := m.CreateHandle(s, "no.such.plugin"); err == nil {
		t.Fatalf("expected error for unknown plugin package")
	}
}

func TestCreateHandleRejectedByPluginIsNotRegistered(t *testing.T) {
	fp := newFakePlugin("test.reject")
	fp.createErr = errTestReject
	m := newTestManager(fp)
	s := m.CreateSession()

	if _, err := m.CreateHandle(s, "test.reject"); err == nil {
		t.Fatalf("expected CreateHandle to surface the plugin's rejection")
	}
	if s.Handles.Len() != 0 {
		t.Fatalf("expected rejected handle to not remain in the registry")
	}
}

func TestDestroyHandleDetachesOnlyThatHandle(t *testing.T) {
	fp := newFakePlugin("test.echo")
	m := newTestManager(fp)
	s := m.CreateSession()
	h1, _ := m.CreateHandle(s, "test.echo")
	h2, _ := m.CreateHandle(s, "test.echo")

	if err := m.DestroyHandle(s, h1.ID); err != nil {
		t.Fatalf("DestroyHandle: %v", err)
	}

	if _, ok := m.FindHandle(s, h1.ID); ok {
		t.Fatalf("expected h1 to be gone")
	}
	if _, ok := m.FindHandle(s, h2.ID); !ok {
		t.Fatalf("expected h2 to remain untouched")
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTestReject = testError("rejected")
