package txn

import "testing"

func TestRegisterAndRemove(t *testing.T) {
	r := New()
	if err := r.Register("t1", "s1", ReadWrite); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Exists("t1") {
		t.Error("expected t1 to exist")
	}
	s, err := r.Remove("t1")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", s.SessionID)
	}
	if r.Exists("t1") {
		t.Error("expected t1 removed")
	}
}

func TestDoubleBeginFails(t *testing.T) {
	r := New()
	if err := r.Register("t1", "s1", ReadWrite); err != nil {
		t.Fatalf("Register t1: %v", err)
	}
	if err := r.Register("t2", "s1", ReadWrite); err == nil {
		t.Fatal("expected error registering a second transaction for the same session")
	}
}

func TestValidateWrongSession(t *testing.T) {
	r := New()
	_ = r.Register("t1", "s1", ReadWrite)
	if err := r.Validate("t1", "s2"); err == nil {
		t.Fatal("expected wrong-session error")
	}
	if err := r.Validate("t1", "s1"); err != nil {
		t.Errorf("Validate with correct session: %v", err)
	}
	if err := r.Validate("missing", "s1"); err == nil {
		t.Fatal("expected not-found error for missing transaction")
	}
}

func TestRemoveForSession(t *testing.T) {
	r := New()
	_ = r.Register("t1", "s1", ReadOnly)
	removed := r.RemoveForSession("s1")
	if len(removed) != 1 || removed[0] != "t1" {
		t.Errorf("RemoveForSession = %v, want [t1]", removed)
	}
	if r.Exists("t1") {
		t.Error("expected t1 removed")
	}
	// Idempotent: calling again for a session with no transaction is a no-op.
	if removed := r.RemoveForSession("s1"); removed != nil {
		t.Errorf("expected nil on second call, got %v", removed)
	}
}

func TestRegisterAfterRemoveAllowsNewTransaction(t *testing.T) {
	r := New()
	_ = r.Register("t1", "s1", ReadWrite)
	_, _ = r.Remove("t1")
	if err := r.Register("t2", "s1", ReadWrite); err != nil {
		t.Errorf("expected new transaction to register after prior removed, got %v", err)
	}
}
