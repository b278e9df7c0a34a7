package session

import (
	"testing"
	"time"

	"github.com/grafeodb/gwp/gqltypes"
)

func TestRegisterAndExists(t *testing.T) {
	r := New(0)
	if err := r.Register("s1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Exists("s1") {
		t.Error("expected s1 to exist")
	}
	if r.Exists("nope") {
		t.Error("expected nope to not exist")
	}
}

func TestCapacityEnforced(t *testing.T) {
	r := New(1)
	if err := r.Register("s1"); err != nil {
		t.Fatalf("Register s1: %v", err)
	}
	if err := r.Register("s2"); err == nil {
		t.Fatal("expected capacity error registering s2")
	}
}

func TestConfigureMissingSession(t *testing.T) {
	r := New(0)
	if err := r.Configure("missing", Property{Kind: PropertySchema, Schema: "x"}); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestConfigureAndSnapshot(t *testing.T) {
	r := New(0)
	_ = r.Register("s1")
	if err := r.Configure("s1", Property{Kind: PropertySchema, Schema: "prod"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := r.Configure("s1", Property{Kind: PropertyParameter, ParamName: "x", ParamValue: gqltypes.Int(5)}); err != nil {
		t.Fatalf("Configure param: %v", err)
	}
	snap, ok := r.Snapshot("s1")
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if snap.CurrentSchema == nil || *snap.CurrentSchema != "prod" {
		t.Errorf("schema = %v, want prod", snap.CurrentSchema)
	}
	if snap.Parameters["x"].Integer != 5 {
		t.Errorf("param x = %v, want 5", snap.Parameters["x"])
	}
}

func TestResetAll(t *testing.T) {
	r := New(0)
	_ = r.Register("s1")
	_ = r.Configure("s1", Property{Kind: PropertyGraph, Graph: "g1"})
	if err := r.Reset("s1", ResetAll); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	snap, _ := r.Snapshot("s1")
	if snap.CurrentGraph != nil {
		t.Errorf("graph = %v, want nil after reset", snap.CurrentGraph)
	}
}

func TestActiveTransactionPointer(t *testing.T) {
	r := New(0)
	_ = r.Register("s1")
	if _, ok := r.ActiveTransaction("s1"); ok {
		t.Error("expected no active transaction initially")
	}
	r.SetActiveTransaction("s1", "t1")
	got, ok := r.ActiveTransaction("s1")
	if !ok || got != "t1" {
		t.Errorf("ActiveTransaction = %q, %v, want t1, true", got, ok)
	}
	r.SetActiveTransaction("s1", "")
	if _, ok := r.ActiveTransaction("s1"); ok {
		t.Error("expected active transaction cleared")
	}
}

func TestReapIdle(t *testing.T) {
	r := New(0)
	_ = r.Register("s1")
	// An idle window of zero puts the cutoff at the moment of the sweep,
	// which is after s1's registration.
	reaped := r.ReapIdle(0)
	if len(reaped) != 1 || reaped[0] != "s1" {
		t.Errorf("ReapIdle(0) = %v, want [s1]", reaped)
	}
	if r.Exists("s1") {
		t.Error("expected s1 removed after reap")
	}
}

func TestReapIdleRespectsWindow(t *testing.T) {
	r := New(0)
	_ = r.Register("s1")
	reaped := r.ReapIdle(time.Hour)
	if len(reaped) != 0 {
		t.Errorf("ReapIdle(1h) = %v, want none reaped", reaped)
	}
}

func TestSetActiveTransactionMissingSessionNoop(t *testing.T) {
	r := New(0)
	r.SetActiveTransaction("missing", "t1") // must not panic
	if r.Exists("missing") {
		t.Error("missing session should not spring into existence")
	}
}
