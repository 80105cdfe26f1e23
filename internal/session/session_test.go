package session_test

import (
	"testing"

	"publisher/internal/config"
	"publisher/internal/session"
)

func TestFromConfigBuildsContext(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Project = "demo"
	cfg.Session.EntityType = "Shot"
	cfg.Session.EntityID = 42
	cfg.Session.EntityName = "sh010"
	cfg.Session.Step = "comp"

	s := session.FromConfig(&cfg)
	if s.Engine != "shell" {
		t.Fatalf("unexpected engine %q", s.Engine)
	}
	if s.Context.EntityType() != "Shot" || s.Context.StepName() != "comp" {
		t.Fatalf("unexpected context %+v", s.Context)
	}
	if got := s.Context.String(); got != "Shot sh010, comp" {
		t.Fatalf("unexpected context string %q", got)
	}
}

func TestContextKeyDistinguishesContexts(t *testing.T) {
	var empty session.Context
	if !empty.IsZero() {
		t.Fatal("expected zero context")
	}

	a := session.Context{Entity: &session.Entity{Type: "Shot", ID: 1}}
	b := session.Context{Entity: &session.Entity{Type: "Shot", ID: 2}}
	if a.Key() == b.Key() {
		t.Fatal("expected different keys for different entities")
	}
	a2 := session.Context{Entity: &session.Entity{Type: "Shot", ID: 1}}
	if a.Key() != a2.Key() {
		t.Fatal("expected equal keys for equal contexts")
	}
	if a.IsZero() {
		t.Fatal("expected non-zero context")
	}
}
