package catalog

import (
	"errors"
	"testing"
)

func TestDocumentAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument([]Situation{{
		ID:         "tantrum",
		Title:      "Tantrum",
		Scripts:    []string{"one"},
		Principles: []string{"calm"},
	}}, []string{"connect"})
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}

	situations := doc.Situations()
	situations[0].Title = "changed"
	situations[0].Scripts[0] = "changed"
	quick := doc.QuickPrinciples()
	quick[0] = "changed"
	one, _ := doc.Situation("tantrum")
	one.Principles[0] = "changed"

	again, ok := doc.Situation("tantrum")
	if !ok {
		t.Fatal("expected tantrum")
	}
	if again.Title != "Tantrum" || again.Scripts[0] != "one" || again.Principles[0] != "calm" {
		t.Fatalf("document mutated through accessor: %+v", again)
	}
	if got := doc.QuickPrinciples()[0]; got != "connect" {
		t.Fatalf("quick principle mutated: %q", got)
	}
}

func TestNewDocumentCopiesInput(t *testing.T) {
	t.Parallel()

	scripts := []string{"one"}
	doc, err := NewDocument([]Situation{{ID: "a", Title: "A", Scripts: scripts}}, nil)
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	scripts[0] = "changed"
	got, _ := doc.Situation("a")
	if got.Scripts[0] != "one" {
		t.Fatalf("Scripts[0] = %q, want %q", got.Scripts[0], "one")
	}
}

func TestDocumentLookup(t *testing.T) {
	t.Parallel()

	doc, err := NewDocument([]Situation{
		{ID: "a", Title: "A", Scripts: []string{"1", "2", "3"}},
		{ID: "b", Title: "B"},
	}, nil)
	if err != nil {
		t.Fatalf("NewDocument() error = %v", err)
	}
	if !doc.Has("b") {
		t.Fatal("expected b")
	}
	if doc.Has("missing") {
		t.Fatal("unexpected missing")
	}
	if _, ok := doc.Situation("missing"); ok {
		t.Fatal("expected lookup miss")
	}
	a, _ := doc.Situation("a")
	if a.ScriptCount() != 3 {
		t.Fatalf("ScriptCount() = %d, want 3", a.ScriptCount())
	}
	situations := doc.Situations()
	if situations[0].ID != "a" || situations[1].ID != "b" {
		t.Fatalf("order = %q,%q, want a,b", situations[0].ID, situations[1].ID)
	}
}

func TestNewDocumentRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	_, err := NewDocument([]Situation{{ID: "a", Title: "A"}, {ID: "a", Title: "A again"}}, nil)
	if !errors.Is(err, ErrDuplicateSituation) {
		t.Fatalf("NewDocument() error = %v, want %v", err, ErrDuplicateSituation)
	}
}
