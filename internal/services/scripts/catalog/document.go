// Package catalog owns the static situations document: its model, the
// boundary parser that turns untrusted JSON into it, and the sources a view
// session loads it from.
package catalog

// Situation is one parenting scenario with its ordered scripts and principles.
type Situation struct {
	ID         string
	Title      string
	Icon       string
	Scripts    []string
	Principles []string
}

// ScriptCount returns the number of scripts shown on the situation card.
func (s Situation) ScriptCount() int {
	return len(s.Scripts)
}

// Document is the immutable situations catalogue.
//
// Fields are unexported so a loaded document cannot be mutated; accessors
// hand out copies.
type Document struct {
	situations      []Situation
	quickPrinciples []string
	index           map[string]int
}

// NewDocument validates situations and builds an immutable document.
func NewDocument(situations []Situation, quickPrinciples []string) (Document, error) {
	doc := Document{
		situations:      make([]Situation, 0, len(situations)),
		quickPrinciples: copyStrings(quickPrinciples),
		index:           make(map[string]int, len(situations)),
	}
	for idx, situation := range situations {
		if err := validateSituation(idx, situation); err != nil {
			return Document{}, err
		}
		if _, exists := doc.index[situation.ID]; exists {
			return Document{}, duplicateSituationError(situation.ID)
		}
		doc.index[situation.ID] = len(doc.situations)
		doc.situations = append(doc.situations, copySituation(situation))
	}
	return doc, nil
}

// Len returns the number of situations.
func (d Document) Len() int {
	return len(d.situations)
}

// Situations returns all situations in document order.
func (d Document) Situations() []Situation {
	out := make([]Situation, 0, len(d.situations))
	for _, situation := range d.situations {
		out = append(out, copySituation(situation))
	}
	return out
}

// Situation looks up one situation by id.
func (d Document) Situation(id string) (Situation, bool) {
	idx, ok := d.index[id]
	if !ok {
		return Situation{}, false
	}
	return copySituation(d.situations[idx]), true
}

// Has reports whether id names a situation in the document.
func (d Document) Has(id string) bool {
	_, ok := d.index[id]
	return ok
}

// QuickPrinciples returns the general principles in document order.
func (d Document) QuickPrinciples() []string {
	return copyStrings(d.quickPrinciples)
}

func copySituation(s Situation) Situation {
	s.Scripts = copyStrings(s.Scripts)
	s.Principles = copyStrings(s.Principles)
	return s
}

func copyStrings(values []string) []string {
	return append(make([]string, 0, len(values)), values...)
}
