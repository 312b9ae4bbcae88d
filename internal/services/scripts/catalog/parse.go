package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type documentJSON struct {
	Situations      *[]situationJSON `json:"situations"`
	QuickPrinciples []string         `json:"quickPrinciples"`
}

type situationJSON struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Icon       string   `json:"icon"`
	Scripts    []string `json:"scripts"`
	Principles []string `json:"principles"`
}

// Parse converts fetched bytes into a Document or an explicit failure.
//
// Unknown fields are ignored. Trailing content after the top-level object is
// rejected as malformed.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw documentJSON
	if err := dec.Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}
	if raw.Situations == nil {
		return Document{}, ErrMissingSituations
	}
	situations := make([]Situation, 0, len(*raw.Situations))
	for _, s := range *raw.Situations {
		situations = append(situations, Situation{
			ID:         s.ID,
			Title:      s.Title,
			Icon:       s.Icon,
			Scripts:    s.Scripts,
			Principles: s.Principles,
		})
	}
	return NewDocument(situations, raw.QuickPrinciples)
}
