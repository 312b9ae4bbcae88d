package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports content that is not a single JSON document.
	ErrMalformed = errors.New("situations document is malformed")
	// ErrMissingSituations reports a document without a situations array.
	ErrMissingSituations = errors.New("situations document has no situations array")
	// ErrInvalidSituation reports a situation missing its id or title.
	ErrInvalidSituation = errors.New("situation is invalid")
	// ErrDuplicateSituation reports two situations sharing one id.
	ErrDuplicateSituation = errors.New("situation id is duplicated")
	// ErrStatus reports a non-success response from the data resource.
	ErrStatus = errors.New("situations resource returned non-success status")
	// ErrSourceRequired reports a load attempted without a source.
	ErrSourceRequired = errors.New("situations source is required")
)

func validateSituation(idx int, s Situation) error {
	if s.ID == "" {
		return fmt.Errorf("%w: situation %d has no id", ErrInvalidSituation, idx)
	}
	if s.Title == "" {
		return fmt.Errorf("%w: situation %q has no title", ErrInvalidSituation, s.ID)
	}
	return nil
}

func duplicateSituationError(id string) error {
	return fmt.Errorf("%w: %q", ErrDuplicateSituation, id)
}
