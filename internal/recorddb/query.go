package recorddb

import (
	"fmt"
	"regexp"
)

// IDPattern matches valid document IDs (bae-<uuid> format) and the simple
// identifiers the PDF API issues. IDs are validated before interpolation
// into query strings to prevent GraphQL injection.
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks if a string is safe to use as a document ID in GraphQL
// queries.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty ID")
	}
	if len(id) > 500 {
		return fmt.Errorf("ID too long: %d characters", len(id))
	}
	if !IDPattern.MatchString(id) {
		return fmt.Errorf("invalid ID format: contains unsafe characters")
	}
	return nil
}
