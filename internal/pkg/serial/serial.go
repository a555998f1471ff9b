// Package serial builds the registry's human-readable identifiers: project
// IDs ("KEN-2025-001") and credit serial numbers ("KEN-2025-001-2024-003").
// Uniqueness is enforced by the store's unique indexes, not here; callers
// retry with the next sequence on a collision.
package serial

import (
	"fmt"
	"strings"
)

// ProjectID returns "{COUNTRY}-{YEAR}-{sequence}" with a zero-padded
// three-digit sequence. Country codes are upper-cased.
func ProjectID(countryCode string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%03d", strings.ToUpper(countryCode), year, sequence)
}

// SerialNumber returns "{projectID}-{vintage}-{batch}" with a zero-padded
// three-digit batch number. Deterministic for a given input.
func SerialNumber(projectID string, vintage, batchNumber int) string {
	return fmt.Sprintf("%s-%d-%03d", projectID, vintage, batchNumber)
}
