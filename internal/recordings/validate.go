// ABOUTME: Validation of lead payloads before a recording is created
// ABOUTME: Enforces non-empty identifiers and that number_of_samples matches the signal length

package recordings

import (
	"fmt"

	"github.com/2389/ecg-gateway/internal/store"
)

// ValidateLeads checks a create payload. Errors wrap ErrValidation.
func ValidateLeads(leads []store.Lead) error {
	if len(leads) == 0 {
		return fmt.Errorf("%w: at least one lead is required", ErrValidation)
	}

	for i, lead := range leads {
		if lead.Identifier == "" {
			return fmt.Errorf("%w: lead %d: identifier is required", ErrValidation, i)
		}
		if lead.NumberOfSamples == nil {
			continue
		}
		if n := *lead.NumberOfSamples; n != len(lead.Signal) {
			return fmt.Errorf("%w: lead %q: number_of_samples is %d but signal has %d samples",
				ErrValidation, lead.Identifier, n, len(lead.Signal))
		}
	}
	return nil
}
