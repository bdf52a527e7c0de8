// ABOUTME: Pure per-lead statistics computed from stored signals.
// ABOUTME: Zero crossings count sign changes between strictly positive and strictly negative samples.

package insight

import "github.com/2389/ecg-gateway/internal/store"

// Insights is the derived view of a recording returned to clients.
type Insights struct {
	// ZeroCrossings maps lead identifier to its crossing count.
	ZeroCrossings map[string]int `json:"zero_crossings"`
}

// Compute derives every insight for the given leads.
func Compute(leads []store.Lead) Insights {
	return Insights{
		ZeroCrossings: ZeroCrossings(leads),
	}
}

// ZeroCrossings returns one count per lead, keyed by identifier.
// When two leads share an identifier the later one wins.
func ZeroCrossings(leads []store.Lead) map[string]int {
	result := make(map[string]int, len(leads))
	for _, lead := range leads {
		result[lead.Identifier] = CountZeroCrossings(lead.Signal)
	}
	return result
}

// CountZeroCrossings counts adjacent sample pairs with strictly opposite signs.
// A zero sample never participates in a crossing.
func CountZeroCrossings(signal []int) int {
	count := 0
	for i := 1; i < len(signal); i++ {
		prev, cur := signal[i-1], signal[i]
		if (prev > 0 && cur < 0) || (prev < 0 && cur > 0) {
			count++
		}
	}
	return count
}
