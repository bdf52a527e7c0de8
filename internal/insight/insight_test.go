// ABOUTME: Tests for zero crossing and insight computation.
// ABOUTME: Covers short signals, zero handling, and multi-lead results.

package insight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ecg-gateway/internal/store"
)

func TestCountZeroCrossings(t *testing.T) {
	tests := []struct {
		name   string
		signal []int
		want   int
	}{
		{"nil", nil, 0},
		{"empty", []int{}, 0},
		{"single positive", []int{7}, 0},
		{"single negative", []int{-7}, 0},
		{"monotonic positive", []int{1, 2, 3, 4, 5}, 0},
		{"mixed", []int{5, -1, 3, -5, -10, 10}, 4},
		{"alternating", []int{1, -1, 1, -1}, 3},
		{"through zero does not count", []int{1, 0, -1}, 0},
		{"zero to positive", []int{0, 5}, 0},
		{"negative to zero", []int{-5, 0}, 0},
		{"all zeros", []int{0, 0, 0}, 0},
		{"zero between same sign", []int{-3, 0, -3, 4}, 1},
		{"large magnitudes", []int{1 << 30, -(1 << 30)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountZeroCrossings(tt.signal))
		})
	}
}

func TestZeroCrossings_PerLead(t *testing.T) {
	leads := []store.Lead{
		{Identifier: "I", Signal: []int{1, 2, 3, 4, 5}},
		{Identifier: "II", Signal: []int{5, -1, 3, -5, -10, 10}},
		{Identifier: "III", Signal: []int{}},
	}

	got := ZeroCrossings(leads)
	assert.Equal(t, map[string]int{"I": 0, "II": 4, "III": 0}, got)
}

func TestZeroCrossings_DuplicateIdentifierKeepsLast(t *testing.T) {
	leads := []store.Lead{
		{Identifier: "I", Signal: []int{1, -1}},
		{Identifier: "I", Signal: []int{1, 1}},
	}

	assert.Equal(t, map[string]int{"I": 0}, ZeroCrossings(leads))
}

func TestZeroCrossings_NoLeads(t *testing.T) {
	got := ZeroCrossings(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCompute_JSONShape(t *testing.T) {
	ins := Compute([]store.Lead{{Identifier: "II", Signal: []int{5, -1, 3}}})

	data, err := json.Marshal(ins)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zero_crossings":{"II":2}}`, string(data))
}
