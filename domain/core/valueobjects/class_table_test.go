package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassTable(t *testing.T) {
	table := DefaultClassTable()

	require.Equal(t, 7, table.Len())

	label, ok := table.Label(0)
	require.True(t, ok)
	assert.Equal(t, "Case-Based", label)

	label, ok = table.Label(6)
	require.True(t, ok)
	assert.Equal(t, "Theory", label)

	_, ok = table.Label(7)
	assert.False(t, ok)
	_, ok = table.Label(-1)
	assert.False(t, ok)
}

func TestClassTableLookup(t *testing.T) {
	table := DefaultClassTable()

	tests := []struct {
		label string
		want  int
		found bool
	}{
		{"Case_Based", 0, true},
		{"Case-Based", 0, true},
		{"Genetic_Algorithms", 1, true},
		{"neural networks", 2, true},
		{"Probabilistic_Methods", 3, true},
		{"Reinforcement_Learning", 4, true},
		{"Rule_Learning", 5, true},
		{"Theory", 6, true},
		{"Astrology", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			id, ok := table.Lookup(tt.label)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, id)
			}
		})
	}
}

func TestNewClassTable(t *testing.T) {
	t.Run("rejects an empty table", func(t *testing.T) {
		_, err := NewClassTable(nil)
		assert.Error(t, err)
	})

	t.Run("rejects a blank label", func(t *testing.T) {
		_, err := NewClassTable([]string{"A", " "})
		assert.Error(t, err)
	})

	t.Run("rejects labels that collide after normalisation", func(t *testing.T) {
		_, err := NewClassTable([]string{"Rule_Learning", "rule learning"})
		assert.Error(t, err)
	})

	t.Run("labels are copied", func(t *testing.T) {
		labels := []string{"A", "B"}
		table, err := NewClassTable(labels)
		require.NoError(t, err)

		labels[0] = "Z"
		got := table.Labels()
		assert.Equal(t, []string{"A", "B"}, got)

		got[1] = "Y"
		label, _ := table.Label(1)
		assert.Equal(t, "B", label)
	})
}
