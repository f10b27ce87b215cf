package valueobjects

import (
	"fmt"
	"strings"
)

// CoraClassNames lists the Cora topics indexed by class id.
var CoraClassNames = []string{
	"Case-Based",
	"Genetic Algorithms",
	"Neural Networks",
	"Probabilistic Methods",
	"Reinforcement Learning",
	"Rule Learning",
	"Theory",
}

// ClassTable maps class ids to human-readable labels. It is immutable once
// built.
type ClassTable struct {
	labels []string
	index  map[string]int
}

// NewClassTable builds a table from labels ordered by class id.
func NewClassTable(labels []string) (ClassTable, error) {
	if len(labels) == 0 {
		return ClassTable{}, fmt.Errorf("class table must not be empty")
	}

	index := make(map[string]int, len(labels))
	owned := make([]string, len(labels))
	for id, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return ClassTable{}, fmt.Errorf("class %d has an empty label", id)
		}
		key := normalizeLabel(label)
		if prev, dup := index[key]; dup {
			return ClassTable{}, fmt.Errorf("class %d duplicates label of class %d: %q", id, prev, label)
		}
		index[key] = id
		owned[id] = label
	}

	return ClassTable{labels: owned, index: index}, nil
}

// DefaultClassTable returns the Cora table.
func DefaultClassTable() ClassTable {
	table, err := NewClassTable(CoraClassNames)
	if err != nil {
		panic(err)
	}
	return table
}

// Len returns the number of classes
func (t ClassTable) Len() int {
	return len(t.labels)
}

// Label returns the label for a class id
func (t ClassTable) Label(id int) (string, bool) {
	if id < 0 || id >= len(t.labels) {
		return "", false
	}
	return t.labels[id], true
}

// Labels returns a copy of all labels ordered by class id
func (t ClassTable) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Lookup resolves a label to its class id. Matching ignores case and treats
// '_', '-' and ' ' alike, so the raw Cora spelling "Case_Based" resolves to
// "Case-Based".
func (t ClassTable) Lookup(label string) (int, bool) {
	id, ok := t.index[normalizeLabel(label)]
	return id, ok
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer("_", " ", "-", " ").Replace(label)
}
