package entities

import (
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/core/valueobjects"

	"github.com/google/uuid"
)

// Paper is a submitted paper that became a node of the citation graph.
// Placement fields are set when the graph commits the node.
type Paper struct {
	ID         uuid.UUID
	Title      valueobjects.Title
	NodeIndex  int
	AttachedTo int
	Similarity float64
	CreatedAt  time.Time
}

// NewPaper creates an unplaced paper
func NewPaper(title valueobjects.Title) *Paper {
	return &Paper{
		ID:         uuid.New(),
		Title:      title,
		NodeIndex:  -1,
		AttachedTo: -1,
		CreatedAt:  time.Now().UTC(),
	}
}

// Place records where the paper landed in the graph
func (p *Paper) Place(nodeIndex, attachedTo int, similarity float64) {
	p.NodeIndex = nodeIndex
	p.AttachedTo = attachedTo
	p.Similarity = similarity
}

// IsPlaced reports whether the paper has been committed to a graph
func (p *Paper) IsPlaced() bool {
	return p.NodeIndex >= 0
}
