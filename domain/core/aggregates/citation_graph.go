package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Quan024/Phan-loai-bao/domain/core/entities"
	"github.com/Quan024/Phan-loai-bao/domain/events"
	"github.com/Quan024/Phan-loai-bao/domain/services"
	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"

	"github.com/google/uuid"
)

// OverflowPolicy decides what happens once the graph holds its maximum
// number of added nodes.
type OverflowPolicy string

const (
	// OverflowReset drops every added node and restarts from the seed graph
	OverflowReset OverflowPolicy = "reset"
	// OverflowReject refuses new papers until the limit is raised
	OverflowReject OverflowPolicy = "reject"
)

// Valid reports whether the policy is known
func (p OverflowPolicy) Valid() bool {
	return p == OverflowReset || p == OverflowReject
}

// Limits bounds how far the graph may grow past its seed. MaxAddedNodes of
// zero means unbounded.
type Limits struct {
	MaxAddedNodes int
	Policy        OverflowPolicy
}

// Snapshot is a consistent view of the graph handed to inference. Its
// slices alias graph storage and must not be retained or modified after
// the InferFunc returns.
type Snapshot struct {
	Features []float64 // row-major, Nodes x Dim
	Nodes    int
	Dim      int
	Src      []int
	Dst      []int
	NewIndex int
}

// Row returns node i's feature row
func (s Snapshot) Row(i int) []float64 {
	return s.Features[i*s.Dim : (i+1)*s.Dim]
}

// EdgeCount returns the number of directed edges
func (s Snapshot) EdgeCount() int {
	return len(s.Src)
}

// InferFunc runs against a staged snapshot. Returning an error aborts the
// extension and nothing is committed.
type InferFunc func(ctx context.Context, snap Snapshot) error

// Attachment describes where a paper was placed. Events holds the domain
// events raised by this extension only.
type Attachment struct {
	NodeIndex  int
	AttachedTo int
	Similarity float64
	Reset      bool
	Events     []events.DomainEvent
}

// CitationGraph is the aggregate root for the mutable citation graph. It
// owns the feature matrix and the edge list and serializes every
// read-modify-write sequence behind a single mutex.
type CitationGraph struct {
	mu sync.Mutex

	id       string
	dim      int
	features []float64
	norms    []float64
	src      []int
	dst      []int

	seedNodes int
	seedEdges int

	papers []*entities.Paper
	limits Limits
}

// NewCitationGraph seeds a graph from a flat feature matrix and an edge
// list. The graph takes ownership of the slices.
func NewCitationGraph(features []float64, dim int, src, dst []int) (*CitationGraph, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimension must be positive, got %d", dim)
	}
	if len(features) == 0 || len(features)%dim != 0 {
		return nil, fmt.Errorf("feature matrix of length %d is not a non-empty multiple of dimension %d", len(features), dim)
	}
	if len(src) != len(dst) {
		return nil, fmt.Errorf("edge list is ragged: %d sources, %d destinations", len(src), len(dst))
	}

	nodes := len(features) / dim
	for i := range src {
		if src[i] < 0 || src[i] >= nodes || dst[i] < 0 || dst[i] >= nodes {
			return nil, fmt.Errorf("edge %d (%d -> %d) references a node outside [0, %d)", i, src[i], dst[i], nodes)
		}
	}

	norms := make([]float64, nodes)
	for i := range norms {
		norms[i] = services.Norm(features[i*dim : (i+1)*dim])
	}

	return &CitationGraph{
		id:        uuid.New().String(),
		dim:       dim,
		features:  features,
		norms:     norms,
		src:       src,
		dst:       dst,
		seedNodes: nodes,
		seedEdges: len(src),
		limits:    Limits{Policy: OverflowReset},
	}, nil
}

// ID returns the graph identifier used as aggregate id for events
func (g *CitationGraph) ID() string {
	return g.id
}

// Dim returns the feature dimension
func (g *CitationGraph) Dim() int {
	return g.dim
}

// NodeCount returns the number of committed nodes
func (g *CitationGraph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.norms)
}

// EdgeCount returns the number of committed edges
func (g *CitationGraph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.src)
}

// SeedNodeCount returns the number of nodes loaded from the dataset
func (g *CitationGraph) SeedNodeCount() int {
	return g.seedNodes
}

// AddedCount returns how many papers have been committed since the last reset
func (g *CitationGraph) AddedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.papers)
}

// Edge returns the i-th committed edge
func (g *CitationGraph) Edge(i int) (src, dst int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.src) {
		return 0, 0, false
	}
	return g.src[i], g.dst[i], true
}

// Row returns a copy of node i's feature row
func (g *CitationGraph) Row(i int) ([]float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.norms) {
		return nil, false
	}
	row := make([]float64, g.dim)
	copy(row, g.features[i*g.dim:(i+1)*g.dim])
	return row, true
}

// Papers returns the committed papers in insertion order
func (g *CitationGraph) Papers() []entities.Paper {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]entities.Paper, len(g.papers))
	for i, p := range g.papers {
		out[i] = *p
	}
	return out
}

// Limits returns the current growth limits
func (g *CitationGraph) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// SetLimits replaces the growth limits. It takes effect on the next Extend.
func (g *CitationGraph) SetLimits(limits Limits) error {
	if limits.MaxAddedNodes < 0 {
		return fmt.Errorf("max added nodes must not be negative, got %d", limits.MaxAddedNodes)
	}
	if !limits.Policy.Valid() {
		return fmt.Errorf("unknown overflow policy %q", limits.Policy)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
	return nil
}

// Extend attaches a paper with the given feature vector to its most similar
// existing node and runs infer on the staged graph. Features, edge and paper
// are committed together only when infer succeeds.
func (g *CitationGraph) Extend(ctx context.Context, paper *entities.Paper, vector []float64, infer InferFunc) (Attachment, error) {
	if paper == nil {
		return Attachment{}, errors.New("paper is required")
	}
	if len(vector) != g.dim {
		return Attachment{}, pkgerrors.NewInconsistencyError(
			pkgerrors.CodeFeatureDimMismatch,
			fmt.Sprintf("feature vector has %d dimensions, graph expects %d", len(vector), g.dim),
		)
	}
	if err := ctx.Err(); err != nil {
		return Attachment{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// A caller that gave up while queued must leave no trace.
	if err := ctx.Err(); err != nil {
		return Attachment{}, err
	}

	reset := false
	if g.limits.MaxAddedNodes > 0 && len(g.papers) >= g.limits.MaxAddedNodes {
		if g.limits.Policy == OverflowReject {
			return Attachment{}, pkgerrors.NewUnavailableError("citation graph").
				WithCode(pkgerrors.CodeGraphCapacity).
				WithDetails(map[string]interface{}{"max_added_nodes": g.limits.MaxAddedNodes})
		}
		reset = true
	}

	baseNodes, baseEdges := len(g.norms), len(g.src)
	baseFeatures, baseNorms := g.features, g.norms
	baseSrc, baseDst := g.src, g.dst
	if reset {
		// Full slice expressions force append to copy, so a failed infer
		// cannot clobber rows that are still committed.
		baseNodes, baseEdges = g.seedNodes, g.seedEdges
		baseFeatures = g.features[:baseNodes*g.dim : baseNodes*g.dim]
		baseNorms = g.norms[:baseNodes:baseNodes]
		baseSrc = g.src[:baseEdges:baseEdges]
		baseDst = g.dst[:baseEdges:baseEdges]
	}

	attachedTo, similarity := services.NearestByCosine(vector, baseFeatures, g.dim, baseNorms)
	if attachedTo < 0 {
		return Attachment{}, pkgerrors.NewInconsistencyError(
			pkgerrors.CodeNodeIndexOutOfRange,
			"graph has no node to attach to",
		)
	}

	newIndex := baseNodes
	staged := Snapshot{
		Features: append(baseFeatures, vector...),
		Nodes:    newIndex + 1,
		Dim:      g.dim,
		Src:      append(baseSrc, attachedTo),
		Dst:      append(baseDst, newIndex),
		NewIndex: newIndex,
	}

	if err := infer(ctx, staged); err != nil {
		return Attachment{}, err
	}

	var raised []events.DomainEvent
	if reset {
		raised = append(raised, events.NewGraphReset(g.id, len(g.papers), g.seedNodes, time.Now().UTC()))
		g.papers = nil
	}

	g.features = staged.Features
	g.src = staged.Src
	g.dst = staged.Dst
	g.norms = append(baseNorms, services.Norm(vector))

	paper.Place(newIndex, attachedTo, similarity)
	g.papers = append(g.papers, paper)

	return Attachment{
		NodeIndex:  newIndex,
		AttachedTo: attachedTo,
		Similarity: similarity,
		Reset:      reset,
		Events:     raised,
	}, nil
}
