// Package dataset loads the Cora citation network from its raw tab-separated
// distribution.
package dataset

import (
	"bufio"
	"cmp"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Quan024/Phan-loai-bao/domain/core/valueobjects"

	"gonum.org/v1/gonum/floats"
)

// maxLineBytes fits a cora.content row of 1433 binary features with room to spare.
const maxLineBytes = 1 << 20

// Options selects the dataset files and how they are interpreted
type Options struct {
	ContentPath       string
	CitesPath         string
	Classes           valueobjects.ClassTable
	NormalizeFeatures bool
}

// Dataset is the loaded graph. Features is row-major, NumNodes x NumFeatures.
type Dataset struct {
	PaperIDs    []string
	Features    []float64
	NumNodes    int
	NumFeatures int
	Labels      []int
	NumClasses  int

	// Undirected edges, both directions present, sorted by (Src, Dst).
	Src []int
	Dst []int

	// Citations naming a paper absent from the content file.
	SkippedCitations int
}

// LoadCora reads cora.content and cora.cites
func LoadCora(ctx context.Context, opts Options) (*Dataset, error) {
	if opts.Classes.Len() == 0 {
		opts.Classes = valueobjects.DefaultClassTable()
	}

	ds := &Dataset{NumClasses: opts.Classes.Len()}
	index := make(map[string]int)

	err := readLines(ctx, opts.ContentPath, func(lineNo int, line string) error {
		return ds.addPaper(lineNo, line, opts.Classes, index)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", opts.ContentPath, err)
	}
	if ds.NumNodes == 0 {
		return nil, fmt.Errorf("content file %s has no papers", opts.ContentPath)
	}

	edges := make(map[[2]int]struct{})
	err = readLines(ctx, opts.CitesPath, func(lineNo int, line string) error {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(fields))
		}
		cited, ok1 := index[fields[0]]
		citing, ok2 := index[fields[1]]
		if !ok1 || !ok2 {
			ds.SkippedCitations++
			return nil
		}
		if cited == citing {
			return nil
		}
		edges[[2]int{cited, citing}] = struct{}{}
		edges[[2]int{citing, cited}] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load citations %s: %w", opts.CitesPath, err)
	}

	ds.setEdges(edges)
	if opts.NormalizeFeatures {
		ds.normalizeRows()
	}
	return ds, nil
}

func (ds *Dataset) addPaper(lineNo int, line string, classes valueobjects.ClassTable, index map[string]int) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return fmt.Errorf("line %d: expected id, features and label, got %d fields", lineNo, len(fields))
	}

	id, label := fields[0], fields[len(fields)-1]
	raw := fields[1 : len(fields)-1]
	if ds.NumFeatures == 0 {
		ds.NumFeatures = len(raw)
	} else if len(raw) != ds.NumFeatures {
		return fmt.Errorf("line %d: paper %s has %d features, expected %d", lineNo, id, len(raw), ds.NumFeatures)
	}
	if _, dup := index[id]; dup {
		return fmt.Errorf("line %d: duplicate paper id %s", lineNo, id)
	}

	class, ok := classes.Lookup(label)
	if !ok {
		return fmt.Errorf("line %d: unknown label %q", lineNo, label)
	}

	for _, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("line %d: feature %q: %w", lineNo, s, err)
		}
		ds.Features = append(ds.Features, v)
	}

	index[id] = ds.NumNodes
	ds.PaperIDs = append(ds.PaperIDs, id)
	ds.Labels = append(ds.Labels, class)
	ds.NumNodes++
	return nil
}

func (ds *Dataset) setEdges(edges map[[2]int]struct{}) {
	pairs := make([][2]int, 0, len(edges))
	for e := range edges {
		pairs = append(pairs, e)
	}
	slices.SortFunc(pairs, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})

	ds.Src = make([]int, len(pairs))
	ds.Dst = make([]int, len(pairs))
	for i, p := range pairs {
		ds.Src[i], ds.Dst[i] = p[0], p[1]
	}
}

// normalizeRows scales each feature row to sum to one. Empty rows stay zero.
func (ds *Dataset) normalizeRows() {
	for i := 0; i < ds.NumNodes; i++ {
		row := ds.Features[i*ds.NumFeatures : (i+1)*ds.NumFeatures]
		if sum := floats.Sum(row); sum != 0 {
			floats.Scale(1/sum, row)
		}
	}
}

// readLines calls fn for every non-blank line of path, gunzipping when the
// name ends in ".gz".
func readLines(ctx context.Context, path string, fn func(lineNo int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
