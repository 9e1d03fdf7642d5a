// Package spatialindex prunes candidate geometries by bounding box before
// exact predicates run. An Index is built once per snapshot and never mutated.
package spatialindex

import (
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	minChildren = 25
	maxChildren = 50

	// Degenerate boxes (points, meridian segments) get a tiny extent because
	// rtreego rejects zero-length sides.
	minExtent = 1e-9
)

// Entry is an identifier with the bounding box of its geometry.
type Entry struct {
	ID    string
	Bound orb.Bound
}

type item struct {
	id   string
	rect rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect { return it.rect }

type Index struct {
	tree *rtreego.Rtree
	size int
}

// Build bulk-loads entries into an R-tree.
func Build(entries []Entry) (*Index, error) {
	objs := make([]rtreego.Spatial, 0, len(entries))
	for _, e := range entries {
		rect, err := toRect(e.Bound)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", e.ID, err)
		}
		objs = append(objs, &item{id: e.ID, rect: rect})
	}
	return &Index{
		tree: rtreego.NewTree(2, minChildren, maxChildren, objs...),
		size: len(objs),
	}, nil
}

// Query returns the ids whose boxes intersect b, sorted. Hits are candidates
// only; callers confirm them with an exact predicate.
func (idx *Index) Query(b orb.Bound) []string {
	if idx == nil || idx.size == 0 {
		return nil
	}
	rect, err := toRect(b)
	if err != nil {
		return nil
	}
	hits := idx.tree.SearchIntersect(rect)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.(*item).id
	}
	sort.Strings(ids)
	return ids
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

func toRect(b orb.Bound) (rtreego.Rect, error) {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < 0 || h < 0 {
		return rtreego.Rect{}, fmt.Errorf("inverted bound %v", b)
	}
	return rtreego.NewRect(
		rtreego.Point{b.Min[0] - minExtent, b.Min[1] - minExtent},
		[]float64{w + 2*minExtent, h + 2*minExtent},
	)
}
