package geospatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// searchSlack pads index queries against rounding at the circle's edge.
const searchSlack = 1.05

// Index is an R-tree over an ordered list of points. It only narrows the
// set of candidates; callers still compute exact distances.
type Index struct {
	tree *rtreego.Rtree
	size int
}

type indexed struct {
	pos  int
	rect rtreego.Rect
}

func (e indexed) Bounds() rtreego.Rect { return e.rect }

// NewIndex indexes points by their position in the slice. Non-finite points
// are left out since they can never be within any radius.
func NewIndex(points []domain.GeoPoint) *Index {
	objs := make([]rtreego.Spatial, 0, len(points))
	for i, p := range points {
		if !p.IsFinite() {
			continue
		}
		objs = append(objs, indexed{pos: i, rect: rtreego.Point{p.Lat, p.Lon}.ToRect(1e-9)})
	}
	return &Index{
		tree: rtreego.NewTree(2, 25, 50, objs...),
		size: len(points),
	}
}

// Len returns the number of positions the index was built over.
func (ix *Index) Len() int { return ix.size }

// Candidates returns, in ascending order, the positions of points that may
// lie within radiusKm of p.
func (ix *Index) Candidates(p domain.GeoPoint, radiusKm float64) []int {
	if !p.IsFinite() || radiusKm <= 0 {
		return nil
	}

	b := BoundsAround(p, radiusKm*searchSlack)
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.MinLat, b.MinLon},
		rtreego.Point{b.MaxLat, b.MaxLon},
	)
	if err != nil {
		return nil
	}

	hits := ix.tree.SearchIntersect(rect)
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(indexed).pos)
	}
	sort.Ints(out)
	return out
}

// ZonePoints extracts the representative points of zones, preserving order.
func ZonePoints(zones []domain.AlertZone) []domain.GeoPoint {
	pts := make([]domain.GeoPoint, len(zones))
	for i, z := range zones {
		pts[i] = z.Point
	}
	return pts
}
