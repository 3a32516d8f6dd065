package filter

import (
	"bytes"
	"encoding/gob"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/dreamware/petals/internal/petalserr"
)

// KDTreeParams configures a kdtree build. Radius is the maximum Euclidean
// distance at which a probe point is considered "present".
//
// Per REDESIGN FLAG #2, Radius is a required construction parameter — the
// source hard-coded radius=0, which made KDTreeFilter never match anything;
// this port does not reproduce that defect.
type KDTreeParams struct {
	Radius float64
}

// KDTreeFilter summarizes a column of spatial points. Test(v) succeeds if
// some ingested point lies within Radius of v under Euclidean distance.
type KDTreeFilter struct {
	tree   *kdtree.Tree
	points kdtree.Points
	radius float64
}

func (f *KDTreeFilter) Kind() Kind { return KindKDTree }

// BuildKDTreeFromStream collects every point in the stream and bulk-loads
// a balanced kd-tree from them.
func BuildKDTreeFromStream(it ColumnChunkIterator, params KDTreeParams) (*KDTreeFilter, error) {
	var points kdtree.Points

	for {
		chunk, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		for _, v := range chunk {
			if v.Null {
				continue
			}
			if v.Type != TypePoint {
				return nil, unsupportedType(KindKDTree, v.Type)
			}
			coords := make(kdtree.Point, len(v.Point))
			copy(coords, v.Point)
			points = append(points, coords)
		}
	}

	if len(points) == 0 {
		return nil, emptyInput(KindKDTree)
	}

	tree := kdtree.New(points, true)
	return &KDTreeFilter{tree: tree, points: points, radius: params.Radius}, nil
}

func (f *KDTreeFilter) Update(chunk Chunk) error {
	for _, v := range chunk {
		if v.Null {
			continue
		}
		if v.Type != TypePoint {
			return unsupportedType(KindKDTree, v.Type)
		}
		coords := make(kdtree.Point, len(v.Point))
		copy(coords, v.Point)
		f.points = append(f.points, coords)
	}
	f.tree = kdtree.New(f.points, true)
	return nil
}

func (f *KDTreeFilter) Test(v Value) (bool, error) {
	if v.Type != TypePoint {
		return false, unsupportedType(KindKDTree, v.Type)
	}
	q := make(kdtree.Point, len(v.Point))
	copy(q, v.Point)

	keeper := kdtree.NewDistKeeper(f.radius * f.radius)
	f.tree.NearestSet(keeper, q)
	return keeper.Len() > 0, nil
}

type kdTreePayload struct {
	Points [][]float64
	Radius float64
}

func (f *KDTreeFilter) Serialize() ([]byte, error) {
	pts := make([][]float64, len(f.points))
	for i, p := range f.points {
		pts[i] = []float64(p)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(kdTreePayload{Points: pts, Radius: f.radius}); err != nil {
		return nil, err
	}
	return envelope(KindKDTree, buf.Bytes())
}

func deserializeKDTree(payload []byte) (Filter, error) {
	var p kdTreePayload
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, petalserr.Wrap(petalserr.KindFilterLoadFailed, "", err)
	}
	points := make(kdtree.Points, len(p.Points))
	for i, coords := range p.Points {
		points[i] = kdtree.Point(coords)
	}
	tree := kdtree.New(points, true)
	return &KDTreeFilter{tree: tree, points: points, radius: p.Radius}, nil
}
