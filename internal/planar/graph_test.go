package planar

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/hexgrid"
)

func addPoint(g *Graph, x, y int) NodeID {
	return g.AddNode(hexgrid.Key{Q: x, S: y}, mgl64.Vec2{float64(x), float64(y)})
}

// grid builds a (w+1)x(h+1) lattice of unit squares.
func grid(w, h int) (*Graph, [][]NodeID) {
	g := New()
	ids := make([][]NodeID, w+1)
	for x := 0; x <= w; x++ {
		ids[x] = make([]NodeID, h+1)
		for y := 0; y <= h; y++ {
			ids[x][y] = addPoint(g, x, y)
		}
	}
	for x := 0; x <= w; x++ {
		for y := 0; y <= h; y++ {
			if x < w {
				g.AddEdge(ids[x][y], ids[x+1][y])
			}
			if y < h {
				g.AddEdge(ids[x][y], ids[x][y+1])
			}
		}
	}
	return g, ids
}

func faceSizes(faces []Face) map[int]int {
	out := make(map[int]int)
	for _, f := range faces {
		out[f.Len()]++
	}
	return out
}

func TestRadialCycleIsSortedByAngle(t *testing.T) {
	g := New()
	center := addPoint(g, 0, 0)
	east := addPoint(g, 1, 0)
	west := addPoint(g, -1, 0)
	south := addPoint(g, 0, -1)
	north := addPoint(g, 0, 1)
	northEast := addPoint(g, 1, 1)

	for _, n := range []NodeID{east, west, south, north, northEast} {
		g.AddEdge(center, n)
	}

	got := g.Neighbors(center)
	want := []NodeID{east, northEast, north, west, south}
	if len(got) != len(want) {
		t.Fatalf("expected %d neighbors, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("neighbor %d = %d, want %d (order %v)", i, got[i], want[i], got)
		}
	}

	for _, e := range g.Outgoing(center) {
		ed := g.Edge(e)
		if g.Edge(ed.CCW).CW != e || g.Edge(ed.CW).CCW != e {
			t.Fatalf("edge %d radial links are not mutual", e)
		}
		twin := g.Edge(ed.Twin)
		if twin.Twin != e || twin.From != ed.To || twin.To != ed.From {
			t.Fatalf("edge %d mirror is inconsistent", e)
		}
	}
}

func TestCalculateFacesOnGrid(t *testing.T) {
	g, _ := grid(2, 2)
	faces := g.CalculateFaces()
	sizes := faceSizes(faces)
	if sizes[4] != 4 || sizes[8] != 1 || len(faces) != 5 {
		t.Fatalf("unexpected face sizes %v", sizes)
	}
	if v, e, f := g.NodeCount(), g.EdgeCount(), len(faces); v-e+f != 2 {
		t.Fatalf("euler characteristic %d-%d+%d != 2", v, e, f)
	}
}

func TestBoundedFacesWalkClockwise(t *testing.T) {
	g, _ := grid(1, 1)
	faces := g.CalculateFaces()
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	clockwise := 0
	for _, f := range faces {
		area := 0.0
		for i, id := range f.Nodes {
			a := g.Pos(id)
			b := g.Pos(f.Nodes[(i+1)%len(f.Nodes)])
			area += a.X()*b.Y() - b.X()*a.Y()
		}
		if area < 0 {
			clockwise++
		}
	}
	if clockwise != 1 {
		t.Fatalf("expected exactly one clockwise face, got %d", clockwise)
	}
}

func TestRemoveEdgeMergesFaces(t *testing.T) {
	g, ids := grid(2, 2)
	e := g.FindEdge(ids[1][1], ids[1][2])
	if e == NoEdge {
		t.Fatalf("expected edge between center and top middle")
	}
	twin := g.Edge(e).Twin
	g.RemoveEdge(e)

	if g.EdgeAlive(e) || g.EdgeAlive(twin) {
		t.Fatalf("expected both halves to be deleted")
	}
	if g.FindEdge(ids[1][2], ids[1][1]) != NoEdge {
		t.Fatalf("mirror still reachable through the destination map")
	}
	sizes := faceSizes(g.CalculateFaces())
	if sizes[4] != 2 || sizes[6] != 1 || sizes[8] != 1 {
		t.Fatalf("unexpected face sizes after removal %v", sizes)
	}
	if g.Degree(ids[1][1]) != 3 {
		t.Fatalf("expected center degree 3, got %d", g.Degree(ids[1][1]))
	}
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	g, ids := grid(2, 2)
	center := ids[1][1]
	key := g.Key(center)
	g.RemoveNode(center)

	if g.NodeAlive(center) {
		t.Fatalf("node still alive")
	}
	if _, ok := g.Lookup(key); ok {
		t.Fatalf("key still registered")
	}
	if g.EdgeCount() != 8 {
		t.Fatalf("expected 8 edges, got %d", g.EdgeCount())
	}
	for _, n := range []NodeID{ids[0][1], ids[1][0], ids[2][1], ids[1][2]} {
		if g.Degree(n) != 2 {
			t.Fatalf("node %d degree %d, want 2", n, g.Degree(n))
		}
	}
	faces := g.CalculateFaces()
	if v, e, f := g.NodeCount(), g.EdgeCount(), len(faces); v-e+f != 2 {
		t.Fatalf("euler characteristic %d-%d+%d != 2", v, e, f)
	}
}

func TestFaceSizeStopsAtLimit(t *testing.T) {
	g, ids := grid(3, 1)
	e := g.FindEdge(ids[0][0], ids[1][0])
	twin := g.Edge(e).Twin

	full := []int{g.FaceSize(e, 20), g.FaceSize(twin, 20)}
	if !(full[0] == 4 && full[1] == 8) && !(full[0] == 8 && full[1] == 4) {
		t.Fatalf("expected one square and the 8-node outer face, got %v", full)
	}
	for _, half := range []EdgeID{e, twin} {
		if got := g.FaceSize(half, 3); got != 4 {
			t.Fatalf("expected limited size 4, got %d", got)
		}
	}
}

func TestNodeIdentityByKey(t *testing.T) {
	g := New()
	a := addPoint(g, 0, 0)
	if b := addPoint(g, 0, 0); a != b {
		t.Fatalf("AddNode created a duplicate node for the same key")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected InsertNode to panic on an occupied key")
		}
	}()
	g.InsertNode(hexgrid.Key{}, mgl64.Vec2{})
}

func TestDeadHandlePanics(t *testing.T) {
	g, ids := grid(1, 1)
	e := g.FindEdge(ids[0][0], ids[1][0])
	g.RemoveEdge(e)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when walking a deleted edge")
		}
	}()
	g.CalculateFace(e)
}
