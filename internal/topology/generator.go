// Package topology turns the hexagonal lattice of a chunk into an irregular
// all-quad tiling and merges it into the shared world graph.
package topology

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"hexworld/internal/hexgrid"
	"hexworld/internal/planar"
)

// Generator builds chunk topologies. It is deterministic in (seed, coord)
// and keeps no state between calls, but Generate mutates the world graph
// and must not run concurrently with itself.
type Generator struct {
	seed    uint64
	shape   hexgrid.Shape
	layout  hexgrid.Layout
	heights HeightSource
}

// NewGenerator returns a generator for chunks whose sides are chunkSize
// lattice steps long and whose final quads have sides of about cellSize.
func NewGenerator(seed uint64, chunkSize int, cellSize float64, heights HeightSource) *Generator {
	return &Generator{
		seed:    seed,
		shape:   hexgrid.Shape{Size: chunkSize},
		layout:  hexgrid.Layout{Spacing: 2 * cellSize},
		heights: heights,
	}
}

func (g *Generator) Shape() hexgrid.Shape {
	return g.shape
}

func (g *Generator) Layout() hexgrid.Layout {
	return g.layout
}

// ChunkSeed derives the shuffle seed of a chunk from its center.
func (g *Generator) ChunkSeed(coord hexgrid.ChunkCoord) uint64 {
	center := g.shape.Center(coord)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(int64(center.Q)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(center.S)))
	h := fnv.New64a()
	h.Write(buf[:])
	return g.seed ^ h.Sum64()
}

// local is the throwaway graph of one chunk.
type local struct {
	graph   *planar.Graph
	lattice []planar.NodeID // phase 1 points, row-major
	water   [][3]int        // lattice triangles, indices into lattice
	border  []planar.NodeID // indexed like Chunk.Border
	quads   []planar.Face
}

// Generate builds the chunk at coord, stitches it to the chunks in
// neighbors (indexed by direction, nil when absent) and adds its nodes and
// edges to world. The returned chunk has unrelaxed positions.
func (g *Generator) Generate(coord hexgrid.ChunkCoord, id uint16, world *planar.Graph, neighbors [hexgrid.NumDirections]*Chunk) (*Chunk, error) {
	loc := g.buildLocal(coord)

	chunk := &Chunk{
		Coord:  coord,
		ID:     id,
		Seed:   g.ChunkSeed(coord),
		Shape:  g.shape,
		Center: g.layout.Position(g.shape.Center(coord)),
	}
	for k := hexgrid.Direction(0); k < hexgrid.NumDirections; k++ {
		chunk.Corners[k] = g.layout.Position(g.shape.Corner(coord, k))
	}

	cellFor, copied := g.stitch(coord, loc, neighbors)

	fresh := 0
	for _, n := range loc.graph.Nodes() {
		if cellFor[n] == nil {
			fresh++
		}
	}
	if fresh > math.MaxUint16+1 {
		return nil, fmt.Errorf("chunk %v: %d cells exceed the 16-bit cell id space", coord, fresh)
	}

	chunk.Cells = make([]*Cell, 0, fresh)
	chunk.MeshCells = make([]*Cell, 0, loc.graph.NodeCount())
	meshIndex := make([]uint32, loc.graph.NodeCap())
	for _, n := range loc.graph.Nodes() {
		cell := cellFor[n]
		if cell == nil {
			key := loc.graph.Key(n)
			pos := loc.graph.Pos(n)
			cellID := uint16(len(chunk.Cells))
			cell = &Cell{
				ID:       cellID,
				GlobalID: CombineID(id, cellID),
				Node:     world.InsertNode(key, pos),
				Key:      key,
				Chunk:    chunk,
				Origin:   pos,
				Position: pos,
				Height:   g.heights.HeightQuantized(pos),
			}
			world.SetRef(cell.Node, cell)
			chunk.Cells = append(chunk.Cells, cell)
			cellFor[n] = cell
		}
		meshIndex[n] = uint32(len(chunk.MeshCells))
		chunk.MeshCells = append(chunk.MeshCells, cell)
	}

	for _, e := range loc.graph.Edges() {
		if copied[e] {
			continue
		}
		ed := loc.graph.Edge(e)
		a, b := cellFor[ed.From].Node, cellFor[ed.To].Node
		if world.FindEdge(a, b) != planar.NoEdge {
			panic(fmt.Sprintf("topology: chunk %v edge %v-%v already in world graph", coord, loc.graph.Key(ed.From), loc.graph.Key(ed.To)))
		}
		world.AddEdge(a, b)
	}

	chunk.Border = make([]*Cell, len(loc.border))
	for i, n := range loc.border {
		chunk.Border[i] = cellFor[n]
	}

	chunk.Quads = make([][4]planar.NodeID, 0, len(loc.quads))
	chunk.QuadIndices = make([]uint32, 0, 6*len(loc.quads))
	for _, f := range loc.quads {
		var q [4]planar.NodeID
		var m [4]uint32
		for i, n := range f.Nodes {
			q[i] = cellFor[n].Node
			m[i] = meshIndex[n]
		}
		chunk.Quads = append(chunk.Quads, q)
		chunk.QuadIndices = append(chunk.QuadIndices, m[0], m[1], m[2], m[0], m[2], m[3])
	}

	chunk.WaterCells = make([]*Cell, len(loc.lattice))
	for i, n := range loc.lattice {
		chunk.WaterCells[i] = cellFor[n]
	}
	chunk.WaterIndices = make([]uint32, 0, 3*len(loc.water))
	for _, t := range loc.water {
		chunk.WaterIndices = append(chunk.WaterIndices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}

	return chunk, nil
}

// buildLocal runs phases one to four and returns the chunk-local graph.
func (g *Generator) buildLocal(coord hexgrid.ChunkCoord) *local {
	loc := &local{graph: planar.New()}
	rows := g.layLattice(coord, loc)
	g.triangulate(loc, rows)
	removeEdges(loc.graph, g.ChunkSeed(coord))
	g.subdivide(loc.graph)
	g.collectFaces(coord, loc)
	return loc
}

// latticeRows addresses the hexagonal point set row by row. start holds the
// prefix sums of the row lengths.
type latticeRows struct {
	n     int
	start []int
}

func rowBounds(n, r int) (int, int) {
	return max(-n, -n-r), min(n, n-r)
}

func (l latticeRows) index(q, r int) int {
	lo, _ := rowBounds(l.n, r)
	return l.start[r+l.n] + q - lo
}

// layLattice inserts the 2N+1 rows of lattice points.
func (g *Generator) layLattice(coord hexgrid.ChunkCoord, loc *local) latticeRows {
	n := g.shape.Size
	cq, cs := g.shape.CenterLattice(coord)
	rows := latticeRows{n: n, start: make([]int, 2*n+2)}
	loc.lattice = make([]planar.NodeID, 0, g.shape.LatticePoints())
	for r := -n; r <= n; r++ {
		lo, hi := rowBounds(n, r)
		rows.start[r+n+1] = rows.start[r+n] + hi - lo + 1
		for q := lo; q <= hi; q++ {
			key := hexgrid.LatticeKey(cq+q, cs+r)
			loc.lattice = append(loc.lattice, loc.graph.InsertNode(key, g.layout.Position(key)))
		}
	}
	return rows
}

// triangulate connects every lattice point to its neighbors along a, b and
// b-a, and records the lattice triangles for the water surface.
func (g *Generator) triangulate(loc *local, rows latticeRows) {
	n := g.shape.Size
	inside := g.shape.ContainsLattice
	for r := -n; r <= n; r++ {
		lo, hi := rowBounds(n, r)
		for q := lo; q <= hi; q++ {
			p := rows.index(q, r)
			for _, step := range [3][2]int{{1, 0}, {0, 1}, {-1, 1}} {
				if inside(q+step[0], r+step[1]) {
					loc.graph.AddEdge(loc.lattice[p], loc.lattice[rows.index(q+step[0], r+step[1])])
				}
			}
			if inside(q+1, r) && inside(q, r+1) {
				loc.water = append(loc.water, [3]int{p, rows.index(q+1, r), rows.index(q, r+1)})
			}
			if inside(q, r+1) && inside(q-1, r+1) {
				loc.water = append(loc.water, [3]int{p, rows.index(q, r+1), rows.index(q-1, r+1)})
			}
		}
	}
}

// removeEdges deletes, in shuffled order, every edge that still separates
// two triangles. Each test sees the deletions made before it.
func removeEdges(graph *planar.Graph, seed uint64) {
	edges := graph.Edges()
	rng := rand.New(rand.NewSource(int64(seed)))
	rng.Shuffle(len(edges), func(i, j int) {
		edges[i], edges[j] = edges[j], edges[i]
	})
	for _, e := range edges {
		twin := graph.Edge(e).Twin
		if graph.FaceSize(e, 3) == 3 && graph.FaceSize(twin, 3) == 3 {
			graph.RemoveEdge(e)
		}
	}
}

// subdivide splits every edge at its midpoint, then connects the centroid of
// each resulting hexagon or octagon to the face's original corners, so that
// every corner, midpoint, corner run becomes one quad around the centroid.
func (g *Generator) subdivide(graph *planar.Graph) {
	midpoint := make(map[planar.NodeID]bool)
	for _, e := range graph.Edges() {
		ed := graph.Edge(e)
		key := hexgrid.Midpoint(graph.Key(ed.From), graph.Key(ed.To))
		m := graph.InsertNode(key, g.layout.Position(key))
		graph.RemoveEdge(e)
		graph.AddEdge(ed.From, m)
		graph.AddEdge(m, ed.To)
		midpoint[m] = true
	}

	for _, f := range graph.CalculateFaces() {
		if f.Len() != 6 && f.Len() != 8 {
			continue
		}
		keys := make([]hexgrid.Key, f.Len())
		for i, n := range f.Nodes {
			keys[i] = graph.Key(n)
		}
		key := hexgrid.Centroid(keys...)
		c := graph.InsertNode(key, g.layout.Position(key))
		for _, n := range f.Nodes {
			if !midpoint[n] {
				graph.AddEdge(c, n)
			}
		}
	}
}

// collectFaces checks that every face is a quad except the outline and
// resolves the border list.
func (g *Generator) collectFaces(coord hexgrid.ChunkCoord, loc *local) {
	outline := g.shape.BorderLength()
	outer := 0
	for _, f := range loc.graph.CalculateFaces() {
		switch {
		case f.Len() == 4:
			// Corners sit opposite each other. Start at an inserted node so
			// the triangle split runs from centroid to midpoint and never
			// along the straight corner, midpoint, corner run.
			if k := loc.graph.Key(f.Nodes[0]); k.Q%hexgrid.Scale == 0 && k.S%hexgrid.Scale == 0 {
				f.Nodes = append(f.Nodes[1:4:4], f.Nodes[0])
				f.Edges = append(f.Edges[1:4:4], f.Edges[0])
			}
			loc.quads = append(loc.quads, f)
		case f.Len() == outline && outer == 0:
			outer++
		default:
			panic(fmt.Sprintf("topology: chunk %v has a face of %d nodes", coord, f.Len()))
		}
	}
	if outer != 1 {
		panic(fmt.Sprintf("topology: chunk %v has no outline face", coord))
	}

	loc.border = make([]planar.NodeID, outline)
	for i := range loc.border {
		key := g.shape.BorderKey(coord, i)
		n, ok := loc.graph.Lookup(key)
		if !ok {
			panic(fmt.Sprintf("topology: chunk %v border key %v missing", coord, key))
		}
		loc.border[i] = n
	}
}

// stitch maps the local nodes on sides shared with existing neighbors to the
// neighbors' cells and marks the local edges along those sides as already
// present in the world graph.
func (g *Generator) stitch(coord hexgrid.ChunkCoord, loc *local, neighbors [hexgrid.NumDirections]*Chunk) ([]*Cell, []bool) {
	cellFor := make([]*Cell, loc.graph.NodeCap())
	copied := make([]bool, loc.graph.EdgeCap())
	for d := hexgrid.Direction(0); d < hexgrid.NumDirections; d++ {
		nb := neighbors[d]
		if nb == nil {
			continue
		}
		side := g.shape.SideIndices(d)
		for i, idx := range side {
			n := loc.border[idx]
			cell := nb.Border[g.shape.NeighborSideIndex(d, i)]
			if cell.Key != loc.graph.Key(n) {
				panic(fmt.Sprintf("topology: chunk %v side %d index %d: neighbor cell %v does not match %v", coord, d, idx, cell.Key, loc.graph.Key(n)))
			}
			if prev := cellFor[n]; prev != nil && prev != cell {
				panic(fmt.Sprintf("topology: chunk %v corner %v resolves to two cells", coord, cell.Key))
			}
			cellFor[n] = cell
		}
		for i := 0; i+1 < len(side); i++ {
			e := loc.graph.FindEdge(loc.border[side[i]], loc.border[side[i+1]])
			if e == planar.NoEdge {
				panic(fmt.Sprintf("topology: chunk %v side %d is not connected at index %d", coord, d, side[i]))
			}
			copied[e] = true
			copied[loc.graph.Edge(e).Twin] = true
		}
	}
	return cellFor, copied
}
