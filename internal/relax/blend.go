package relax

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/hexgrid"
	"hexworld/internal/topology"
)

// Barycentric returns the weights of p with respect to triangle (a, b, c).
// The weights sum to one; they are all non-negative when p is inside.
func Barycentric(p, a, b, c mgl64.Vec2) (wa, wb, wc float64) {
	det := cross(b.Sub(a), c.Sub(a))
	if det == 0 {
		return 1, 0, 0
	}
	wa = cross(b.Sub(p), c.Sub(p)) / det
	wb = cross(c.Sub(p), a.Sub(p)) / det
	wc = 1 - wa - wb
	return wa, wb, wc
}

func cross(u, v mgl64.Vec2) float64 {
	return u.X()*v.Y() - u.Y()*v.X()
}

// UpdateChunkCells finalizes the cells of chunk. Each cell falls in the
// sector between two hexagon corners; its final position blends the chunk's
// own relaxation with the two corner clusters, weighted by its barycentric
// coordinates in (center, corner k, corner k+1). corners[k] must be the
// cluster of the chunk and its neighbors k-1 and k. Cells already finalized
// by a neighbor are left as they are.
func UpdateChunkCells(chunk *topology.Chunk, own *Cluster, corners [hexgrid.NumDirections]*Cluster) {
	for _, cell := range chunk.MeshCells {
		if cell.Finalized() {
			continue
		}
		k := hexgrid.SectorOf(cell.Origin.Sub(chunk.Center))
		next := k.Next()
		w0, w1, w2 := Barycentric(cell.Origin, chunk.Center, chunk.Corners[k], chunk.Corners[next])

		p0 := mustPosition(own, cell)
		p1 := mustPosition(corners[k], cell)
		p2 := mustPosition(corners[next], cell)
		cell.Finalize(p0.Mul(w0).Add(p1.Mul(w1)).Add(p2.Mul(w2)))
	}
}

func mustPosition(c *Cluster, cell *topology.Cell) mgl64.Vec2 {
	p, ok := c.Position(cell.Node)
	if !ok {
		panic(fmt.Sprintf("relax: cell %v is not part of the cluster", cell.Key))
	}
	return p
}
