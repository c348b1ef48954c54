package topology

import (
	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/hexgrid"
	"hexworld/internal/planar"
)

// HeightSource supplies quantized terrain heights. Implementations must be
// pure functions of position.
type HeightSource interface {
	HeightQuantized(pos mgl64.Vec2) float32
}

// Chunk is one hexagonal region of the cell lattice.
type Chunk struct {
	Coord   hexgrid.ChunkCoord
	ID      uint16
	Seed    uint64
	Shape   hexgrid.Shape
	Center  mgl64.Vec2
	Corners [hexgrid.NumDirections]mgl64.Vec2

	// Cells are the cells this chunk created.
	Cells []*Cell
	// Border walks the hexagon outline starting at corner 0. Entries on a
	// side shared with an older chunk belong to that chunk.
	Border []*Cell
	// MeshCells is every cell inside the hexagon, shared ones included.
	MeshCells []*Cell

	// Quads lists the world nodes of each quad face in walk order.
	Quads [][4]planar.NodeID
	// QuadIndices indexes MeshCells, two triangles per quad.
	QuadIndices []uint32

	// WaterCells are the lattice point cells, WaterIndices their triangles.
	WaterCells   []*Cell
	WaterIndices []uint32

	Terrain *Mesh
	Water   *Mesh
}

// BorderSide returns the E+1 border cells of side d, corner to corner.
func (c *Chunk) BorderSide(d hexgrid.Direction) []*Cell {
	idx := c.Shape.SideIndices(d)
	out := make([]*Cell, len(idx))
	for i, j := range idx {
		out[i] = c.Border[j]
	}
	return out
}

// Owns reports whether cell was created by this chunk.
func (c *Chunk) Owns(cell *Cell) bool {
	return cell.Chunk == c
}
