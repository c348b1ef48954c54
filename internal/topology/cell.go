package topology

import (
	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/hexgrid"
	"hexworld/internal/planar"
)

// Cell binds one world graph node to the chunk that created it.
//
// Everything except the content payload is written by the generation
// goroutine before the owning chunk is published and is read-only afterwards.
type Cell struct {
	ID       uint16
	GlobalID uint32
	Node     planar.NodeID
	Key      hexgrid.Key
	Chunk    *Chunk

	// Origin is the unrelaxed lattice position, Position the final one.
	Origin   mgl64.Vec2
	Position mgl64.Vec2
	Height   float32

	neighbors []uint32
	content   any
	finalized bool
}

// CombineID packs a chunk id and a per-chunk cell id into a world-wide id.
func CombineID(chunk, cell uint16) uint32 {
	return uint32(chunk)<<16 | uint32(cell)
}

// SplitID reverses CombineID.
func SplitID(id uint32) (chunk, cell uint16) {
	return uint16(id >> 16), uint16(id)
}

// NeighborIDs lists the global ids of adjacent cells in counterclockwise
// order. Neighbors across the chunk border may belong to chunks that are
// still being built, so they are handed out as ids and not as cells.
func (c *Cell) NeighborIDs() []uint32 {
	return c.neighbors
}

func (c *Cell) Content() any {
	return c.content
}

// SetContent attaches gameplay state to the cell.
func (c *Cell) SetContent(v any) {
	c.content = v
}

// Finalized reports whether the cell position is final.
func (c *Cell) Finalized() bool {
	return c.finalized
}

// Finalize fixes the cell position. Later calls are ignored so that a cell
// shared with an already published chunk never moves.
func (c *Cell) Finalize(pos mgl64.Vec2) {
	if c.finalized {
		return
	}
	c.Position = pos
	c.finalized = true
}

// LinkNeighbors captures the world graph adjacency of every cell touched by
// chunk that has not been finalized yet. All neighbors of such cells must
// already exist in the world graph.
func LinkNeighbors(chunk *Chunk, world *planar.Graph) {
	for _, cell := range chunk.MeshCells {
		if cell.finalized {
			continue
		}
		ids := world.Neighbors(cell.Node)
		cell.neighbors = make([]uint32, 0, len(ids))
		for _, id := range ids {
			if n, ok := world.Ref(id).(*Cell); ok {
				cell.neighbors = append(cell.neighbors, n.GlobalID)
			}
		}
	}
}
