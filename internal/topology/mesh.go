package topology

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a render-ready indexed triangle list. The plane of the chunk is
// mapped to X/Z with height on Y.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// Triangles returns the number of triangles in the mesh.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// BuildMeshes fills Terrain from the finalized cell positions and Water from
// the lattice points at waterLevel.
func (c *Chunk) BuildMeshes(waterLevel float32) {
	c.Terrain = c.buildMesh(c.MeshCells, c.QuadIndices, func(cell *Cell) float32 { return cell.Height })
	c.Water = c.buildMesh(c.WaterCells, c.WaterIndices, func(*Cell) float32 { return waterLevel })
}

func (c *Chunk) buildMesh(cells []*Cell, indices []uint32, height func(*Cell) float32) *Mesh {
	m := &Mesh{
		Positions: make([]mgl32.Vec3, len(cells)),
		Normals:   make([]mgl32.Vec3, len(cells)),
		UVs:       make([]mgl32.Vec2, len(cells)),
		Indices:   append([]uint32(nil), indices...),
	}

	// UVs span the bounding square of the hexagon.
	extent := c.Corners[0].Sub(c.Center).Len() * 2
	for i, cell := range cells {
		p := cell.Position
		m.Positions[i] = mgl32.Vec3{float32(p.X()), height(cell), float32(p.Y())}
		uv := p.Sub(c.Center).Mul(1 / extent).Add(mgl64.Vec2{0.5, 0.5})
		m.UVs[i] = mgl32.Vec2{float32(uv.X()), float32(uv.Y())}
	}

	for t := 0; t+2 < len(indices); t += 3 {
		a, b, cc := indices[t], indices[t+1], indices[t+2]
		n := m.Positions[b].Sub(m.Positions[a]).Cross(m.Positions[cc].Sub(m.Positions[a]))
		if n.Y() < 0 {
			n = n.Mul(-1)
		}
		m.Normals[a] = m.Normals[a].Add(n)
		m.Normals[b] = m.Normals[b].Add(n)
		m.Normals[cc] = m.Normals[cc].Add(n)
	}
	for i, n := range m.Normals {
		if n.Len() == 0 {
			m.Normals[i] = mgl32.Vec3{0, 1, 0}
			continue
		}
		m.Normals[i] = n.Normalize()
	}
	return m
}
