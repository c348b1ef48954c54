// Package relax smooths cell positions toward square quads. A Cluster
// relaxes the quads of one chunk or of three chunks around a shared corner.
package relax

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/planar"
	"hexworld/internal/topology"
)

// Cluster holds the relaxed positions of every node of its chunks. It reads
// the chunks' origins and quads but never writes to them, so clusters over
// overlapping chunks can relax concurrently.
type Cluster struct {
	Chunks []*topology.Chunk

	index        map[planar.NodeID]int
	nodes        []planar.NodeID
	pos          []mgl64.Vec2
	pinned       []bool
	faces        [][4]int
	halfDiagonal float64
}

// NewCluster seeds a cluster from the unrelaxed cell positions of chunks.
// A single chunk cluster pins its border; corner clusters pin nothing.
func NewCluster(cellSize float64, chunks ...*topology.Chunk) *Cluster {
	c := &Cluster{
		Chunks:       chunks,
		index:        make(map[planar.NodeID]int),
		halfDiagonal: math.Sqrt2 * cellSize / 2,
	}
	c.initializePositions()
	if len(chunks) == 1 {
		c.findBorder()
	}
	for _, chunk := range chunks {
		for _, q := range chunk.Quads {
			var f [4]int
			for i, n := range q {
				f[i] = c.index[n]
			}
			c.faces = append(c.faces, f)
		}
	}
	return c
}

func (c *Cluster) initializePositions() {
	for _, chunk := range c.Chunks {
		for _, cell := range chunk.MeshCells {
			if _, ok := c.index[cell.Node]; ok {
				continue
			}
			c.index[cell.Node] = len(c.nodes)
			c.nodes = append(c.nodes, cell.Node)
			c.pos = append(c.pos, cell.Origin)
		}
	}
	c.pinned = make([]bool, len(c.nodes))
}

func (c *Cluster) findBorder() {
	count := make([]int, len(c.nodes))
	for _, chunk := range c.Chunks {
		for _, cell := range chunk.Border {
			count[c.index[cell.Node]]++
		}
	}
	for i, n := range count {
		c.pinned[i] = n == 1
	}
}

// Len is the number of nodes in the cluster.
func (c *Cluster) Len() int {
	return len(c.nodes)
}

// Position returns the relaxed position of node.
func (c *Cluster) Position(node planar.NodeID) (mgl64.Vec2, bool) {
	i, ok := c.index[node]
	if !ok {
		return mgl64.Vec2{}, false
	}
	return c.pos[i], true
}

func (c *Cluster) Pinned(node planar.NodeID) bool {
	i, ok := c.index[node]
	return ok && c.pinned[i]
}

// Relax runs a fixed number of iterations. Each iteration averages the
// forces of every face incident to a node and moves free nodes by step
// times that average.
func (c *Cluster) Relax(iterations int, step float64) {
	sum := make([]mgl64.Vec2, len(c.nodes))
	count := make([]int, len(c.nodes))
	for it := 0; it < iterations; it++ {
		for i := range sum {
			sum[i] = mgl64.Vec2{}
			count[i] = 0
		}
		for _, f := range c.faces {
			corners := [4]mgl64.Vec2{c.pos[f[0]], c.pos[f[1]], c.pos[f[2]], c.pos[f[3]]}
			force := CalculateRelaxationForce(corners, c.halfDiagonal)
			for i, n := range f {
				sum[n] = sum[n].Add(force[i])
				count[n]++
			}
		}
		for i := range c.pos {
			if c.pinned[i] || count[i] == 0 {
				continue
			}
			c.pos[i] = c.pos[i].Add(sum[i].Mul(step / float64(count[i])))
		}
	}
}

// CalculateRelaxationForce returns, for each corner of a quad, the offset
// that would move it onto a square with the given half diagonal sharing the
// quad's centroid and average orientation.
func CalculateRelaxationForce(corners [4]mgl64.Vec2, halfDiagonal float64) [4]mgl64.Vec2 {
	var centroid mgl64.Vec2
	for _, p := range corners {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(0.25)

	// Walking clockwise, corner i+1 lies a quarter turn clockwise of corner
	// i, so it is turned counterclockwise to line up with corner 0.
	sense := 1
	if signedArea(corners) > 0 {
		sense = -1
	}

	var offsets [4]mgl64.Vec2
	var mean mgl64.Vec2
	for i, p := range corners {
		offsets[i] = p.Sub(centroid)
		mean = mean.Add(quarterTurn(offsets[i], sense*i))
	}
	mean = mean.Mul(0.25)

	var force [4]mgl64.Vec2
	length := mean.Len()
	if length == 0 {
		return force
	}
	target := mean.Mul(halfDiagonal / length)
	for i := range corners {
		force[i] = quarterTurn(target, -sense*i).Sub(offsets[i])
	}
	return force
}

// quarterTurn rotates v by n quarter turns counterclockwise.
func quarterTurn(v mgl64.Vec2, n int) mgl64.Vec2 {
	switch ((n % 4) + 4) % 4 {
	case 1:
		return mgl64.Vec2{-v.Y(), v.X()}
	case 2:
		return mgl64.Vec2{-v.X(), -v.Y()}
	case 3:
		return mgl64.Vec2{v.Y(), -v.X()}
	default:
		return v
	}
}

func signedArea(p [4]mgl64.Vec2) float64 {
	area := 0.0
	for i := range p {
		a, b := p[i], p[(i+1)%4]
		area += a.X()*b.Y() - b.X()*a.Y()
	}
	return area / 2
}
