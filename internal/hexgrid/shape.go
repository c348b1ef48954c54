package hexgrid

// Shape describes a hexagonal chunk whose sides are Size lattice steps long.
type Shape struct {
	Size int
}

// EdgeLength is the number of border segments per side once every lattice
// edge has been split at its midpoint.
func (s Shape) EdgeLength() int {
	return 2 * s.Size
}

// BorderLength is the number of cells on the border of a chunk.
func (s Shape) BorderLength() int {
	return NumDirections * s.EdgeLength()
}

// LatticePoints is the number of lattice points inside a chunk hexagon.
func (s Shape) LatticePoints() int {
	n := s.Size
	return 3*n*n + 3*n + 1
}

// CenterLattice returns the lattice coordinates of a chunk center.
func (s Shape) CenterLattice(c ChunkCoord) (int, int) {
	n := s.Size
	return n * (c.Col - c.Row), n * (c.Col + 2*c.Row)
}

func (s Shape) Center(c ChunkCoord) Key {
	return LatticeKey(s.CenterLattice(c))
}

// Corner returns the key of corner k of chunk c.
func (s Shape) Corner(c ChunkCoord, k Direction) Key {
	dq, ds := k.Offset()
	return s.Center(c).Add(LatticeKey(dq, ds).Mul(s.Size))
}

// BorderKey returns the key of border cell index of chunk c. Index d*E is
// corner d; indices d*E+1 .. d*E+E-1 walk side d towards corner d+1.
func (s Shape) BorderKey(c ChunkCoord, index int) Key {
	e := s.EdgeLength()
	index = s.wrap(index)
	d := Direction(index / e)
	i := index % e
	start := s.Corner(c, d)
	end := s.Corner(c, d.Next())
	diff := end.Sub(start)
	step := Key{Q: diff.Q / e, S: diff.S / e}
	return start.Add(step.Mul(i))
}

// NeighborSideIndex maps position i (0..E) along side d of a chunk to the
// border index of the same cell in the neighbor across side d. A flat border
// index is not enough: index (d+1)*E ends side d and starts side d+1.
func (s Shape) NeighborSideIndex(d Direction, i int) int {
	e := s.EdgeLength()
	return s.wrap(int(d.Opposite())*e + e - i)
}

// SideIndices returns the E+1 border indices of side d, corner to corner.
func (s Shape) SideIndices(d Direction) []int {
	e := s.EdgeLength()
	out := make([]int, e+1)
	for i := range out {
		out[i] = s.wrap(int(d.normalize())*e + i)
	}
	return out
}

func (s Shape) wrap(index int) int {
	n := s.BorderLength()
	return ((index % n) + n) % n
}

// ContainsLattice reports whether lattice offset (q, s) from the chunk center
// lies inside the hexagon.
func (s Shape) ContainsLattice(q, r int) bool {
	n := s.Size
	return abs(q) <= n && abs(r) <= n && abs(q+r) <= n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
