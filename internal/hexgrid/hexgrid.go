// Package hexgrid addresses the hexagonal chunk lattice: chunk coordinates,
// the six neighbor directions, exact lattice keys and chunk border layout.
package hexgrid

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Scale is the fixed-point factor applied to lattice coordinates. It is the
// smallest value for which lattice points, edge midpoints, triangle centroids
// and quad centroids all land on integers.
const Scale = 12

// Key is an exact lattice position in units of 1/Scale lattice steps along
// the basis a=(1,0), b=(1/2,√3/2).
type Key struct {
	Q int
	S int
}

// LatticeKey returns the key of the lattice point (q, s).
func LatticeKey(q, s int) Key {
	return Key{Q: q * Scale, S: s * Scale}
}

func (k Key) Add(o Key) Key {
	return Key{Q: k.Q + o.Q, S: k.S + o.S}
}

func (k Key) Sub(o Key) Key {
	return Key{Q: k.Q - o.Q, S: k.S - o.S}
}

func (k Key) Mul(n int) Key {
	return Key{Q: k.Q * n, S: k.S * n}
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d)/%d", k.Q, k.S, Scale)
}

// Midpoint returns the exact midpoint of a and b.
func Midpoint(a, b Key) Key {
	return Centroid(a, b)
}

// Centroid returns the exact average of keys. It panics when the average is
// not representable, which means a key was built off the lattice.
func Centroid(keys ...Key) Key {
	if len(keys) == 0 {
		panic("hexgrid: centroid of no keys")
	}
	var sum Key
	for _, k := range keys {
		sum = sum.Add(k)
	}
	n := len(keys)
	if sum.Q%n != 0 || sum.S%n != 0 {
		panic(fmt.Sprintf("hexgrid: centroid of %d keys summing to %v is not exact", n, sum))
	}
	return Key{Q: sum.Q / n, S: sum.S / n}
}

// Layout converts lattice keys to world positions.
type Layout struct {
	Spacing float64
}

var sqrt3Half = math.Sqrt(3) / 2

// Position returns the world position of k.
func (l Layout) Position(k Key) mgl64.Vec2 {
	q := float64(k.Q) / Scale
	s := float64(k.S) / Scale
	return mgl64.Vec2{(q + s*0.5) * l.Spacing, s * sqrt3Half * l.Spacing}
}

// Direction indexes the six neighbors of a chunk and the six corners of its
// hexagon. Corner k sits at 60k degrees; side d runs from corner d to corner
// d+1 and faces neighbor d.
type Direction int

const NumDirections = 6

var directionOffsets = [NumDirections][2]int{
	{1, 0},
	{0, 1},
	{-1, 1},
	{-1, 0},
	{0, -1},
	{1, -1},
}

// Offset returns the axial step of d.
func (d Direction) Offset() (int, int) {
	o := directionOffsets[d.normalize()]
	return o[0], o[1]
}

func (d Direction) normalize() Direction {
	return ((d % NumDirections) + NumDirections) % NumDirections
}

func (d Direction) Next() Direction {
	return (d + 1).normalize()
}

func (d Direction) Prev() Direction {
	return (d - 1).normalize()
}

func (d Direction) Opposite() Direction {
	return (d + 3).normalize()
}

// SectorOf buckets a vector relative to a chunk center into the 60 degree
// sector between corner k and corner k+1.
func SectorOf(rel mgl64.Vec2) Direction {
	angle := math.Atan2(rel.Y(), rel.X())
	if angle < 0 {
		angle += 2 * math.Pi
	}
	sector := int(angle / (math.Pi / 3))
	if sector >= NumDirections {
		sector = NumDirections - 1
	}
	return Direction(sector)
}

// ChunkCoord identifies a chunk in axial chunk space.
type ChunkCoord struct {
	Col int
	Row int
}

func (c ChunkCoord) Neighbor(d Direction) ChunkCoord {
	dc, dr := d.Offset()
	return ChunkCoord{Col: c.Col + dc, Row: c.Row + dr}
}

// Neighbors returns the six adjacent chunks indexed by direction.
func (c ChunkCoord) Neighbors() [NumDirections]ChunkCoord {
	var out [NumDirections]ChunkCoord
	for d := Direction(0); d < NumDirections; d++ {
		out[d] = c.Neighbor(d)
	}
	return out
}

// Less orders coordinates by column then row.
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c.Col != o.Col {
		return c.Col < o.Col
	}
	return c.Row < o.Row
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}
