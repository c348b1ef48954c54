// Package planar implements a planar straight-line graph stored as a
// half-edge structure. Nodes and directed edges live in arenas addressed by
// integer handles; every undirected edge is a pair of mirrored DirectedEdges
// and every node keeps its outgoing edges in a radial cycle sorted by angle.
package planar

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/hexgrid"
)

type NodeID int32

type EdgeID int32

const (
	NoNode NodeID = -1
	NoEdge EdgeID = -1
)

// Node is a graph vertex. Key is its identity inside one graph.
type Node struct {
	Key hexgrid.Key
	Pos mgl64.Vec2
	// Ref is an optional back-reference owned by the caller.
	Ref any

	out   map[NodeID]EdgeID
	first EdgeID
	alive bool
}

// DirectedEdge is one half of an undirected edge. CW and CCW link the edge
// into the radial cycle of From.
type DirectedEdge struct {
	From NodeID
	To   NodeID
	Twin EdgeID
	CW   EdgeID
	CCW  EdgeID

	angle float64
	alive bool
}

// Face is a closed walk produced by CalculateFace. Nodes[i] is the origin of
// Edges[i].
type Face struct {
	Nodes []NodeID
	Edges []EdgeID
}

func (f Face) Len() int {
	return len(f.Nodes)
}

type Graph struct {
	nodes []Node
	edges []DirectedEdge
	index map[hexgrid.Key]NodeID

	liveNodes int
	liveEdges int
}

func New() *Graph {
	return &Graph{
		index: make(map[hexgrid.Key]NodeID),
	}
}

// AddNode returns the node at key, registering a new one at pos if none
// exists yet.
func (g *Graph) AddNode(key hexgrid.Key, pos mgl64.Vec2) NodeID {
	if id, ok := g.index[key]; ok {
		return id
	}
	return g.insert(key, pos)
}

// InsertNode registers a new node and panics if key is already taken.
func (g *Graph) InsertNode(key hexgrid.Key, pos mgl64.Vec2) NodeID {
	if id, ok := g.index[key]; ok {
		panic(fmt.Sprintf("planar: node %d already occupies key %v", id, key))
	}
	return g.insert(key, pos)
}

func (g *Graph) insert(key hexgrid.Key, pos mgl64.Vec2) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		Key:   key,
		Pos:   pos,
		out:   make(map[NodeID]EdgeID, 6),
		first: NoEdge,
		alive: true,
	})
	g.index[key] = id
	g.liveNodes++
	return id
}

func (g *Graph) Lookup(key hexgrid.Key) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

func (g *Graph) node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) || !g.nodes[id].alive {
		panic(fmt.Sprintf("planar: invalid node handle %d", id))
	}
	return &g.nodes[id]
}

func (g *Graph) edge(id EdgeID) *DirectedEdge {
	if id < 0 || int(id) >= len(g.edges) || !g.edges[id].alive {
		panic(fmt.Sprintf("planar: invalid edge handle %d", id))
	}
	return &g.edges[id]
}

// Node returns a copy of the node behind id.
func (g *Graph) Node(id NodeID) Node {
	return *g.node(id)
}

func (g *Graph) Edge(id EdgeID) DirectedEdge {
	return *g.edge(id)
}

func (g *Graph) Key(id NodeID) hexgrid.Key {
	return g.node(id).Key
}

func (g *Graph) Pos(id NodeID) mgl64.Vec2 {
	return g.node(id).Pos
}

func (g *Graph) Ref(id NodeID) any {
	return g.node(id).Ref
}

func (g *Graph) SetRef(id NodeID, ref any) {
	g.node(id).Ref = ref
}

func (g *Graph) NodeAlive(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes) && g.nodes[id].alive
}

func (g *Graph) EdgeAlive(id EdgeID) bool {
	return id >= 0 && int(id) < len(g.edges) && g.edges[id].alive
}

// NodeCount is the number of live nodes.
func (g *Graph) NodeCount() int {
	return g.liveNodes
}

// EdgeCount is the number of live undirected edges.
func (g *Graph) EdgeCount() int {
	return g.liveEdges / 2
}

// NodeCap is one past the largest node handle ever issued.
func (g *Graph) NodeCap() int {
	return len(g.nodes)
}

// EdgeCap is one past the largest edge handle ever issued.
func (g *Graph) EdgeCap() int {
	return len(g.edges)
}

// Nodes lists live nodes in creation order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, 0, g.liveNodes)
	for i := range g.nodes {
		if g.nodes[i].alive {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Edges lists one directed half per live undirected edge, in creation order.
func (g *Graph) Edges() []EdgeID {
	out := make([]EdgeID, 0, g.liveEdges/2)
	for i := range g.edges {
		e := &g.edges[i]
		if e.alive && EdgeID(i) < e.Twin {
			out = append(out, EdgeID(i))
		}
	}
	return out
}

// FindEdge returns the directed edge a->b or NoEdge.
func (g *Graph) FindEdge(a, b NodeID) EdgeID {
	if e, ok := g.node(a).out[b]; ok {
		return e
	}
	return NoEdge
}

// AddEdge connects a and b and returns the a->b half. Existing edges are
// returned unchanged.
func (g *Graph) AddEdge(a, b NodeID) EdgeID {
	if a == b {
		panic(fmt.Sprintf("planar: self loop on node %d", a))
	}
	na, nb := g.node(a), g.node(b)
	if e, ok := na.out[b]; ok {
		return e
	}
	ab := EdgeID(len(g.edges))
	ba := ab + 1
	d := nb.Pos.Sub(na.Pos)
	g.edges = append(g.edges,
		DirectedEdge{From: a, To: b, Twin: ba, CW: NoEdge, CCW: NoEdge, angle: math.Atan2(d.Y(), d.X()), alive: true},
		DirectedEdge{From: b, To: a, Twin: ab, CW: NoEdge, CCW: NoEdge, angle: math.Atan2(-d.Y(), -d.X()), alive: true},
	)
	g.link(ab)
	g.link(ba)
	na.out[b] = ab
	nb.out[a] = ba
	g.liveEdges += 2
	return ab
}

// link inserts e into the radial cycle of its origin, after the edge with the
// nearest smaller angle.
func (g *Graph) link(e EdgeID) {
	ed := &g.edges[e]
	n := &g.nodes[ed.From]
	if n.first == NoEdge {
		ed.CW, ed.CCW = e, e
		n.first = e
		return
	}
	best := NoEdge
	bestDelta := math.Inf(1)
	cur := n.first
	for {
		delta := ed.angle - g.edges[cur].angle
		if delta <= 0 {
			delta += 2 * math.Pi
		}
		if delta < bestDelta {
			best, bestDelta = cur, delta
		}
		cur = g.edges[cur].CCW
		if cur == n.first {
			break
		}
	}
	next := g.edges[best].CCW
	ed.CW = best
	ed.CCW = next
	g.edges[best].CCW = e
	g.edges[next].CW = e
}

func (g *Graph) unlink(e EdgeID) {
	ed := &g.edges[e]
	n := &g.nodes[ed.From]
	if ed.CCW == e {
		n.first = NoEdge
	} else {
		g.edges[ed.CW].CCW = ed.CCW
		g.edges[ed.CCW].CW = ed.CW
		if n.first == e {
			n.first = ed.CCW
		}
	}
	delete(n.out, ed.To)
	ed.CW, ed.CCW = NoEdge, NoEdge
	ed.alive = false
}

// RemoveEdge deletes e together with its mirror.
func (g *Graph) RemoveEdge(e EdgeID) {
	twin := g.edge(e).Twin
	g.unlink(e)
	g.unlink(twin)
	g.liveEdges -= 2
}

// RemoveNode deletes id and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) {
	n := g.node(id)
	for n.first != NoEdge {
		g.RemoveEdge(n.first)
	}
	delete(g.index, n.Key)
	n.alive = false
	n.out = nil
	g.liveNodes--
}

// Outgoing lists the edges leaving id in counterclockwise order.
func (g *Graph) Outgoing(id NodeID) []EdgeID {
	n := g.node(id)
	if n.first == NoEdge {
		return nil
	}
	out := make([]EdgeID, 0, len(n.out))
	cur := n.first
	for {
		out = append(out, cur)
		cur = g.edges[cur].CCW
		if cur == n.first {
			break
		}
	}
	return out
}

// Neighbors lists the nodes adjacent to id in counterclockwise order.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	edges := g.Outgoing(id)
	out := make([]NodeID, len(edges))
	for i, e := range edges {
		out[i] = g.edges[e].To
	}
	return out
}

func (g *Graph) Degree(id NodeID) int {
	return len(g.node(id).out)
}

// next follows e to the edge that continues its face.
func (g *Graph) next(e EdgeID) EdgeID {
	return g.edges[g.edges[e].Twin].CCW
}

// CalculateFace walks from start until it returns to start. Bounded faces
// come out clockwise, the unbounded face counterclockwise. A walk that does
// not close means the embedding is broken and panics.
func (g *Graph) CalculateFace(start EdgeID) Face {
	g.edge(start)
	var f Face
	e := start
	for steps := 0; ; steps++ {
		if steps > len(g.edges) {
			panic(fmt.Sprintf("planar: face walk from edge %d did not close", start))
		}
		f.Nodes = append(f.Nodes, g.edges[e].From)
		f.Edges = append(f.Edges, e)
		e = g.next(e)
		if e == start {
			return f
		}
	}
}

// FaceSize returns the length of the face containing start, or limit+1 if
// the face is longer than limit.
func (g *Graph) FaceSize(start EdgeID, limit int) int {
	g.edge(start)
	e := start
	for n := 1; n <= limit; n++ {
		e = g.next(e)
		if e == start {
			return n
		}
	}
	return limit + 1
}

// CalculateFaces returns every face of the embedding, the unbounded one
// included. Each directed edge belongs to exactly one face.
func (g *Graph) CalculateFaces() []Face {
	claimed := make([]bool, len(g.edges))
	var faces []Face
	for i := range g.nodes {
		if !g.nodes[i].alive {
			continue
		}
		for _, e := range g.Outgoing(NodeID(i)) {
			if claimed[e] {
				continue
			}
			f := g.CalculateFace(e)
			for _, fe := range f.Edges {
				claimed[fe] = true
			}
			faces = append(faces, f)
		}
	}
	return faces
}
