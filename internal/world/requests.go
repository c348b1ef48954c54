package world

import "hexworld/internal/hexgrid"

// requestQueue tracks coordinates that were requested but not delivered yet
// and holds the ones that did not fit into the request channel. It belongs
// to the main loop and is not safe for concurrent use.
type requestQueue struct {
	tracked map[hexgrid.ChunkCoord]struct{}
	pending []hexgrid.ChunkCoord
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		tracked: make(map[hexgrid.ChunkCoord]struct{}),
	}
}

// Track marks coord as in flight. It returns false if it already was.
func (q *requestQueue) Track(coord hexgrid.ChunkCoord) bool {
	if _, ok := q.tracked[coord]; ok {
		return false
	}
	q.tracked[coord] = struct{}{}
	return true
}

func (q *requestQueue) Release(coord hexgrid.ChunkCoord) {
	delete(q.tracked, coord)
}

// InFlight is the number of tracked coordinates.
func (q *requestQueue) InFlight() int {
	return len(q.tracked)
}

// Defer appends coord to the overflow backlog.
func (q *requestQueue) Defer(coord hexgrid.ChunkCoord) {
	q.pending = append(q.pending, coord)
}

// Drain removes up to max coordinates from the front of the backlog. A
// non-positive max drains everything.
func (q *requestQueue) Drain(max int) []hexgrid.ChunkCoord {
	if len(q.pending) == 0 {
		return nil
	}
	if max <= 0 || max >= len(q.pending) {
		batch := q.pending
		q.pending = nil
		return batch
	}
	batch := append([]hexgrid.ChunkCoord(nil), q.pending[:max]...)
	q.pending = q.pending[max:]
	return batch
}

// Len is the backlog length.
func (q *requestQueue) Len() int {
	return len(q.pending)
}
