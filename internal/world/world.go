// Package world runs chunk generation on a background goroutine and hands
// finished chunks to the main loop one at a time.
package world

import (
	"context"
	"fmt"
	"log"
	"sync"

	"hexworld/internal/config"
	"hexworld/internal/heightfield"
	"hexworld/internal/hexgrid"
	"hexworld/internal/planar"
	"hexworld/internal/relax"
	"hexworld/internal/topology"
)

// Generator builds the topology of one chunk into the world graph.
type Generator interface {
	Generate(coord hexgrid.ChunkCoord, id uint16, world *planar.Graph, neighbors [hexgrid.NumDirections]*topology.Chunk) (*topology.Chunk, error)
}

// Tracer receives one record per finalized chunk.
type Tracer interface {
	Write(v any) error
}

type Options struct {
	Logger    *log.Logger
	Listeners []ChunkListener
	Trace     Tracer
}

// NewGenerator returns the terrain generator described by cfg.
func NewGenerator(cfg *config.Config) *topology.Generator {
	heights := heightfield.New(cfg.World.Seed, cfg.Terrain)
	return topology.NewGenerator(cfg.World.Seed, cfg.World.ChunkSize, cfg.World.CellSize, heights)
}

// World owns the shared world graph and every chunk cache.
//
// GenerateChunk, Update, Chunk and ChunkByID belong to the main loop and must
// be called from one goroutine. Everything else runs on the generation
// goroutine started by Start.
type World struct {
	cfg       config.Config
	generator Generator
	logger    *log.Logger
	listeners []ChunkListener
	trace     Tracer

	requests  chan hexgrid.ChunkCoord
	generated chan result

	// Generation goroutine state.
	graph         *planar.Graph
	allChunks     map[hexgrid.ChunkCoord]*topology.Chunk
	clusters      map[clusterKey]*relax.Cluster
	relaxedChunks map[hexgrid.ChunkCoord]*topology.Chunk
	relaxedByID   map[uint16]*topology.Chunk
	nextID        uint32

	// Main loop state.
	inflight       *requestQueue
	published      map[hexgrid.ChunkCoord]*topology.Chunk
	publishedByID  map[uint16]*topology.Chunk
	publishedCells map[uint32]*topology.Cell

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type result struct {
	coord hexgrid.ChunkCoord
	chunk *topology.Chunk
	err   error
}

func New(cfg *config.Config, generator Generator, opts Options) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "hexworld ", log.LstdFlags|log.Lmicroseconds)
	}
	return &World{
		cfg:            *cfg,
		generator:      generator,
		logger:         logger,
		listeners:      append([]ChunkListener(nil), opts.Listeners...),
		trace:          opts.Trace,
		requests:       make(chan hexgrid.ChunkCoord, cfg.Pipeline.QueueCapacity),
		generated:      make(chan result, cfg.Pipeline.QueueCapacity),
		graph:          planar.New(),
		allChunks:      make(map[hexgrid.ChunkCoord]*topology.Chunk),
		clusters:       make(map[clusterKey]*relax.Cluster),
		relaxedChunks:  make(map[hexgrid.ChunkCoord]*topology.Chunk),
		relaxedByID:    make(map[uint16]*topology.Chunk),
		inflight:       newRequestQueue(),
		published:      make(map[hexgrid.ChunkCoord]*topology.Chunk),
		publishedByID:  make(map[uint16]*topology.Chunk),
		publishedCells: make(map[uint32]*topology.Cell),
	}, nil
}

// Start launches the generation goroutine. Close stops it.
func (w *World) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
}

// Close signals the generation goroutine and waits for it. A chunk that is
// being built is finished first.
func (w *World) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// GenerateChunk requests the chunk at (col, row). It never blocks: requests
// that do not fit into the queue wait in a backlog that Update drains.
// Requests for delivered or in-flight chunks are ignored.
func (w *World) GenerateChunk(col, row int) {
	coord := hexgrid.ChunkCoord{Col: col, Row: row}
	if _, ok := w.published[coord]; ok {
		return
	}
	if !w.inflight.Track(coord) {
		return
	}
	if w.inflight.Len() > 0 {
		w.inflight.Defer(coord)
		return
	}
	select {
	case w.requests <- coord:
	default:
		w.inflight.Defer(coord)
		w.logger.Printf("request queue full, chunk %v deferred", coord)
	}
}

// Update delivers at most one finished chunk and notifies listeners.
func (w *World) Update() (*topology.Chunk, bool) {
	w.flushBacklog()

	var res result
	select {
	case res = <-w.generated:
	default:
		return nil, false
	}

	w.inflight.Release(res.coord)
	if res.err != nil {
		return nil, false
	}
	if _, ok := w.published[res.coord]; ok {
		return nil, false
	}
	w.published[res.coord] = res.chunk
	w.publishedByID[res.chunk.ID] = res.chunk
	for _, cell := range res.chunk.MeshCells {
		w.publishedCells[cell.GlobalID] = cell
	}
	for _, l := range w.listeners {
		l.ChunkReady(res.chunk)
	}
	return res.chunk, true
}

func (w *World) flushBacklog() {
	free := cap(w.requests) - len(w.requests)
	if free <= 0 {
		return
	}
	for _, coord := range w.inflight.Drain(free) {
		select {
		case w.requests <- coord:
		default:
			w.inflight.Defer(coord)
		}
	}
}

// Chunk returns a delivered chunk.
func (w *World) Chunk(col, row int) (*topology.Chunk, bool) {
	c, ok := w.published[hexgrid.ChunkCoord{Col: col, Row: row}]
	return c, ok
}

func (w *World) ChunkByID(id uint16) (*topology.Chunk, bool) {
	c, ok := w.publishedByID[id]
	return c, ok
}

// Cell resolves a global cell id, such as an entry of Cell.NeighborIDs, to a
// cell of a delivered chunk. Cells that only belong to chunks still being
// built are not visible yet.
func (w *World) Cell(id uint32) (*topology.Cell, bool) {
	c, ok := w.publishedCells[id]
	return c, ok
}

// Published is the number of chunks delivered by Update.
func (w *World) Published() int {
	return len(w.published)
}

// Pending is the number of requested chunks not delivered yet.
func (w *World) Pending() int {
	return w.inflight.InFlight()
}
