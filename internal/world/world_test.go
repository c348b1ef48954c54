package world

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"hexworld/internal/config"
	"hexworld/internal/hexgrid"
	"hexworld/internal/planar"
	"hexworld/internal/topology"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Seed = 42
	cfg.World.ChunkSize = 2
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestWorld(t *testing.T, cfg *config.Config, gen Generator, opts Options) *World {
	t.Helper()
	if gen == nil {
		gen = NewGenerator(cfg)
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	w, err := New(cfg, gen, opts)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

// waitFor calls Update until want chunks were delivered.
func waitFor(t *testing.T, w *World, want int) []*topology.Chunk {
	t.Helper()
	var got []*topology.Chunk
	deadline := time.Now().Add(30 * time.Second)
	for len(got) < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out with %d of %d chunks delivered", len(got), want)
		}
		if chunk, ok := w.Update(); ok {
			got = append(got, chunk)
			continue
		}
		time.Sleep(time.Millisecond)
	}
	return got
}

func TestAdjacentChunksShareBorderCells(t *testing.T) {
	cfg := testConfig()
	w := newTestWorld(t, cfg, nil, Options{})
	w.Start(context.Background())

	w.GenerateChunk(0, 0)
	w.GenerateChunk(1, 0)
	waitFor(t, w, 2)
	w.Close()

	left, ok := w.Chunk(0, 0)
	if !ok {
		t.Fatalf("chunk (0,0) not delivered")
	}
	right, ok := w.Chunk(1, 0)
	if !ok {
		t.Fatalf("chunk (1,0) not delivered")
	}

	shape := left.Shape
	for i, idx := range shape.SideIndices(0) {
		a := left.Border[idx]
		b := right.Border[shape.NeighborSideIndex(0, i)]
		if a != b {
			t.Fatalf("border index %d resolved to different cells", idx)
		}
		if a.GlobalID != b.GlobalID || a.Position != b.Position || a.Height != b.Height {
			t.Fatalf("shared cell mismatch: %+v vs %+v", a, b)
		}
	}

	for _, chunk := range []*topology.Chunk{left, right} {
		for _, cell := range chunk.MeshCells {
			if !cell.Finalized() {
				t.Fatalf("chunk %v cell %v not finalized", chunk.Coord, cell.Key)
			}
		}
		if chunk.Terrain == nil || chunk.Water == nil {
			t.Fatalf("chunk %v has no meshes", chunk.Coord)
		}
		if byID, ok := w.ChunkByID(chunk.ID); !ok || byID != chunk {
			t.Fatalf("chunk %v not indexed by id %d", chunk.Coord, chunk.ID)
		}
	}

	outer := 0
	faces := w.graph.CalculateFaces()
	for _, f := range faces {
		if f.Len() != 4 {
			outer++
		}
	}
	if outer != 1 {
		t.Fatalf("world graph has %d non-quad faces, want only the outline", outer)
	}
}

// unresolvedNeighbors counts neighbor ids of chunk that do not resolve yet and
// sums the positions of those that do.
func unresolvedNeighbors(t *testing.T, w *World, chunk *topology.Chunk) (int, float64) {
	t.Helper()
	pending, sum := 0, 0.0
	for _, cell := range chunk.MeshCells {
		for _, id := range cell.NeighborIDs() {
			nb, ok := w.Cell(id)
			if !ok {
				pending++
				continue
			}
			if !nb.Finalized() || nb.GlobalID != id {
				t.Fatalf("neighbor %x resolved to an unfinished cell", id)
			}
			sum += nb.Position.X() + nb.Position.Y()
		}
	}
	return pending, sum
}

func TestNeighborIDsResolveThroughDeliveredChunks(t *testing.T) {
	w := newTestWorld(t, testConfig(), nil, Options{})
	w.Start(context.Background())
	defer w.Close()

	w.GenerateChunk(0, 0)
	origin := waitFor(t, w, 1)[0]
	before, _ := unresolvedNeighbors(t, w, origin)
	if before == 0 {
		t.Fatalf("expected neighbors owned by chunks that are not delivered yet")
	}

	// Neighbors are read on the main loop while the next chunk is built.
	w.GenerateChunk(1, 0)
	deadline := time.Now().Add(30 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("chunk (1,0) was not delivered")
		}
		if _, sum := unresolvedNeighbors(t, w, origin); math.IsNaN(sum) {
			t.Fatalf("neighbor positions are not numbers")
		}
		if _, ok := w.Update(); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}

	after, _ := unresolvedNeighbors(t, w, origin)
	if after >= before {
		t.Fatalf("delivering (1,0) should resolve more neighbors: %d before, %d after", before, after)
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	build := func() []*topology.Cell {
		w := newTestWorld(t, testConfig(), nil, Options{})
		w.Start(context.Background())
		defer w.Close()
		w.GenerateChunk(0, 0)
		return waitFor(t, w, 1)[0].MeshCells
	}
	first, second := build(), build()
	if len(first) != len(second) {
		t.Fatalf("cell counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key || first[i].Position != second[i].Position || first[i].GlobalID != second[i].GlobalID {
			t.Fatalf("cell %d differs between runs", i)
		}
	}
}

func TestUpdateDeliversAtMostOneChunk(t *testing.T) {
	w := newTestWorld(t, testConfig(), nil, Options{})

	for i, coord := range []hexgrid.ChunkCoord{{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 2, Row: 0}} {
		w.inflight.Track(coord)
		w.generated <- result{coord: coord, chunk: &topology.Chunk{Coord: coord, ID: uint16(i)}}
	}

	for i := 0; i < 3; i++ {
		chunk, ok := w.Update()
		if !ok {
			t.Fatalf("update %d delivered nothing", i)
		}
		if int(chunk.ID) != i {
			t.Fatalf("update %d delivered chunk %d", i, chunk.ID)
		}
		if w.Published() != i+1 {
			t.Fatalf("after update %d published=%d", i, w.Published())
		}
	}
	if _, ok := w.Update(); ok {
		t.Fatalf("expected an empty update")
	}
	if w.Pending() != 0 {
		t.Fatalf("expected no pending requests, got %d", w.Pending())
	}
}

func TestRequestsOverflowIntoBacklog(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.QueueCapacity = 1
	w := newTestWorld(t, cfg, nil, Options{})

	w.GenerateChunk(0, 0)
	w.GenerateChunk(1, 0)
	w.GenerateChunk(2, 0)
	w.GenerateChunk(1, 0)

	if len(w.requests) != 1 || w.inflight.Len() != 2 || w.Pending() != 3 {
		t.Fatalf("queue=%d backlog=%d pending=%d", len(w.requests), w.inflight.Len(), w.Pending())
	}

	want := []hexgrid.ChunkCoord{{Col: 0, Row: 0}, {Col: 1, Row: 0}, {Col: 2, Row: 0}}
	for i, coord := range want {
		if i > 0 {
			w.Update()
		}
		if got := <-w.requests; got != coord {
			t.Fatalf("request %d = %v, want %v", i, got, coord)
		}
	}
	if w.inflight.Len() != 0 {
		t.Fatalf("backlog not drained")
	}
}

func TestGenerateChunkIgnoresPublished(t *testing.T) {
	w := newTestWorld(t, testConfig(), nil, Options{})
	coord := hexgrid.ChunkCoord{Col: 4, Row: 4}
	w.inflight.Track(coord)
	w.generated <- result{coord: coord, chunk: &topology.Chunk{Coord: coord}}
	if _, ok := w.Update(); !ok {
		t.Fatalf("expected delivery")
	}

	w.GenerateChunk(4, 4)
	if len(w.requests) != 0 || w.Pending() != 0 {
		t.Fatalf("published chunk was requested again")
	}
}

func TestListenersReceiveChunks(t *testing.T) {
	var seen []hexgrid.ChunkCoord
	var w *World
	listener := ListenerFunc(func(chunk *topology.Chunk) {
		seen = append(seen, chunk.Coord)
		if chunk.Coord == (hexgrid.ChunkCoord{}) {
			w.GenerateChunk(0, 1)
		}
	})
	w = newTestWorld(t, testConfig(), nil, Options{Listeners: []ChunkListener{listener}})
	w.Start(context.Background())
	defer w.Close()

	w.GenerateChunk(0, 0)
	waitFor(t, w, 2)
	if len(seen) != 2 || seen[0] != (hexgrid.ChunkCoord{}) || seen[1] != (hexgrid.ChunkCoord{Col: 0, Row: 1}) {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

type failingGenerator struct {
	inner Generator
	fail  hexgrid.ChunkCoord
}

func (g failingGenerator) Generate(coord hexgrid.ChunkCoord, id uint16, world *planar.Graph, neighbors [hexgrid.NumDirections]*topology.Chunk) (*topology.Chunk, error) {
	if coord == g.fail {
		return nil, errors.New("boom")
	}
	return g.inner.Generate(coord, id, world, neighbors)
}

func TestGenerationErrorReleasesRequest(t *testing.T) {
	cfg := testConfig()
	gen := failingGenerator{inner: NewGenerator(cfg), fail: hexgrid.ChunkCoord{Col: 5, Row: 5}}
	w := newTestWorld(t, cfg, gen, Options{})
	w.Start(context.Background())
	defer w.Close()

	w.GenerateChunk(5, 5)
	deadline := time.Now().Add(10 * time.Second)
	for w.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("failed request never released")
		}
		if _, ok := w.Update(); ok {
			t.Fatalf("failed chunk should not be delivered")
		}
		time.Sleep(time.Millisecond)
	}

	w.GenerateChunk(0, 0)
	waitFor(t, w, 1)
}

type recordingTracer struct {
	records []any
}

func (r *recordingTracer) Write(v any) error {
	r.records = append(r.records, v)
	return nil
}

func TestTraceRecordsEachChunk(t *testing.T) {
	tracer := &recordingTracer{}
	w := newTestWorld(t, testConfig(), nil, Options{Trace: tracer})
	w.Start(context.Background())
	w.GenerateChunk(0, 0)
	w.GenerateChunk(-1, 0)
	waitFor(t, w, 2)
	w.Close()

	if len(tracer.records) != 2 {
		t.Fatalf("expected 2 trace records, got %d", len(tracer.records))
	}
	first := tracer.records[0].(buildStats)
	if first.NewChunks != 7 || first.NewClusters != 6 {
		t.Fatalf("first chunk should create 7 chunks and 6 clusters, got %+v", first)
	}
	second := tracer.records[1].(buildStats)
	if second.NewChunks != 3 || second.NewClusters != 4 {
		t.Fatalf("second chunk should reuse the shared ring, got %+v", second)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.QueueCapacity = 0
	if _, err := New(cfg, NewGenerator(cfg), Options{Logger: quietLogger()}); err == nil {
		t.Fatalf("expected invalid configuration to be rejected")
	}
}

func TestCloseWithoutStart(t *testing.T) {
	w := newTestWorld(t, testConfig(), nil, Options{})
	w.Close()
}
