package world

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"hexworld/internal/hexgrid"
	"hexworld/internal/relax"
	"hexworld/internal/topology"
)

// clusterKey names a relaxation cluster by its sorted member coordinates.
// Single chunk clusters repeat the same coordinate.
type clusterKey [3]hexgrid.ChunkCoord

func newClusterKey(coords ...hexgrid.ChunkCoord) clusterKey {
	var k clusterKey
	for i := range k {
		k[i] = coords[i%len(coords)]
	}
	sort.Slice(k[:], func(i, j int) bool { return k[i].Less(k[j]) })
	return k
}

func (w *World) run(ctx context.Context) {
	defer w.wg.Done()
	w.logger.Printf("generation worker started")
	defer w.logger.Printf("generation worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case coord := <-w.requests:
			chunk, err := w.buildChunk(coord)
			if err != nil {
				w.logger.Printf("generate chunk %v: %v", coord, err)
			}
			select {
			case w.generated <- result{coord: coord, chunk: chunk, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

type buildStats struct {
	Col         int    `json:"col"`
	Row         int    `json:"row"`
	ID          uint16 `json:"id"`
	Cells       int    `json:"cells"`
	MeshCells   int    `json:"meshCells"`
	Quads       int    `json:"quads"`
	NewChunks   int    `json:"newChunks"`
	NewClusters int    `json:"newClusters"`
	TopologyUS  int64  `json:"topologyUs"`
	RelaxUS     int64  `json:"relaxUs"`
	TotalUS     int64  `json:"totalUs"`
}

// buildChunk generates, relaxes and finalizes the chunk at coord.
func (w *World) buildChunk(coord hexgrid.ChunkCoord) (*topology.Chunk, error) {
	if chunk, ok := w.relaxedChunks[coord]; ok {
		return chunk, nil
	}
	start := time.Now()

	target, err := w.chunkAt(coord)
	if err != nil {
		return nil, err
	}
	ring := [hexgrid.NumDirections]*topology.Chunk{}
	for d := hexgrid.Direction(0); d < hexgrid.NumDirections; d++ {
		if ring[d], err = w.chunkAt(coord.Neighbor(d)); err != nil {
			return nil, err
		}
	}
	topologyDone := time.Now()

	// Chunks without a cluster were just created.
	var fresh []*relax.Cluster
	own := w.cluster(&fresh, target)
	for _, chunk := range ring {
		w.cluster(&fresh, chunk)
	}
	newChunks := len(fresh)
	w.relaxAll(fresh)

	fresh = fresh[:0]
	var corners [hexgrid.NumDirections]*relax.Cluster
	for k := hexgrid.Direction(0); k < hexgrid.NumDirections; k++ {
		corners[k] = w.cluster(&fresh, target, ring[k.Prev()], ring[k])
	}
	newClusters := len(fresh)
	w.relaxAll(fresh)

	topology.LinkNeighbors(target, w.graph)
	relax.UpdateChunkCells(target, own, corners)
	target.BuildMeshes(float32(w.cfg.Terrain.WaterLevel))
	relaxDone := time.Now()

	w.relaxedChunks[coord] = target
	w.relaxedByID[target.ID] = target

	stats := buildStats{
		Col:         coord.Col,
		Row:         coord.Row,
		ID:          target.ID,
		Cells:       len(target.Cells),
		MeshCells:   len(target.MeshCells),
		Quads:       len(target.Quads),
		NewChunks:   newChunks,
		NewClusters: newClusters,
		TopologyUS:  topologyDone.Sub(start).Microseconds(),
		RelaxUS:     relaxDone.Sub(topologyDone).Microseconds(),
		TotalUS:     time.Since(start).Microseconds(),
	}
	w.logger.Printf("chunk %v ready: id=%d cells=%d quads=%d new chunks=%d new clusters=%d in %s",
		coord, target.ID, stats.Cells, stats.Quads, newChunks, newClusters, time.Since(start).Round(time.Microsecond))
	if w.trace != nil {
		if err := w.trace.Write(stats); err != nil {
			w.logger.Printf("trace chunk %v: %v", coord, err)
		}
	}
	return target, nil
}

// chunkAt returns the topology of coord, generating it on first use.
func (w *World) chunkAt(coord hexgrid.ChunkCoord) (*topology.Chunk, error) {
	if chunk, ok := w.allChunks[coord]; ok {
		return chunk, nil
	}
	if w.nextID > math.MaxUint16 {
		return nil, fmt.Errorf("chunk %v: chunk id space exhausted", coord)
	}
	var neighbors [hexgrid.NumDirections]*topology.Chunk
	for d := hexgrid.Direction(0); d < hexgrid.NumDirections; d++ {
		neighbors[d] = w.allChunks[coord.Neighbor(d)]
	}
	chunk, err := w.generator.Generate(coord, uint16(w.nextID), w.graph, neighbors)
	if err != nil {
		return nil, fmt.Errorf("generate topology %v: %w", coord, err)
	}
	w.nextID++
	w.allChunks[coord] = chunk
	return chunk, nil
}

// cluster returns the cached cluster over chunks, creating it unrelaxed and
// appending it to fresh if needed.
func (w *World) cluster(fresh *[]*relax.Cluster, chunks ...*topology.Chunk) *relax.Cluster {
	coords := make([]hexgrid.ChunkCoord, len(chunks))
	for i, c := range chunks {
		coords[i] = c.Coord
	}
	key := newClusterKey(coords...)
	if c, ok := w.clusters[key]; ok {
		return c
	}
	members := make([]*topology.Chunk, 0, len(chunks))
	for i, coord := range key {
		if i > 0 && coord == key[i-1] {
			continue
		}
		members = append(members, w.allChunks[coord])
	}
	c := relax.NewCluster(w.cfg.World.CellSize, members...)
	w.clusters[key] = c
	*fresh = append(*fresh, c)
	return c
}

// relaxAll relaxes clusters concurrently and waits for all of them.
func (w *World) relaxAll(clusters []*relax.Cluster) {
	if len(clusters) == 0 {
		return
	}
	workers := w.cfg.Pipeline.RelaxWorkers
	if workers <= 0 || workers > len(clusters) {
		workers = len(clusters)
	}

	jobs := make(chan *relax.Cluster)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				c.Relax(w.cfg.Relax.Iterations, w.cfg.Relax.Step)
			}
		}()
	}
	for _, c := range clusters {
		jobs <- c
	}
	close(jobs)
	wg.Wait()
}
