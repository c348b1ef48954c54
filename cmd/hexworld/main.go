package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hexworld/internal/hexgrid"
	"hexworld/internal/topology"
	"hexworld/internal/trace"
	"hexworld/internal/world"
)

func main() {
	var (
		cfgPath   string
		radius    int
		maxFrames int
	)
	flag.StringVar(&cfgPath, "config", "", "path to world configuration file (JSON or YAML)")
	flag.IntVar(&radius, "radius", 1, "request every chunk within this many steps of the origin")
	flag.IntVar(&maxFrames, "frames", 0, "stop after this many frames (0 runs until every chunk is delivered)")
	flag.Parse()

	cfg, source, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := log.New(log.Writer(), "hexworld ", log.LstdFlags|log.Lmicroseconds)
	logger.Printf("config from %s: seed=%d chunkSize=%d noise=%s", source, cfg.World.Seed, cfg.World.ChunkSize, cfg.Terrain.Noise)

	opts := world.Options{
		Logger: logger,
		Listeners: []world.ChunkListener{world.ListenerFunc(func(chunk *topology.Chunk) {
			logger.Printf("chunk %v delivered: id=%d cells=%d quads=%d water triangles=%d",
				chunk.Coord, chunk.ID, len(chunk.MeshCells), len(chunk.Quads), chunk.Water.Triangles())
		})},
	}
	if cfg.Trace.Dir != "" {
		tw, err := trace.Open(cfg.Trace.Dir, "chunks")
		if err != nil {
			log.Fatalf("open trace: %v", err)
		}
		defer func() {
			if err := tw.Close(); err != nil {
				logger.Printf("close trace: %v", err)
			}
		}()
		opts.Trace = tw
	}

	w, err := world.New(cfg, world.NewGenerator(cfg), opts)
	if err != nil {
		log.Fatalf("initialise world: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w.Start(ctx)
	defer w.Close()

	for _, coord := range chunksWithin(radius) {
		w.GenerateChunk(coord.Col, coord.Row)
	}

	start := time.Now()
	frame := 0
	frames := world.NewFrameLoop(cfg.Pipeline.FrameInterval.Duration()).Run(ctx, func(time.Duration) bool {
		frame++
		w.Update()
		if maxFrames > 0 && frame >= maxFrames {
			return false
		}
		return w.Pending() > 0
	})
	logger.Printf("delivered %d chunks in %d frames (%s)", w.Published(), frames, time.Since(start).Round(time.Millisecond))
}

// chunksWithin lists the chunks at most radius steps from the origin,
// nearest rings first.
func chunksWithin(radius int) []hexgrid.ChunkCoord {
	if radius < 0 {
		return nil
	}
	out := []hexgrid.ChunkCoord{{}}
	for ring := 1; ring <= radius; ring++ {
		// Start at the corner reached by walking direction 4 and go around.
		c := hexgrid.ChunkCoord{}
		for i := 0; i < ring; i++ {
			c = c.Neighbor(4)
		}
		for d := hexgrid.Direction(0); d < hexgrid.NumDirections; d++ {
			for i := 0; i < ring; i++ {
				out = append(out, c)
				c = c.Neighbor(d)
			}
		}
	}
	return out
}
