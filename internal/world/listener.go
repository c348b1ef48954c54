package world

import "hexworld/internal/topology"

// ChunkListener is notified on the main thread when Update delivers a
// finished chunk. Listeners may call GenerateChunk.
type ChunkListener interface {
	ChunkReady(chunk *topology.Chunk)
}

// ListenerFunc adapts a function to ChunkListener.
type ListenerFunc func(chunk *topology.Chunk)

func (f ListenerFunc) ChunkReady(chunk *topology.Chunk) {
	f(chunk)
}
