package world

import (
	"context"
	"time"
)

type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

// FrameLoop paces the main loop. Frames run on the goroutine that calls Run,
// which makes it the owner of World.Update and World.GenerateChunk.
type FrameLoop struct {
	interval  time.Duration
	newTicker tickerFactory
	now       timeSource
}

func NewFrameLoop(interval time.Duration) *FrameLoop {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &FrameLoop{
		interval:  interval,
		newTicker: defaultTickerFactory(),
		now:       time.Now,
	}
}

// Run calls frame once per tick with the time since the previous frame
// until frame returns false or ctx is done. Deltas that are not positive or
// exceed ten intervals are clamped to one interval. It returns the number of
// frames run.
func (l *FrameLoop) Run(ctx context.Context, frame func(delta time.Duration) bool) int {
	tickerC, stop := l.newTicker(l.interval)
	defer stop()

	frames := 0
	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return frames
		case now := <-tickerC:
			delta := now.Sub(last)
			if delta <= 0 || delta > 10*l.interval {
				delta = l.interval
			}
			last = now
			frames++
			if !frame(delta) {
				return frames
			}
		}
	}
}
