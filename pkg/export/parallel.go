package export

import (
	"fmt"
	"sync"

	"isoslicer/pkg/axes"
	"isoslicer/pkg/volume"
)

// ExportParallel runs the three tile sequences concurrently, one worker per
// direction. Tile indices stay deterministic: each worker walks its own
// sequence in order, so numbering matches Export regardless of scheduling.
// The sink must accept concurrent writes to distinct tiles. Progress calls
// remain monotonic and 1-based but interleave across directions.
//
// The first sink error stops every worker's remaining tiles; tiles already
// written stay written.
func (e *Exporter) ExportParallel(vol *volume.Tensor, placement axes.ChannelPlacement) (*Summary, error) {
	sum, err := newSummary(vol, placement)
	if err != nil {
		return nil, err
	}
	total := sum.Z + sum.Y + sum.X

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		done     int
		firstErr error
	)

	for _, dir := range []Direction{XY, ZX, ZY} {
		wg.Add(1)

		go func(dir Direction) {
			defer wg.Done()

			n := sum.sequenceLen(dir)
			for i := 0; i < n; i++ {
				mu.Lock()
				stop := firstErr != nil
				mu.Unlock()
				if stop {
					return
				}

				tile, tag, err := extractTile(vol, placement, dir, i)
				if err == nil && (!e.skipEmpty || tile.Max() != 0) {
					if werr := e.sink.Write(dir, i, tag, tile); werr != nil {
						err = fmt.Errorf("export: writing %s tile %d: %w", dir, i, werr)
					} else {
						mu.Lock()
						sum.Written++
						mu.Unlock()
					}
				} else if err == nil {
					mu.Lock()
					sum.Skipped++
					mu.Unlock()
				}

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				done++
				// Notify under the lock so done stays strictly increasing
				// from the callback's point of view.
				e.notify(done, total, fmt.Sprintf("%s %d/%d", dir, i+1, n))
				mu.Unlock()
			}
		}(dir)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return sum, nil
}
