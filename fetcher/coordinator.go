package fetcher

import (
	"context"
	"errors"
	"sync"

	"github.com/go-kit/log/level"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/semaphore"
)

// Result is one successfully fetched tile. The data is handed to the consumer
// exactly once and not retained here.
type Result struct {
	Tile maptile.Tile
	Data []byte
}

// FetchAll fetches every tile under the concurrency cap and streams results
// on the returned channel in completion order. Tiles that exhaust their
// retries are logged and dropped from the stream; they never abort the run.
// The channel closes once every tile has either succeeded or failed for good.
//
// Cancelling ctx stops admitting new fetches and unwinds the ones in flight;
// results already produced stay consumable until the channel closes.
func (c *Client) FetchAll(ctx context.Context, tiles []maptile.Tile) <-chan Result {
	results := make(chan Result)
	sem := semaphore.NewWeighted(int64(c.opts.Concurrency))

	go func() {
		defer close(results)

		var wg sync.WaitGroup
		for _, t := range tiles {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}

			wg.Add(1)
			go func(t maptile.Tile) {
				defer wg.Done()
				defer sem.Release(1)

				data, err := c.Fetch(ctx, t)
				if c.opts.Progress != nil {
					c.opts.Progress.Add(1)
				}
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						level.Warn(c.logger).Log(
							"msg", "dropping tile",
							"z", t.Z,
							"x", t.X,
							"y", t.Y,
							"error", err,
						)
					}

					return
				}

				select {
				case results <- Result{Tile: t, Data: data}:
				case <-ctx.Done():
				}
			}(t)
		}
		wg.Wait()
	}()

	return results
}
