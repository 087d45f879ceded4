package watch

import (
	"context"
	"log"
)

// Live turns a point-in-time query into a live stream: the current
// snapshot is delivered immediately, then a fresh snapshot after every
// signal on any of the given hubs. Each subscription runs on its own
// goroutine, so a slow consumer never stalls other subscribers. The
// stream closes when ctx is cancelled.
//
// The initial query error is returned synchronously; a failed re-query
// mid-stream is logged and the previous snapshot stands.
func Live[T any](ctx context.Context, query func(context.Context) (T, error), hubs ...*Hub) (<-chan T, error) {
	first, err := query(ctx)
	if err != nil {
		return nil, err
	}

	signal := make(chan struct{}, 1)
	for _, h := range hubs {
		h.subscribe(signal)
	}

	out := make(chan T, 1)
	out <- first

	go func() {
		defer func() {
			for _, h := range hubs {
				h.unsubscribe(signal)
			}
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
			}
			snap, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[warn] live query: %v", err)
				}
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
