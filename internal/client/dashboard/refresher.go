package dashboard

import (
	"context"
	"sync"
	"time"
)

// Run ticks the countdown until ctx is done. When it runs out, the data is
// refetched in the background and the countdown restarts; a slow fetch does
// not hold the countdown back. Run returns once every fetch it started has
// finished.
func (d *Dashboard) Run(ctx context.Context) {
	t := time.NewTicker(d.tick)
	defer t.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !d.countDown() {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = d.FetchData(ctx)
			}()
		}
	}
}

// countDown advances the countdown by one tick and reports whether a
// refresh is due.
func (d *Dashboard) countDown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Countdown <= 1 {
		d.state.Countdown = d.ticks()
		return true
	}
	d.state.Countdown--
	return false
}

// Remaining is the time left until the next automatic refresh.
func (d *Dashboard) Remaining() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Duration(d.state.Countdown) * d.tick
}
