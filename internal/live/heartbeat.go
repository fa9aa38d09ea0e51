package live

import "time"

// every calls fn on each tick of interval until the returned stop func runs.
// A non-positive interval disables it.
func every(interval time.Duration, fn func()) (stop func()) {
	if interval <= 0 || fn == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
