// File: internal/browser/context.go
package browser

import "context"

// CombineContext derives a context that is canceled as soon as either input
// context is done. Values and deadline come from the primary context; the
// secondary context only contributes cancellation. Callers must invoke the
// returned cancel to release the bridging goroutine.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
