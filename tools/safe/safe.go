package safe

import (
	"runtime/debug"

	"TeamSync/logger"
)

// Go starts a goroutine that recovers from panic, so a faulty handler
// can never tear down the shared runtime.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v\n%s", r, debug.Stack())
			}
		}()
		f()
	}()
}

// Run invokes f inline with the same recover guard; used at event-handler
// boundaries where the caller must keep its read loop alive.
func Run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[safe.Run] panic recovered: %v\n%s", r, debug.Stack())
		}
	}()
	f()
}
