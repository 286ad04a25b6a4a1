package trigger

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger

	// Out-of-order and unconnected inputs can arrive at the full TP rate.
	anomalyLimiter    = rate.NewLimiter(rate.Every(time.Second), 10)
	anomalySuppressed atomic.Uint64
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("[trigger] ", w.Ops)
	diagLogger = newLogger("[trigger] ", w.Diag)
	traceLogger = newLogger("[trigger] ", w.Trace)
}

// newLogger creates a *log.Logger for a given writer, or returns nil if w is nil.
func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream (configuration failures, anomalies, lifecycle events).
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream (emitted objects, window decisions).
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream (per-primitive detail).
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Anomalyf logs a recoverable stream anomaly to the ops stream, limited to
// a burst of 10 lines and then one per second. Suppressed lines are counted
// and reported with the next line that gets through.
func Anomalyf(format string, args ...interface{}) {
	if !anomalyLimiter.Allow() {
		anomalySuppressed.Add(1)
		return
	}
	if n := anomalySuppressed.Swap(0); n > 0 {
		Opsf("%d anomaly lines suppressed", n)
	}
	Opsf(format, args...)
}
