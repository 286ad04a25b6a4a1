package monitoring

import (
	"bytes"
	"io"
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Writer returns an io.Writer that forwards each complete line written to
// it through Logf with the given tag. It lets stream loggers that want a
// writer share the process logger. Partial lines are held until their
// newline arrives.
func Writer(tag string) io.Writer {
	return &lineWriter{tag: tag}
}

type lineWriter struct {
	mu  sync.Mutex
	tag string
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// No newline yet: put the fragment back.
			w.buf.Write(line)
			return len(p), nil
		}
		Logf("%s%s", w.tag, bytes.TrimRight(line, "\n"))
	}
}
