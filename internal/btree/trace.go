package btree

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Tracer is a sink for structural trace lines. A nil *Tracer discards
// everything.
type Tracer struct {
	w      io.Writer
	closer io.Closer
	mu     sync.Mutex
}

func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// NewFileTracer truncates or creates the file at path and traces into it.
func NewFileTracer(path string) (*Tracer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Tracer{w: f, closer: f}, nil
}

func (tr *Tracer) Printf(format string, args ...any) error {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.w == nil {
		return nil
	}
	_, err := fmt.Fprintf(tr.w, format, args...)
	return err
}

// Close stops tracing and closes the underlying file, if the tracer owns one.
func (tr *Tracer) Close() error {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.w = nil
	if tr.closer == nil {
		return nil
	}
	err := tr.closer.Close()
	tr.closer = nil
	return err
}

func (t *Tree) trace(format string, args ...any) {
	if err := t.tracer.Printf(format, args...); err != nil {
		t.logger.Sugar().With("error", err).Warn("trace write failed")
	}
}

func (t *Tree) visit(pageID PageID) {
	t.trace("VISIT node %d\n", pageID)
}
