package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineWriter serializes log lines onto its outputs from one goroutine.
// Output is buffered and flushed whenever the queue runs dry.
type lineWriter struct {
	ops  chan writeOp
	done chan struct{}

	mu     sync.RWMutex // guards closed against sends on ops
	closed bool

	errMu sync.Mutex
	err   error
}

// writeOp is a line to write, or a flush request when ack is set.
type writeOp struct {
	line []byte
	ack  chan error
}

func newLineWriter(outputs ...io.Writer) *lineWriter {
	bufs := make([]*bufio.Writer, 0, len(outputs))
	for _, o := range outputs {
		if o != nil {
			bufs = append(bufs, bufio.NewWriterSize(o, 64<<10))
		}
	}
	w := &lineWriter{ops: make(chan writeOp, 256), done: make(chan struct{})}
	go w.run(bufs)
	return w
}

func (w *lineWriter) run(bufs []*bufio.Writer) {
	defer close(w.done)
	flush := func() error {
		var errs []error
		for _, b := range bufs {
			errs = append(errs, b.Flush())
		}
		return errors.Join(errs...)
	}
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- flush()
			continue
		}
		for _, b := range bufs {
			if _, err := b.Write(op.line); err != nil {
				w.fail(err)
			}
		}
		if len(w.ops) == 0 {
			w.fail(flush())
		}
	}
	w.fail(flush())
}

// Write queues a copy of p. It blocks while the queue is full.
func (w *lineWriter) Write(p []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.send(writeOp{line: append([]byte(nil), p...)})
}

// Flush returns once every line queued before it reached the outputs.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	if err := w.send(writeOp{ack: ack}); err != nil {
		return err
	}
	return <-ack
}

// Close drains the queue. Later writes fail with errWriterClosed.
func (w *lineWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.mu.Unlock()
	<-w.done
	return w.Err()
}

// Err returns the first output error seen.
func (w *lineWriter) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *lineWriter) send(op writeOp) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.ops <- op
	return nil
}

func (w *lineWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}
