package logger

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
)

// asyncWriter hands formatted lines to a single goroutine that writes them
// to every sink. The first write error sticks and is returned from then on.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	close   sync.Once
	out     *bufio.Writer
	err     atomic.Pointer[error]
}

func newAsyncWriter(sinks []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	live := make([]io.Writer, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
		out:     bufio.NewWriterSize(io.MultiWriter(live...), bufSize),
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.fail(w.out.Flush())
				return
			}
			w.write(line)
			// Lines reach the sinks promptly unless a burst is queued.
			if len(w.lines) == 0 {
				w.fail(w.out.Flush())
			}
		case ack := <-w.flushes:
			for len(w.lines) > 0 {
				w.write(<-w.lines)
			}
			err := w.out.Flush()
			w.fail(err)
			ack <- err
		}
	}
}

func (w *asyncWriter) write(line []byte) {
	if _, err := w.out.Write(line); err != nil {
		w.fail(err)
	}
}

// Write queues a copy of p. A full queue blocks rather than dropping lines.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every queued line has been written.
func (w *asyncWriter) Flush() error {
	if err := w.Err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.stopped:
		return w.Err()
	}
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.close.Do(func() { close(w.lines) })
	<-w.stopped
	return w.Err()
}

// Err reports the first write error.
func (w *asyncWriter) Err() error {
	if p := w.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (w *asyncWriter) fail(err error) {
	if err != nil {
		w.err.CompareAndSwap(nil, &err)
	}
}
