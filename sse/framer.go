// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sse

import (
	"bytes"
	"io"
	"sync"
)

const chunkSize = 4096

// An Option configures a Framer.
type Option func(f *Framer)

// WithHook installs a function called with every event just before
// Next returns it.
func WithHook(hook func(Event)) Option {
	return func(f *Framer) {
		f.hook = hook
	}
}

// WithChunkSize sets how many bytes the Framer asks for on each read
// from the underlying stream. Values less than one are ignored.
func WithChunkSize(n int) Option {
	return func(f *Framer) {
		if n > 0 {
			f.chunk = make([]byte, n)
		}
	}
}

// A Framer turns a byte stream into a finite, non-restartable sequence
// of events. A Framer is not safe for concurrent use by multiple
// goroutines, except that Close may be called at any time to abandon
// the stream and unblock a pending Next.
type Framer struct {
	r       io.Reader
	chunk   []byte
	buf     []byte
	scan    int
	pending []Event
	err     error
	hook    func(Event)

	closeOnce sync.Once
	closeErr  error
}

// NewFramer returns a Framer reading from r. If r is an io.Closer,
// Close closes it.
func NewFramer(r io.Reader, opts ...Option) *Framer {
	f := &Framer{r: r}
	for _, opt := range opts {
		opt(f)
	}
	if f.chunk == nil {
		f.chunk = make([]byte, chunkSize)
	}
	return f
}

// Next returns the next event. It blocks until a complete frame has
// been read or the stream ends. At the end of the stream Next returns
// io.EOF; any other error is from the underlying stream. Once Next has
// returned an error, it returns the same error forever.
func (f *Framer) Next() (Event, error) {
	for {
		if len(f.pending) > 0 {
			ev := f.pending[0]
			f.pending = f.pending[1:]
			if f.hook != nil {
				f.hook(ev)
			}
			return ev, nil
		}
		if f.err != nil {
			return Event{}, f.err
		}
		n, err := f.r.Read(f.chunk)
		if n > 0 {
			f.feed(f.chunk[:n])
		}
		if err != nil {
			f.err = err
			f.buf = nil
		}
	}
}

// Buffered returns the number of bytes read but not yet framed.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Close releases the underlying stream. It is safe to call more than
// once and from another goroutine than the one calling Next.
func (f *Framer) Close() error {
	f.closeOnce.Do(func() {
		if c, ok := f.r.(io.Closer); ok {
			f.closeErr = c.Close()
		}
	})
	return f.closeErr
}

func (f *Framer) feed(p []byte) {
	f.buf = append(f.buf, p...)
	i := bytes.Index(f.buf[f.scan:], terminator)
	if i < 0 {
		f.scan = scanFrom(f.buf)
		return
	}
	end := f.scan + i
	f.pending = append(f.pending, Parse(f.buf[:end]))
	frames, rest := Split(f.buf[end+len(terminator):])
	for _, frame := range frames {
		f.pending = append(f.pending, Parse(frame))
	}
	f.buf = append(f.buf[:0], rest...)
	f.scan = scanFrom(f.buf)
}

// scanFrom returns the offset where the next terminator search must
// begin. Only a trailing newline can start a terminator that a later
// chunk completes.
func scanFrom(buf []byte) int {
	if n := len(buf); n > 0 && buf[n-1] == '\n' {
		return n - 1
	}
	return len(buf)
}
