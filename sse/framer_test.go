// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sse

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader delivers its chunks one per Read call.
type chunkReader struct {
	chunks []string
	closed bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *chunkReader) Close() error {
	c.closed = true
	return nil
}

func drain(t *testing.T, f *Framer) []Event {
	var events []Event
	for {
		ev, err := f.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func fiveFrames() (string, []Event) {
	var b strings.Builder
	var want []Event
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "id: %d\nevent: tick\ndata: payload %d\nretry: %d\n\n", i, i, 1000+i)
		want = append(want, Event{
			ID:       fmt.Sprint(i),
			Event:    "tick",
			Data:     fmt.Sprintf("payload %d", i),
			Retry:    1000 + i,
			HasID:    true,
			HasEvent: true,
			HasData:  true,
			HasRetry: true,
		})
	}
	return b.String(), want
}

func data(s string) Event {
	return Event{Data: s, HasData: true}
}

func TestFramer(t *testing.T) {
	t.Run("five frames", testFramerFiveFrames)
	t.Run("one byte at a time", testFramerOneByte)
	t.Run("terminator split", testFramerTerminatorSplit)
	t.Run("every split point", testFramerEverySplit)
	t.Run("retry abc", testFramerRetryABC)
	t.Run("leftover discarded", testFramerLeftover)
	t.Run("multibyte split", testFramerMultibyte)
	t.Run("read error", testFramerReadError)
	t.Run("hook", testFramerHook)
	t.Run("close", testFramerClose)
}

func testFramerFiveFrames(t *testing.T) {
	wire, want := fiveFrames()
	f := NewFramer(strings.NewReader(wire))
	assert.Equal(t, want, drain(t, f))
	assert.Equal(t, 0, f.Buffered())
}

func testFramerOneByte(t *testing.T) {
	wire, want := fiveFrames()
	f := NewFramer(iotest.OneByteReader(strings.NewReader(wire)))
	assert.Equal(t, want, drain(t, f))
}

func testFramerTerminatorSplit(t *testing.T) {
	r := &chunkReader{chunks: []string{"data: one\n", "\ndata: two\n", "\n"}}
	f := NewFramer(r)
	assert.Equal(t, []Event{data("one"), data("two")}, drain(t, f))
}

func testFramerEverySplit(t *testing.T) {
	wire, want := fiveFrames()
	for i := 1; i < len(wire); i++ {
		r := &chunkReader{chunks: []string{wire[:i], wire[i:]}}
		f := NewFramer(r, WithChunkSize(7))
		require.Equal(t, want, drain(t, f), "split at %d", i)
	}
}

func testFramerRetryABC(t *testing.T) {
	f := NewFramer(strings.NewReader("data: x\nretry: abc\n\n"))
	events := drain(t, f)
	require.Len(t, events, 1)
	assert.False(t, events[0].HasRetry)
	assert.Equal(t, 0, events[0].Retry)
	assert.Equal(t, "x", events[0].Data)
}

func testFramerLeftover(t *testing.T) {
	f := NewFramer(strings.NewReader("data: done\n\ndata: partial\n"))
	assert.Equal(t, []Event{data("done")}, drain(t, f))
	_, err := f.Next()
	assert.Equal(t, io.EOF, err)
}

func testFramerMultibyte(t *testing.T) {
	wire := "data: héllo wörld ✓\n\n"
	i := strings.Index(wire, "✓") + 1
	r := &chunkReader{chunks: []string{wire[:i], wire[i:]}}
	f := NewFramer(r)
	assert.Equal(t, []Event{data("héllo wörld ✓")}, drain(t, f))
}

func testFramerReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("data: a\n\ndata: b"), iotest.ErrReader(boom))
	f := NewFramer(r)
	ev, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, data("a"), ev)
	_, err = f.Next()
	assert.Same(t, boom, err)
	_, err = f.Next()
	assert.Same(t, boom, err)
}

func testFramerHook(t *testing.T) {
	var seen []string
	wire, _ := fiveFrames()
	f := NewFramer(strings.NewReader(wire), WithHook(func(ev Event) {
		seen = append(seen, ev.ID)
	}))
	drain(t, f)
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, seen)
}

func testFramerClose(t *testing.T) {
	r := &chunkReader{}
	f := NewFramer(r)
	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	assert.True(t, r.closed)

	g := NewFramer(strings.NewReader(""))
	assert.NoError(t, g.Close())
}
