// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sse

import (
	"bytes"
	"strconv"
	"strings"
)

// Field prefixes recognized within a frame.
const (
	DataPrefix    = "data:"
	EventPrefix   = "event:"
	IDPrefix      = "id:"
	RetryPrefix   = "retry:"
	CommentPrefix = ":"
)

var terminator = []byte("\n\n")

// An Event is one server-sent event. Every field is optional; the Has
// flags tell a field sent with an empty value from an absent one.
type Event struct {
	// ID is the value of the frame's id field.
	ID string
	// Event is the value of the frame's event field, the event name.
	Event string
	// Data is the value of the frame's data field.
	Data string
	// Retry is the reconnection time in milliseconds. It is only
	// meaningful if HasRetry is true.
	Retry int

	HasID    bool
	HasEvent bool
	HasData  bool
	// HasRetry reports whether the frame carried a valid retry field.
	HasRetry bool
}

// Parse parses the field lines of one frame. The frame should not
// include its terminating blank line.
func Parse(frame []byte) Event {
	var ev Event
	for _, line := range strings.Split(string(frame), "\n") {
		switch {
		case strings.HasPrefix(line, DataPrefix):
			ev.Data, ev.HasData = value(line, DataPrefix), true
		case strings.HasPrefix(line, EventPrefix):
			ev.Event, ev.HasEvent = value(line, EventPrefix), true
		case strings.HasPrefix(line, IDPrefix):
			ev.ID, ev.HasID = value(line, IDPrefix), true
		case strings.HasPrefix(line, RetryPrefix):
			raw := value(line, RetryPrefix)
			if digitsOnly(raw) {
				if n, err := strconv.Atoi(raw); err == nil {
					ev.Retry, ev.HasRetry = n, true
				}
			}
		case strings.HasPrefix(line, CommentPrefix):
			// Comment.
		}
	}
	return ev
}

// Split cuts every complete frame out of buf. It returns the frames,
// without their terminators, and the unterminated remainder. The
// returned slices alias buf.
func Split(buf []byte) (frames [][]byte, rest []byte) {
	start := 0
	for {
		i := bytes.Index(buf[start:], terminator)
		if i < 0 {
			return frames, buf[start:]
		}
		frames = append(frames, buf[start:start+i])
		start += i + len(terminator)
	}
}

func value(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
