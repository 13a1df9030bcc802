// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package sse frames a server-sent event stream into discrete events.

A Framer reads from an open byte stream, accumulates the bytes, and
emits one Event for every frame terminated by a blank line ("\n\n").
Frames may be split across reads at any byte, including between the two
newlines of the terminator, and are still emitted exactly once.

	f := sse.NewFramer(body)
	defer f.Close()
	for {
		ev, err := f.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		fmt.Println(ev.Event, ev.Data)
	}

Within a frame, each line is a field. The recognized fields are "data:",
"event:", "id:" and "retry:"; whitespace around the value is trimmed. A
line starting with ":" is a comment. Any other line is ignored. When a
field repeats within one frame, the last value wins. A retry value is
kept only if it is one or more ASCII digits. The HasID, HasEvent,
HasData and HasRetry flags of an Event report which fields the frame
carried.

Bytes left over after the final terminator when the stream ends do not
form an event and are discarded.
*/
package sse
