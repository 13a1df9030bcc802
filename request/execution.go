// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/timedhttp/deadline"
	"github.com/gogama/timedhttp/transient"
	"github.com/google/uuid"
)

// An Execution represents the state of a single request made with a
// set of Options, from dispatch until the response body is consumed.
//
// Event handlers receive the Execution at each event and may store
// their own data in it with SetValue. They should treat the exported
// fields as read-only.
type Execution struct {
	// ID uniquely identifies the execution. It is assigned when the
	// execution is created and is used to correlate log lines.
	ID string

	// Options are the finalized request options: timeouts resolved,
	// agent selected and the BeforeRequest hook already applied.
	Options *Options

	// Start is the time the request was dispatched.
	Start time.Time

	// Connected is the time a connection was obtained and the connect
	// deadline armed. It is zero if no connection was obtained.
	Connected time.Time

	// Responded is the time the response headers arrived. It is zero
	// if no response was received.
	Responded time.Time

	// End is the time the execution ended: the body was consumed or
	// closed, or the request failed.
	End time.Time

	// ConnReused reports whether the connection came from the idle
	// pool rather than being freshly dialed.
	ConnReused bool

	// Phase is the phase whose deadline is currently armed, or the
	// phase the execution was in when it ended in error.
	Phase deadline.Phase

	// Request is the HTTP request sent.
	Request *http.Request

	// Response is the HTTP response received. Its Body must not be
	// read directly by handlers.
	Response *http.Response

	// Err is the error the execution ended with, if any.
	Err error

	// Body is the buffered response body after a successful full read.
	Body []byte

	// Events counts the server-sent events delivered so far.
	Events int

	data context.Context
}

// NewExecution returns an execution for o with a fresh ID.
func NewExecution(o *Options) *Execution {
	return &Execution{
		ID:      uuid.NewString(),
		Options: o,
	}
}

// StatusCode returns the status code of the HTTP response, or 0 if
// there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers, or the nil header if
// there is no response.
//
// Note that a nil return value is always safe for read-only operations,
// since http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// ConnectDuration returns the time spent in the connect phase, from
// obtaining a connection until the response headers arrived. It is
// zero unless both happened.
func (e *Execution) ConnectDuration() time.Duration {
	if e.Connected.IsZero() || e.Responded.IsZero() {
		return 0
	}
	return e.Responded.Sub(e.Connected)
}

// ReadDuration returns the time spent in the read phase. It is zero
// until the execution has both a response and an end.
func (e *Execution) ReadDuration() time.Duration {
	if e.Responded.IsZero() || !e.Ended() {
		return 0
	}
	return e.End.Sub(e.Responded)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a timeout.
func (e *Execution) Timeout() bool {
	cat := transient.Categorize(e.Err)
	return cat == transient.Timeout
}

// Transient indicates whether Err is a failure that may not recur if
// the request is made again. See package transient.
func (e *Execution) Transient() bool {
	return transient.Is(e.Err)
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same request execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
