// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality.
type Event int

const (
	// BeforeSend identifies the event that occurs just before the HTTP
	// request is handed to the agent.
	//
	// When Client fires BeforeSend, the execution's options are final
	// and its request field is set to the HTTP request that WILL BE
	// sent. Handlers should not modify the request; use the
	// BeforeRequest hook in request.Options to change a request.
	BeforeSend Event = iota
	// AfterConnect identifies the event that occurs when the request
	// obtains a connection, either freshly dialed or reused from the
	// pool, and the connect deadline is armed.
	//
	// AfterConnect handlers may run on a goroutine other than the one
	// that called Client.Do.
	AfterConnect
	// AfterConnectTimeout identifies the event that occurs after the
	// request failed because the connect deadline expired.
	//
	// When Client fires AfterConnectTimeout, the execution's error
	// field is set to the timeout error.
	AfterConnectTimeout
	// AfterRequestError identifies the event that occurs after the
	// request failed before a response was received, for any reason,
	// including a connect timeout.
	AfterRequestError
	// AfterResponse identifies the event that occurs after response
	// headers were received and the read deadline armed, but before
	// any of the body is read.
	AfterResponse
	// BeforeReadBody identifies the event that occurs just before the
	// response body is read, either buffered by Response.ReadBody or
	// streamed by Response.Stream.
	BeforeReadBody
	// BeforeStream identifies the event that occurs just before the
	// response body is framed into server-sent events. The read
	// deadline has been cancelled.
	BeforeStream
	// AfterServerEvent identifies the event that occurs each time a
	// server-sent event is delivered. The execution's event counter
	// has been incremented.
	AfterServerEvent
	// AfterReadTimeout identifies the event that occurs after a body
	// read failed because the read deadline expired or was already
	// gone.
	AfterReadTimeout
	// AfterReadBody identifies the event that occurs when consumption
	// of the response body ends, whether it ended successfully, in
	// error, or because the response was closed.
	//
	// When Client fires AfterReadBody, the execution's end time is set.
	AfterReadBody
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeSend",
	"AfterConnect",
	"AfterConnectTimeout",
	"AfterRequestError",
	"AfterResponse",
	"BeforeReadBody",
	"BeforeStream",
	"AfterServerEvent",
	"AfterReadTimeout",
	"AfterReadBody",
}

// Events returns a slice containing all events which can occur while
// Client makes a request and its response is consumed, in the order in
// which they would occur.
func Events() []Event {
	return []Event{
		BeforeSend,
		AfterConnect,
		AfterConnectTimeout,
		AfterRequestError,
		AfterResponse,
		BeforeReadBody,
		BeforeStream,
		AfterServerEvent,
		AfterReadTimeout,
		AfterReadBody,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
