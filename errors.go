// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

import (
	"fmt"
	"time"

	"github.com/gogama/timedhttp/deadline"
)

// StreamErrorMarker starts the message of every Stream error.
const StreamErrorMarker = "Stream occor error"

// A Kind classifies an Error.
type Kind int

const (
	// Transport means the request failed below HTTP: the connection
	// could not be made, was reset, or the request was cancelled.
	Transport Kind = iota
	// ConnectTimeout means the connect deadline expired before the
	// response headers arrived.
	ConnectTimeout
	// ReadTimeout means the read deadline expired, or had already
	// expired or been consumed, before the response body ended.
	ReadTimeout
	// Stream means a body stream failed: either the request body
	// source returned an error, or the response body could not be
	// read or decoded.
	Stream
)

var kindNames = []string{
	"TransportError",
	"ConnectTimeoutError",
	"ReadTimeoutError",
	"StreamError",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(?)"
	}
	return kindNames[k]
}

// An Error is the error returned by every Client and Response method
// that fails after the request is sent.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Phase is the phase the request was in when the error occurred.
	Phase deadline.Phase
	// Limit is the duration of the deadline that expired, for the
	// timeout kinds.
	Limit time.Duration
	// Method is the request method.
	Method string
	// URL is the request URL as given.
	URL string
	// Path is the request path and query.
	Path string
	// Err is the underlying cause. It is nil for the timeout kinds.
	Err error
}

func (err *Error) Error() string {
	switch err.Kind {
	case ConnectTimeout:
		return fmt.Sprintf("ReadTimeout(%d). %s %s failed.", err.Limit.Milliseconds(), err.Method, err.URL)
	case ReadTimeout:
		return fmt.Sprintf("ReadTimeout: %d. %s %s failed.", err.Limit.Milliseconds(), err.Method, err.Path)
	case Stream:
		return fmt.Sprintf("%s. %v. %s %s failed.", StreamErrorMarker, err.Err, err.Method, err.URL)
	default:
		return fmt.Sprintf("%v. %s %s failed.", err.Err, err.Method, err.URL)
	}
}

// Timeout reports whether the error is a connect or read timeout.
func (err *Error) Timeout() bool {
	return err.Kind == ConnectTimeout || err.Kind == ReadTimeout
}

// Unwrap returns the underlying cause, if any.
func (err *Error) Unwrap() error {
	return err.Err
}
