// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"syscall"
)

// A Category says why a request failed in a way that may not recur,
// as reported by Categorize.
//
// Not means the failure is not transient: repeating the request is
// unlikely to help. Every other category names a transient failure.
// The client itself never repeats a request, so categories are for
// callers that do, and for metrics.
type Category int

const (
	// Not indicates any non-transient error, and a nil error.
	Not Category = iota
	// Timeout indicates a connect or read deadline expired, or some
	// other error in the chain reports Timeout() true.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). A service that is restarting refuses
	// connections until it listens again.
	ConnRefused
	// ConnReset indicates the remote host reset an established
	// connection (syscall.ECONNRESET), often a load balancer or a
	// service going down mid-response.
	ConnReset
	// ConnAborted indicates the local stack aborted the connection
	// (syscall.ECONNABORTED).
	ConnAborted
	// BrokenPipe indicates the remote host closed the connection while
	// the request was still being written, typically while a streaming
	// request body was piped (syscall.EPIPE).
	BrokenPipe
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"ConnAborted",
	"BrokenPipe",
}

var errnoCategories = map[syscall.Errno]Category{
	syscall.ECONNREFUSED: ConnRefused,
	syscall.ECONNRESET:   ConnReset,
	syscall.ECONNABORTED: ConnAborted,
	syscall.EPIPE:        BrokenPipe,
}

// String returns the name of the category.
func (cat Category) String() string {
	if cat < 0 || int(cat) >= len(categoryNames) {
		return "Category(?)"
	}
	return categoryNames[cat]
}

// Categorize returns the transience category of err.
//
// Categorize looks through the whole chain of wrapped errors. The
// first error in the chain with a Timeout method decides whether err
// is a Timeout; an *Error from package timedhttp has one, reporting
// true for its timeout kinds. Otherwise the first syscall.Errno in the
// chain decides. Temporary() is never consulted.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var ht hasTimeout
	if errors.As(err, &ht) && ht.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if cat, ok := errnoCategories[errno]; ok {
			return cat
		}
	}

	return Not
}

// Is reports whether err is transient, that is whether its category is
// anything other than Not.
func Is(err error) bool {
	return Categorize(err) != Not
}

type hasTimeout interface {
	Timeout() bool
}
