// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/gogama/timedhttp/deadline"
	"github.com/gogama/timedhttp/transient"
	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "TransportError", Transport.String())
	assert.Equal(t, "ConnectTimeoutError", ConnectTimeout.String())
	assert.Equal(t, "ReadTimeoutError", ReadTimeout.String())
	assert.Equal(t, "StreamError", Stream.String())
	assert.Equal(t, "Kind(?)", Kind(-1).String())
	assert.Equal(t, "Kind(?)", Kind(99).String())
}

func TestError(t *testing.T) {
	cause := errors.New("cause")
	testCases := []struct {
		name     string
		err      *Error
		message  string
		timeout  bool
		category transient.Category
	}{
		{
			name: "connect timeout",
			err: &Error{
				Kind:   ConnectTimeout,
				Phase:  deadline.Connect,
				Limit:  250 * time.Millisecond,
				Method: "GET",
				URL:    "http://example.com/a?b=c",
				Path:   "/a?b=c",
			},
			message:  "ReadTimeout(250). GET http://example.com/a?b=c failed.",
			timeout:  true,
			category: transient.Timeout,
		},
		{
			name: "read timeout",
			err: &Error{
				Kind:   ReadTimeout,
				Phase:  deadline.Read,
				Limit:  3 * time.Second,
				Method: "POST",
				URL:    "http://example.com/a?b=c",
				Path:   "/a?b=c",
			},
			message:  "ReadTimeout: 3000. POST /a?b=c failed.",
			timeout:  true,
			category: transient.Timeout,
		},
		{
			name: "stream",
			err: &Error{
				Kind:   Stream,
				Method: "PUT",
				URL:    "https://example.com/",
				Err:    cause,
			},
			message:  "Stream occor error. cause. PUT https://example.com/ failed.",
			category: transient.Not,
		},
		{
			name: "transport",
			err: &Error{
				Kind:   Transport,
				Method: "GET",
				URL:    "http://localhost:1/",
				Err:    syscall.ECONNREFUSED,
			},
			message:  "connection refused. GET http://localhost:1/ failed.",
			category: transient.ConnRefused,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.EqualError(t, testCase.err, testCase.message)
			assert.Equal(t, testCase.timeout, testCase.err.Timeout())
			assert.Equal(t, testCase.category, transient.Categorize(testCase.err))
			assert.Equal(t, testCase.err.Err, testCase.err.Unwrap())
		})
	}

	t.Run("errors.Is", func(t *testing.T) {
		err := error(&Error{Kind: Stream, Err: cause})
		assert.ErrorIs(t, err, cause)
	})
}
