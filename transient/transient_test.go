// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		cat  Category
	}{
		{"nil", nil, Not},
		{"plain", errors.New("foo"), Not},
		{"empty wrapper", wrapper{}, Not},
		{"wrapped plain", wrapper{errors.New("bar")}, Not},
		{"canceled", context.Canceled, Not},
		{"deadline exceeded", context.DeadlineExceeded, Timeout},
		{"ETIMEDOUT", syscall.ETIMEDOUT, Timeout},
		{"timeout", deadlineError{}, Timeout},
		{"url timeout", &url.Error{Op: "Get", Err: deadlineError{}}, Timeout},
		{"deep timeout", wrapper{wrapper{&url.Error{Err: syscall.ETIMEDOUT}}}, Timeout},
		{"timeout outranks errno", timeoutWrapper{true, syscall.ECONNRESET}, Timeout},
		{"ECONNREFUSED", syscall.ECONNREFUSED, ConnRefused},
		{"non-timeout wrapper", &url.Error{Err: wrapper{timeoutWrapper{false, syscall.ECONNREFUSED}}}, ConnRefused},
		{"ECONNRESET", wrapper{syscall.ECONNRESET}, ConnReset},
		{"ECONNABORTED", fmt.Errorf("read: %w", syscall.ECONNABORTED), ConnAborted},
		{"EPIPE", &url.Error{Err: wrapper{syscall.EPIPE}}, BrokenPipe},
		{"other errno", syscall.ENOENT, Not},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.cat, Categorize(testCase.err))
			assert.Equal(t, testCase.cat != Not, Is(testCase.err))
		})
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "Not", Not.String())
	assert.Equal(t, "Timeout", Timeout.String())
	assert.Equal(t, "ConnRefused", ConnRefused.String())
	assert.Equal(t, "ConnReset", ConnReset.String())
	assert.Equal(t, "ConnAborted", ConnAborted.String())
	assert.Equal(t, "BrokenPipe", BrokenPipe.String())
	assert.Equal(t, "Category(?)", Category(-1).String())
	assert.Equal(t, "Category(?)", Category(len(categoryNames)).String())
}

type deadlineError struct{}

func (deadlineError) Error() string { return "deadline" }
func (deadlineError) Timeout() bool { return true }

type wrapper struct {
	wrappedError error
}

func (err wrapper) Error() string {
	return fmt.Sprintf("wrapper - wraps %v", err.wrappedError)
}

func (err wrapper) Unwrap() error {
	return err.wrappedError
}

type timeoutWrapper struct {
	timeout      bool
	wrappedError error
}

func (err timeoutWrapper) Error() string {
	return fmt.Sprintf("timeoutWrapper - timeout %t, wraps %v", err.timeout, err.wrappedError)
}

func (err timeoutWrapper) Timeout() bool {
	return err.timeout
}

func (err timeoutWrapper) Unwrap() error {
	return err.wrappedError
}
