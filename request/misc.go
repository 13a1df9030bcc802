// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
)

const badBodyTypeMsg = "timedhttp/request: invalid type (for body use nil, " +
	"string, []byte or io.Reader)"

// A BodyKind classifies a request body value.
type BodyKind int

const (
	// NoBody is a nil body, or an empty string or []byte.
	NoBody BodyKind = iota
	// FixedBody is a non-empty string or []byte, written in one piece.
	FixedBody
	// StreamBody is an io.Reader, piped to the server as it is read.
	StreamBody
)

// Classify reports how a generic body parameter will be sent.
//
// The body parameter may be nil, or it may be a string, []byte, or
// io.Reader. Any other type results in an error.
func Classify(body interface{}) (BodyKind, error) {
	switch x := body.(type) {
	case nil:
		return NoBody, nil
	case string:
		if x == "" {
			return NoBody, nil
		}
		return FixedBody, nil
	case []byte:
		if len(x) == 0 {
			return NoBody, nil
		}
		return FixedBody, nil
	case io.Reader:
		return StreamBody, nil
	default:
		return NoBody, errors.New(badBodyTypeMsg)
	}
}

// BodyBytes returns the bytes of a fixed body. It returns nil for an
// empty body or a streaming body.
func BodyBytes(body interface{}) []byte {
	switch x := body.(type) {
	case string:
		if x == "" {
			return nil
		}
		return []byte(x)
	case []byte:
		if len(x) == 0 {
			return nil
		}
		return x
	default:
		return nil
	}
}
