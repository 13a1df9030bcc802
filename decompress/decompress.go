// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package decompress wraps a response body in a transparent decoder
// chosen by the response's Content-Encoding header value.
//
// Encoding "gzip" selects a gzip decoder and "deflate" selects a zlib
// inflater. Any other value, including the empty string, passes the
// body through untouched. The choice is made once, when the reader is
// constructed; the decoder itself is created lazily on the first Read,
// so constructing the reader never blocks on the network.
package decompress

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Encoding values recognized by NewReader.
const (
	Gzip    = "gzip"
	Deflate = "deflate"
)

// Supported reports whether NewReader decodes the given Content-Encoding
// value rather than passing it through.
func Supported(encoding string) bool {
	switch normalize(encoding) {
	case Gzip, Deflate:
		return true
	default:
		return false
	}
}

// NewReader returns a reader that decodes body according to encoding.
// Closing the returned reader closes body.
func NewReader(encoding string, body io.ReadCloser) io.ReadCloser {
	switch normalize(encoding) {
	case Gzip:
		return &lazyReader{body: body, open: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		}}
	case Deflate:
		return &lazyReader{body: body, open: zlib.NewReader}
	default:
		return body
	}
}

func normalize(encoding string) string {
	return strings.ToLower(strings.TrimSpace(encoding))
}

type lazyReader struct {
	body io.ReadCloser
	open func(io.Reader) (io.ReadCloser, error)
	dec  io.ReadCloser
	err  error
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.dec == nil {
		dec, err := l.open(l.body)
		if err != nil {
			l.err = err
			return 0, err
		}
		l.dec = dec
	}
	return l.dec.Read(p)
}

func (l *lazyReader) Close() error {
	if l.dec != nil {
		_ = l.dec.Close()
	}
	return l.body.Close()
}
