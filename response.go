// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogama/timedhttp/request"
	"github.com/gogama/timedhttp/sse"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// A Response is the response to a request sent by Client.Do. Its body
// is consumed at most once, by exactly one of ReadBody, ReadString,
// Stream or Events. Any later attempt to consume it fails immediately
// with an *Error of kind ReadTimeout.
//
// A Response whose body is not going to be consumed should be closed
// to release its connection. If it is neither consumed nor closed, the
// read deadline eventually releases it.
type Response struct {
	Status     string // e.g. "200 OK"
	StatusCode int    // e.g. 200
	Proto      string // e.g. "HTTP/1.1"
	Header     http.Header

	// ContentLength is the length of the body as sent, or -1 if it is
	// unknown or the body is decoded from gzip or deflate.
	ContentLength int64

	// Execution describes how the request was made. It is the same
	// execution passed to event handlers.
	Execution *request.Execution

	a        *attempt
	body     io.ReadCloser
	consumed atomic.Bool
	endOnce  sync.Once
}

// ReadBody reads the whole response body, decoded according to its
// Content-Encoding, and returns it.
//
// The read is bounded by what remains of the read deadline armed when
// the headers arrived. If nothing remains, ReadBody fails at once with
// an *Error of kind ReadTimeout without touching the network. If the
// deadline expires during the read, the read is aborted and the same
// error is returned. Any other failure is an *Error of kind Stream. No
// data is returned with an error.
func (r *Response) ReadBody() ([]byte, error) {
	if err := r.claim(); err != nil {
		return nil, err
	}
	r.a.handlers.run(BeforeReadBody, r.Execution)
	b, err := io.ReadAll(r.body)
	if err != nil {
		return nil, r.end(r.a.cause(Stream, err))
	}
	r.Execution.Body = b
	r.logBody(b)
	return b, r.end(nil)
}

// ReadString reads the whole response body like ReadBody and decodes
// it to a string.
//
// The encoding may be "" or any WHATWG encoding label, such as "utf8",
// "utf-16le" or "windows-1252", or one of the aliases "utf16le",
// "ucs2", "latin1" and "binary". It may also be "hex" or "base64", in
// which case the body bytes are encoded rather than decoded. An unknown
// encoding is reported before the body is read.
func (r *Response) ReadString(enc string) (string, error) {
	decode, err := decoderFor(enc)
	if err != nil {
		return "", err
	}
	b, err := r.ReadBody()
	if err != nil {
		return "", err
	}
	s, err := decode(b)
	if err != nil {
		return "", r.a.newError(Stream, err)
	}
	return s, nil
}

// Stream returns the response body, decoded according to its
// Content-Encoding, for the caller to read incrementally. Reads are
// bounded by what remains of the read deadline, as with ReadBody, and
// read errors are *Error values. The caller must close the stream.
func (r *Response) Stream() (io.ReadCloser, error) {
	if err := r.claim(); err != nil {
		return nil, err
	}
	r.a.handlers.run(BeforeReadBody, r.Execution)
	return &bodyStream{r: r}, nil
}

// Events cancels the read deadline and returns a Framer that parses the
// response body as a stream of server-sent events. A server-sent event
// stream is long-lived, so it is not bounded by the read timeout.
// Instead, when ctx is done the body is closed and the Framer's Next
// returns an *Error of kind Stream wrapping the context's cause.
//
// The caller should close the Framer when it is done.
func (r *Response) Events(ctx context.Context) (*sse.Framer, error) {
	if !r.consumed.CompareAndSwap(false, true) {
		return nil, r.a.newError(ReadTimeout, nil)
	}
	if !r.a.stop() {
		return nil, r.end(r.a.cause(ReadTimeout, nil))
	}
	r.a.handlers.run(BeforeStream, r.Execution)
	es := &eventStream{r: r, ctx: ctx}
	es.stop = context.AfterFunc(ctx, es.abort)
	return sse.NewFramer(es, sse.WithHook(func(sse.Event) {
		r.Execution.Events++
		r.a.handlers.run(AfterServerEvent, r.Execution)
	})), nil
}

// Remaining returns what is left of the read deadline. It reports false
// once the deadline has expired or the body has been consumed or closed.
func (r *Response) Remaining() (time.Duration, bool) {
	return r.a.remaining()
}

// Close releases the response. If the body has not been consumed, the
// read deadline is cancelled and the connection is closed rather than
// returned to the pool. Close is safe to call more than once, and after
// the body has been consumed.
func (r *Response) Close() error {
	if r.consumed.CompareAndSwap(false, true) {
		r.a.stop()
		return r.end(nil)
	}
	return nil
}

// claim takes ownership of the body and extends the read deadline over
// the remaining budget.
func (r *Response) claim() error {
	if !r.consumed.CompareAndSwap(false, true) {
		return r.a.newError(ReadTimeout, nil)
	}
	if !r.a.rearm() {
		return r.end(r.a.cause(ReadTimeout, nil))
	}
	return nil
}

// end finishes consuming the body. It stops the read deadline, closes
// the body, releases the request context and fires the closing events.
// It returns err, recorded on the execution.
func (r *Response) end(err *Error) error {
	r.endOnce.Do(func() {
		r.a.stop()
		_ = r.body.Close()
		e := r.Execution
		e.End = time.Now()
		if err != nil {
			r.a.cancel(err)
			e.Err = err
			e.Phase = err.Phase
			if err.Kind == ReadTimeout {
				r.a.handlers.run(AfterReadTimeout, e)
			}
			r.a.logger.Debug("response body failed", "request_id", e.ID, "err", err)
		} else {
			r.a.cancel(context.Canceled)
		}
		r.a.handlers.run(AfterReadBody, e)
	})
	if err == nil {
		return nil
	}
	return err
}

func (r *Response) logBody(b []byte) {
	if !r.a.debug() {
		return
	}
	r.a.logger.Debug(string(b), slog.String("request_id", r.Execution.ID), slog.Int("length", len(b)))
}

type bodyStream struct {
	r   *Response
	eof bool
}

func (s *bodyStream) Read(p []byte) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	n, err := s.r.body.Read(p)
	if err == io.EOF {
		s.eof = true
		_ = s.r.end(nil)
	} else if err != nil {
		return n, s.r.end(s.r.a.cause(Stream, err))
	}
	return n, err
}

func (s *bodyStream) Close() error {
	_ = s.r.end(nil)
	return nil
}

type eventStream struct {
	r    *Response
	ctx  context.Context
	stop func() bool
	once sync.Once
}

func (s *eventStream) Read(p []byte) (int, error) {
	n, err := s.r.body.Read(p)
	if err == io.EOF {
		s.stop()
		_ = s.r.end(nil)
	} else if err != nil {
		cause := err
		if s.ctx.Err() != nil {
			cause = context.Cause(s.ctx)
		}
		s.stop()
		return n, s.r.end(s.r.a.newError(Stream, cause))
	}
	return n, err
}

func (s *eventStream) Close() error {
	s.stop()
	s.abort()
	return nil
}

func (s *eventStream) abort() {
	s.once.Do(func() {
		_ = s.r.end(nil)
	})
}

func decoderFor(enc string) (func([]byte) (string, error), error) {
	name := strings.ToLower(strings.TrimSpace(enc))
	switch name {
	case "", "utf8", "utf-8":
		return func(b []byte) (string, error) { return string(b), nil }, nil
	case "hex":
		return func(b []byte) (string, error) { return hex.EncodeToString(b), nil }, nil
	case "base64":
		return func(b []byte) (string, error) { return base64.StdEncoding.EncodeToString(b), nil }, nil
	case "latin1", "binary":
		return decodeWith(charmap.ISO8859_1), nil
	case "utf16le", "ucs2", "ucs-2":
		name = "utf-16le"
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("timedhttp: unknown encoding %q", enc)
	}
	return decodeWith(e), nil
}

func decodeWith(e encoding.Encoding) func([]byte) (string, error) {
	return func(b []byte) (string, error) {
		out, err := e.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
