// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

const (
	nilCtxMsg = "timedhttp/request: nil context"
)

// An Agent sends HTTP requests over connections it manages. It has the
// same Do contract as the GoLang standard library http.Client.
//
// Package pool provides the Agent implementation whose connections
// carry phase deadlines. Any other Agent still works, but its
// connections are not shared-state aware, so the client falls back to
// per-request deadline tracking.
type Agent interface {
	Do(r *http.Request) (*http.Response, error)
}

// Options describes one HTTP request together with the timeout,
// connection and body policy to apply while making it.
//
// Options fields are named and typed consistently with http.Request
// wherever possible. The zero value of every timeout field means
// "unset"; see package timeout for how unset timeouts are resolved.
type Options struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.). An
	// empty string means GET. The method is upper-cased before the
	// request is sent.
	Method string

	// URL specifies the URL to access. An empty host means localhost.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent. Keys are
	// case-insensitive.
	Header http.Header

	// Body is the request body. It may be nil (no body), a string, a
	// []byte, or an io.Reader. A string or []byte is sent as a single
	// fixed-length body; an io.Reader is streamed incrementally, and a
	// read error from it aborts the request.
	Body interface{}

	// Timeout, if set, is used for both ConnectTimeout and ReadTimeout
	// unless either of those is set explicitly.
	Timeout time.Duration

	// ConnectTimeout bounds the time from obtaining a connection until
	// the response headers arrive.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the time from the response headers arriving
	// until the response body is fully read.
	ReadTimeout time.Duration

	// Agent overrides the connection pool used to send the request. If
	// nil, the client picks its pool by URL scheme.
	Agent Agent

	// VerifyTLS, if non-nil, overrides TLS certificate verification.
	// It only affects https requests.
	VerifyTLS *bool

	// Compression asks the server for a gzip or deflate encoded
	// response by sending an Accept-Encoding header.
	Compression bool

	// BeforeRequest, if set, is called with the finalized options just
	// before the request is sent. It may change any field. The hook sees
	// ConnectTimeout and ReadTimeout already resolved; if it changes only
	// Timeout, and neither phase timeout was set by the caller, both
	// phases are resolved again from the new Timeout.
	BeforeRequest func(o *Options)

	ctx context.Context
}

// New wraps NewWithContext using the background context.
func New(method, url string, body interface{}) (*Options, error) {
	return NewWithContext(context.Background(), method, url, body)
}

// NewWithContext returns new request options given a method, URL, and
// optional body.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, or io.Reader. Unlike a string or []byte, an io.Reader is not
// buffered; it is streamed to the server when the request is sent.
func NewWithContext(ctx context.Context, method, url string, body interface{}) (*Options, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("timedhttp/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	if _, err = Classify(body); err != nil {
		return nil, err
	}
	return &Options{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   body,
	}, nil
}

// Context returns the options' context. The context controls
// cancellation of the whole request, including the body read.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (o *Options) Context() context.Context {
	if o.ctx != nil {
		return o.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of o with its context changed to
// ctx, which must be non-nil.
func (o *Options) WithContext(ctx context.Context) *Options {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	o2 := new(Options)
	*o2 = *o
	o2.ctx = ctx
	return o2
}

// Clone returns a copy of o whose URL and Header can be changed
// without affecting o.
func (o *Options) Clone() *Options {
	o2 := new(Options)
	*o2 = *o
	if o.URL != nil {
		u := *o.URL
		o2.URL = &u
	}
	o2.Header = o.Header.Clone()
	if o2.Header == nil {
		o2.Header = make(http.Header)
	}
	if o.VerifyTLS != nil {
		v := *o.VerifyTLS
		o2.VerifyTLS = &v
	}
	return o2
}

// Secure reports whether the options target an https URL.
func (o *Options) Secure() bool {
	return o.URL != nil && strings.EqualFold(o.URL.Scheme, "https")
}

// Target returns the URL the request is actually sent to: the scheme
// defaults to http, the host to localhost and the path to "/".
func (o *Options) Target() *urlpkg.URL {
	var u urlpkg.URL
	if o.URL != nil {
		u = *o.URL
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host == "" {
		u.Host = "localhost"
	}
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return &u
}

// Addr returns the host:port the request connects to. The port
// defaults to 80 or 443 depending on scheme.
func (o *Options) Addr() string {
	u := o.Target()
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return joinHostPort(host, port)
}

// Validate checks the method, the URL and every header name and value.
func (o *Options) Validate() error {
	if o.URL == nil {
		return errors.New("timedhttp/request: nil URL")
	}
	if !validMethod(o.Method) {
		return fmt.Errorf("timedhttp/request: invalid method %q", o.Method)
	}
	for k, vs := range o.Header {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("timedhttp/request: invalid header field name %q", k)
		}
		for _, v := range vs {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("timedhttp/request: invalid header field value for %q", k)
			}
		}
	}
	_, err := Classify(o.Body)
	return err
}

func validMethod(method string) bool {
	/*
	     Method         = "OPTIONS"                ; Section 9.2
	                    | "GET"                    ; Section 9.3
	                    | "HEAD"                   ; Section 9.4
	                    | "POST"                   ; Section 9.5
	                    | "PUT"                    ; Section 9.6
	                    | "DELETE"                 ; Section 9.7
	                    | "TRACE"                  ; Section 9.8
	                    | "CONNECT"                ; Section 9.9
	                    | extension-method
	   extension-method = token
	     token          = 1*<any CHAR except CTLs or separators>

	   The empty string is interpreted as "GET".
	*/
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

func joinHostPort(host, port string) string {
	if strings.IndexByte(host, ':') >= 0 {
		return "[" + host + "]:" + port
	}
	return host + ":" + port
}
