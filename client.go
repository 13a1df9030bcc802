// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gogama/timedhttp/deadline"
	"github.com/gogama/timedhttp/decompress"
	"github.com/gogama/timedhttp/pool"
	"github.com/gogama/timedhttp/request"
	"github.com/gogama/timedhttp/timeout"
)

// AcceptEncoding is the Accept-Encoding header value sent when
// request.Options.Compression is set.
const AcceptEncoding = "gzip,deflate"

var (
	emptyHandlers = HandlerGroup{}
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// A Client is an HTTP client that bounds each request with two
// independent deadlines: a connect deadline, from obtaining a
// connection until the response headers arrive, and a read deadline,
// from the response headers until the body ends. Its zero value is a
// valid configuration.
//
// The zero value client uses pool.DefaultPlain for http requests,
// pool.DefaultTLS for https requests, timeout.DefaultPolicy as the
// timeout policy, an empty handler group, and discards log output.
//
// Client is safe for concurrent use by multiple goroutines.
//
// On top of sending the request, Client adds the following features:
//
// • Client returns as soon as the response headers arrive, leaving the
// body to be read, streamed or framed into server-sent events through
// the returned Response, still under the read deadline;
//
// • Client transparently decodes gzip and deflate response bodies;
//
// • Client invokes user-provided handler functions at designated plug-in
// points, allowing new features to be mixed in from outside libraries;
// and
//
// • Client implements the timedhttp.Executor interface.
//
// Client never retries. Every failure, including a timeout, is
// returned to the caller as an *Error.
type Client struct {
	// Pool is the agent used for http requests that do not set their
	// own agent.
	//
	// If Pool is nil, pool.DefaultPlain is used.
	Pool *pool.Pool
	// TLSPool is the agent used for https requests that do not set
	// their own agent.
	//
	// If TLSPool is nil, pool.DefaultTLS is used.
	TLSPool *pool.Pool
	// TimeoutPolicy decides the connect and read timeouts of each
	// request.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur while a request is made or its response
	// consumed.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives debug-level dumps of request and response
	// headers and bodies.
	//
	// If Logger is nil, nothing is logged.
	Logger *slog.Logger
}

// Do sends the request described by o and returns the response as soon
// as its headers arrive. The body is not read; use the Response's
// ReadBody, ReadString, Stream or Events method, or Close it.
//
// Do works on a copy of o. The copy has its timeouts resolved by the
// timeout policy, its method upper-cased, its agent selected and, if
// Compression is set, an Accept-Encoding header added. The BeforeRequest
// hook, if any, is then called with the copy and may change any field.
//
// The connect deadline is armed when the request obtains a connection.
// If it expires before the response headers arrive, the request is
// aborted and Do returns an *Error of kind ConnectTimeout. When the
// headers arrive, the connect deadline is replaced by a fresh read
// deadline for the full read timeout. If the read deadline expires
// before the body has been consumed, the request is aborted and any
// later read fails with an *Error of kind ReadTimeout.
//
// Any error returned after the request is sent is an *Error. A non-2XX
// status code does not result in an error.
func (c *Client) Do(o *request.Options) (*Response, error) {
	o, pair, agent := c.finalize(o)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	logger := c.logger()

	e := request.NewExecution(o)
	ctx, cancel := context.WithCancelCause(o.Context())
	a := &attempt{
		exec:     e,
		handlers: handlers,
		logger:   logger,
		pair:     pair,
		ctx:      ctx,
		cancel:   cancel,
		method:   o.Method,
		url:      o.URL.String(),
		path:     o.Target().RequestURI(),
	}

	body, err := a.requestBody(o.Body)
	if err != nil {
		cancel(nil)
		return nil, err
	}

	trace := &httptrace.ClientTrace{GotConn: a.gotConn}
	r, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), o.Method, o.Target().String(), body)
	if err != nil {
		cancel(nil)
		return nil, err
	}
	r.Header = o.Header
	if host := o.Header.Get("Host"); host != "" {
		r.Host = host
	}
	if _, ok := body.(*streamBody); ok {
		r.ContentLength = -1
	}
	e.Request = r

	handlers.run(BeforeSend, e)
	a.logRequest(r, o.Body)
	e.Start = time.Now()

	resp, err := agent.Do(r)
	if err != nil {
		return nil, a.fail(err)
	}

	if !a.beginRead() {
		_ = resp.Body.Close()
		a.cancel(a.newError(ConnectTimeout, nil))
		return nil, a.fail(context.DeadlineExceeded)
	}

	e.Responded = time.Now()
	e.Response = resp
	a.logResponse(resp)
	handlers.run(AfterResponse, e)

	encoding := resp.Header.Get("Content-Encoding")
	contentLength := resp.ContentLength
	if decompress.Supported(encoding) {
		contentLength = -1
	}
	return &Response{
		Status:        resp.Status,
		StatusCode:    resp.StatusCode,
		Proto:         resp.Proto,
		Header:        resp.Header,
		ContentLength: contentLength,
		Execution:     e,
		a:             a,
		body:          decompress.NewReader(encoding, resp.Body),
	}, nil
}

func (c *Client) finalize(o *request.Options) (*request.Options, timeout.Pair, request.Agent) {
	o = o.Clone()

	policy := c.TimeoutPolicy
	if policy == nil {
		policy = timeout.DefaultPolicy
	}
	explicit := timeout.Pair{Connect: o.ConnectTimeout, Read: o.ReadTimeout}
	pair := policy.Timeouts(o)
	o.ConnectTimeout, o.ReadTimeout = pair.Connect, pair.Read

	if o.Method == "" {
		o.Method = "GET"
	}
	o.Method = strings.ToUpper(o.Method)
	if o.Agent == nil {
		o.Agent = c.pool(o.Secure())
	}
	if o.Compression {
		o.Header.Set("Accept-Encoding", AcceptEncoding)
	}

	if o.BeforeRequest != nil {
		before := o.Timeout
		o.BeforeRequest(o)
		if o.Header == nil {
			o.Header = make(http.Header)
		}
		if explicit == (timeout.Pair{}) && o.Timeout != before &&
			o.ConnectTimeout == pair.Connect && o.ReadTimeout == pair.Read {
			// Only Timeout changed; re-derive both phases from it.
			pair = timeout.Resolve(o.Timeout, 0, 0)
		} else {
			pair = timeout.Resolve(o.Timeout, o.ConnectTimeout, o.ReadTimeout)
		}
		o.ConnectTimeout, o.ReadTimeout = pair.Connect, pair.Read
	}

	agent := o.Agent
	if o.Secure() && o.VerifyTLS != nil && !*o.VerifyTLS {
		if p, ok := agent.(*pool.Pool); ok {
			agent = p.Insecure()
		}
	}
	return o, pair, agent
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
//
// To make a request with custom headers or timeouts, use request.New
// and Client.Do.
func (c *Client) Get(url string) (*Response, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
//
// To make a request with custom headers or timeouts, use request.New
// and Client.Do.
func (c *Client) Head(url string) (*Response, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.New, namely: string; []byte; and
// io.Reader. An io.Reader body is streamed.
//
// To make a request with custom headers or timeouts, use request.New
// and Client.Do.
func (c *Client) Post(url, contentType string, body interface{}) (*Response, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.New and Client.Do.
func (c *Client) PostForm(url string, data url.Values) (*Response, error) {
	return PostForm(c, url, data)
}

// CloseIdleConnections closes the idle connections of the client's
// pools. Connections in use are not interrupted.
func (c *Client) CloseIdleConnections() {
	c.pool(false).CloseIdleConnections()
	c.pool(true).CloseIdleConnections()
}

func (c *Client) pool(secure bool) *pool.Pool {
	if secure {
		if c.TLSPool != nil {
			return c.TLSPool
		}
		return pool.DefaultTLS
	}
	if c.Pool != nil {
		return c.Pool
	}
	return pool.DefaultPlain
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

// An attempt holds the deadline bookkeeping for one request, from
// dispatch until its response body is consumed.
type attempt struct {
	exec     *request.Execution
	handlers *HandlerGroup
	logger   *slog.Logger
	pair     timeout.Pair
	ctx      context.Context
	cancel   context.CancelCauseFunc
	method   string
	url      string
	path     string

	mu    sync.Mutex
	state *deadline.State
	lease deadline.Lease
	phase deadline.Phase
}

func (a *attempt) gotConn(info httptrace.GotConnInfo) {
	a.mu.Lock()
	if a.state != nil {
		a.state.Stop(a.lease)
	}
	state, ok := pool.StateOf(info.Conn)
	if !ok {
		state = &deadline.State{}
	}
	a.state = state
	a.lease = state.Arm(deadline.Connect, a.pair.Connect, a.expire(ConnectTimeout))
	a.phase = deadline.Connect
	a.mu.Unlock()

	a.exec.Connected = time.Now()
	a.exec.ConnReused = info.Reused
	a.exec.Phase = deadline.Connect
	a.handlers.run(AfterConnect, a.exec)
}

// beginRead replaces the connect deadline with the read deadline. It
// returns false if the connect deadline already expired.
func (a *attempt) beginRead() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		// The agent does not report connections.
		a.state = &deadline.State{}
		a.lease = a.state.Arm(deadline.Read, a.pair.Read, a.expire(ReadTimeout))
	} else {
		next, ok := a.state.Transition(a.lease, deadline.Read, a.pair.Read, a.expire(ReadTimeout))
		if !ok {
			return false
		}
		a.lease = next
	}
	a.phase = deadline.Read
	a.exec.Phase = deadline.Read
	return true
}

func (a *attempt) currentPhase() deadline.Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *attempt) rearm() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.state.Rearm(a.lease, a.expire(ReadTimeout))
	return ok
}

func (a *attempt) remaining() (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return 0, false
	}
	return a.state.Remaining(a.lease)
}

func (a *attempt) stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return false
	}
	return a.state.Stop(a.lease)
}

func (a *attempt) expire(kind Kind) func() {
	return func() {
		a.cancel(a.newError(kind, nil))
	}
}

// newError builds an *Error for the attempt. It runs on timer and
// transport goroutines, so it reads only immutable fields and the
// phase under a.mu, never the execution.
func (a *attempt) newError(kind Kind, err error) *Error {
	e := &Error{
		Kind:   kind,
		Phase:  a.currentPhase(),
		Method: a.method,
		URL:    a.url,
		Path:   a.path,
		Err:    err,
	}
	switch kind {
	case ConnectTimeout:
		e.Phase = deadline.Connect
		e.Limit = a.pair.Connect
	case ReadTimeout:
		e.Phase = deadline.Read
		e.Limit = a.pair.Read
	}
	return e
}

// cause returns the *Error that aborted the request, if any, or else
// an *Error of the given kind wrapping err.
func (a *attempt) cause(kind Kind, err error) *Error {
	var te *Error
	if errors.As(context.Cause(a.ctx), &te) {
		return te
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return a.newError(kind, err)
}

func (a *attempt) fail(err error) error {
	a.stop()
	te := a.cause(Transport, err)
	a.cancel(te)
	a.exec.Err = te
	a.exec.Phase = te.Phase
	a.exec.End = time.Now()
	if te.Kind == ConnectTimeout {
		a.handlers.run(AfterConnectTimeout, a.exec)
	}
	a.handlers.run(AfterRequestError, a.exec)
	a.logger.Debug("request failed", "request_id", a.exec.ID, "err", te)
	return te
}

func (a *attempt) requestBody(body interface{}) (io.Reader, error) {
	kind, err := request.Classify(body)
	if err != nil {
		return nil, err
	}
	switch kind {
	case request.FixedBody:
		return bytes.NewReader(request.BodyBytes(body)), nil
	case request.StreamBody:
		sb := &streamBody{r: body.(io.Reader), fail: func(err error) {
			a.cancel(a.newError(Stream, err))
		}}
		if c, ok := body.(io.Closer); ok {
			sb.c = c
		}
		return sb, nil
	default:
		return nil, nil
	}
}

// streamBody pipes a caller-supplied reader to the server. A read
// error from the reader aborts the request.
type streamBody struct {
	r    io.Reader
	c    io.Closer
	fail func(error)
	once sync.Once
}

func (b *streamBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		b.once.Do(func() { b.fail(err) })
	}
	return n, err
}

func (b *streamBody) Close() error {
	if b.c != nil {
		return b.c.Close()
	}
	return nil
}

func (a *attempt) debug() bool {
	return a.logger.Enabled(a.ctx, slog.LevelDebug)
}

func (a *attempt) logRequest(r *http.Request, body interface{}) {
	if !a.debug() {
		return
	}
	id := slog.String("request_id", a.exec.ID)
	a.logger.Debug("> "+r.Method+" "+r.URL.RequestURI()+" HTTP/1.1", id)
	a.logger.Debug("> Host: "+r.URL.Host, id)
	for _, k := range sortedKeys(r.Header) {
		for _, v := range r.Header[k] {
			a.logger.Debug("> "+k+": "+v, id)
		}
	}
	switch x := body.(type) {
	case nil:
		a.logger.Debug("<no request body>", id)
	case string:
		a.logger.Debug(x, id)
	case []byte:
		a.logger.Debug("Buffer <ignored>", id, slog.Int("length", len(x)))
	default:
		a.logger.Debug("<request body is a stream>", id)
	}
}

func (a *attempt) logResponse(resp *http.Response) {
	if !a.debug() {
		return
	}
	id := slog.String("request_id", a.exec.ID)
	a.logger.Debug("< "+resp.Proto+" "+resp.Status, id)
	for _, k := range sortedKeys(resp.Header) {
		for _, v := range resp.Header[k] {
			a.logger.Debug("< "+k+": "+v, id)
		}
	}
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
