// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package pool provides the connection pool (agent) that timedhttp sends
requests through.

A Pool wraps an http.Transport whose dialers return tracked connections.
Every tracked connection, a *Conn, carries the phase deadline state for
whichever request currently holds it, so the connect and read deadlines
follow the connection through keep-alive reuse. Closing a connection
resets its deadline state.

Connections only ever speak HTTP/1.1, since an HTTP/2 connection is
shared by many requests at once and cannot carry per-request deadline
state.

The package-level pools DefaultPlain and DefaultTLS are used by a zero
value timedhttp.Client. They are ordinary variables and may be replaced
at program start. NoReuse is a pool with keep-alives disabled: each
request it sends dials a fresh connection that is closed when the
response ends.

	p := pool.New(
		pool.WithMaxConnsPerHost(64),
		pool.WithDialTimeout(2*time.Second),
		pool.WithLogger(logger),
	)
	defer p.CloseIdleConnections()
*/
package pool
