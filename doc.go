// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package timedhttp provides an HTTP client that bounds every request with
separate connect and read deadlines, decodes compressed responses, and
frames server-sent event streams, within a simple and familiar
interface.

Create a Client to begin making requests. Every method returns as soon
as the response headers arrive; the body is consumed separately.

	client := &timedhttp.Client{}
	resp, err := client.Get("https://www.example.com")
	...
	body, err := resp.ReadBody()
	...
	resp, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)
	...
	text, err := resp.ReadString("latin1")

Timeouts are set per request. The connect timeout runs from obtaining a
connection until the response headers arrive; the read timeout runs
from the headers until the body ends. Timeout sets both at once, and a
phase left unset gets timeout.DefaultTimeout:

	o, err := request.New("GET", "https://example.com/report", nil)
	...
	o.ConnectTimeout = 500 * time.Millisecond
	o.ReadTimeout = 10 * time.Second
	o.Compression = true
	resp, err := client.Do(o)

Timeouts and other failures are reported as *timedhttp.Error, whose
Kind tells them apart:

	var te *timedhttp.Error
	if errors.As(err, &te) && te.Kind == timedhttp.ConnectTimeout {
		...
	}

A server-sent event stream is read through a framer. The read deadline
does not apply to it; use the context to bound it instead:

	resp, err := client.Get("https://example.com/events")
	...
	events, err := resp.Events(ctx)
	...
	defer events.Close()
	for {
		ev, err := events.Next()
		if err == io.EOF {
			break
		}
		...
	}

Connections come from package pool. A zero value Client uses the
package-level default pools; set Client.Pool or Client.TLSPool for
custom connection limits or TLS material, or set request.Options.Agent
for a single request. Setting it to pool.NoReuse sends the request on a
connection of its own.

To hook into the fine-grained details of the client's request logic,
install a handler into the appropriate handler chain:

	handlers := &timedhttp.HandlerGroup{}
	handlers.PushBack(timedhttp.AfterConnectTimeout, timedhttp.HandlerFunc(
		func(_ timedhttp.Event, e *request.Execution) {
			logger.Warn("connect timeout", "url", e.Options.URL)
		}),
	)
	client := &timedhttp.Client{
		Handlers: handlers,
	}

Package metrics provides ready-made handlers that export Prometheus
metrics.

Package timedhttp provides basic interfaces for each method of the
client (Doer, Getter, Header, Poster, FormPoster, and IdleCloser); a
combined interface that composes all the basic methods (Executor); and
utility functions for working with a Doer (Inflate, Get, Head, Post,
and PostForm).
*/
package timedhttp
