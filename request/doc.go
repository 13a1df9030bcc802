// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Options (describes one HTTP
request and the policy for making it) and Execution (describes the
progress of that request).

Options look like a stripped-down http.Request with the client-side
policy fields added: connect and read timeouts, the connection agent to
use, TLS verification override, compression negotiation and a final
mutation hook.

	o, err := request.New("GET", "https://example.com/events", nil)
	...
	o.ReadTimeout = 10 * time.Second
	o.Compression = true
	resp, err := client.Do(o)
	...

Options may carry a context, which cancels the request and any body
read in progress:

	o, err := request.NewWithContext(ctx, "POST", "https://example.com/upload", file)
	...

The request body may be a string or []byte, sent in one piece, or an
io.Reader, which is streamed. A read error from a streaming body aborts
the request.

Execution is handed to event handlers as the request progresses, and is
attached to the response. You will not normally allocate one yourself.
*/
package request
