// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"net"
	"sync"

	"github.com/gogama/timedhttp/deadline"
)

// A Conn is a network connection dialed by a Pool. It carries the
// deadline state of the request currently using it.
type Conn struct {
	net.Conn
	state     deadline.State
	pool      *Pool
	closeOnce sync.Once
	closeErr  error
}

// State returns the deadline state attached to the connection.
func (c *Conn) State() *deadline.State {
	return &c.state
}

// Close resets the deadline state and closes the underlying
// connection. Calls after the first return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.state.Reset()
		c.closeErr = c.Conn.Close()
		c.pool.closed(c)
	})
	return c.closeErr
}

// StateOf returns the deadline state attached to conn if conn was
// dialed by a Pool.
func StateOf(conn net.Conn) (*deadline.State, bool) {
	if c, ok := conn.(*Conn); ok {
		return c.State(), true
	}
	return nil, false
}
