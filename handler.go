// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timedhttp

import (
	"sync"

	"github.com/gogama/timedhttp/request"
)

// A HandlerGroup is a group of event handler chains which can be
// installed in a Client.
//
// Handlers may be added while the group is in use; a handler added
// during an event is first run on the next event of its type.
type HandlerGroup struct {
	mu       sync.RWMutex
	handlers [][]Handler
}

// PushBack adds an event handler to the back of the event handler chain
// for a specific event type.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("timedhttp: nil handler")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	g.mu.RLock()
	var chain []Handler
	i := int(evt)
	if i >= 0 && i < len(g.handlers) {
		chain = g.handlers[i]
	}
	g.mu.RUnlock()
	run(chain, evt, e)
}

func run(chain []Handler, evt Event, e *request.Execution) {
	for _, h := range chain {
		h.Handle(evt, e)
	}
}

// A Handler handles the occurrence of an event while a request is made
// or its response consumed.
type Handler interface {
	Handle(Event, *request.Execution)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers. If f is a function with appropriate
// signature, then HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
