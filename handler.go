// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import (
	"github.com/gogama/proxyx/request"
)

// A HandlerGroup holds one chain of handlers per Event. Client runs
// the chain for an event synchronously, on the goroutine executing the
// plan, in the order the handlers were added.
//
// One group may serve several clients. Do not add handlers while any
// of them is executing.
type HandlerGroup struct {
	chains [numEvents][]Handler
}

// PushBack appends h to the chain for evt. It panics if h is nil or
// evt is not a valid Event.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("proxyx: nil handler")
	}
	if evt < 0 || evt >= eventSentinel {
		panic("proxyx: invalid event " + evt.String())
	}
	g.chains[evt] = append(g.chains[evt], h)
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	for _, h := range g.chains[evt] {
		h.Handle(evt, e)
	}
}

// A Handler reacts to an event in a lineage. It may read the
// execution, and store its own data there with SetValue.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
