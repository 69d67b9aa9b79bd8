// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recovery

import (
	"fmt"
	"time"

	"github.com/gogama/proxyx/proxy"
)

// An Action is the kind of a recovery Decision.
type Action int

const (
	// Fail ends the lineage with Decision.Err.
	Fail Action = iota
	// RetrySameProxy sends another attempt on the current proxy.
	RetrySameProxy
	// RotateProxy replaces the current proxy with Decision.Proxy and
	// sends another attempt.
	RotateProxy
)

var actionNames = []string{
	"Fail",
	"RetrySameProxy",
	"RotateProxy",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// A Decision tells the client what to do after a connection failure.
type Decision struct {
	Action Action
	// Proxy is the new proxy. It is set only for RotateProxy.
	Proxy *proxy.Endpoint
	// Wait is how long to wait before the next attempt.
	Wait time.Duration
	// Err is the error the lineage fails with. It is set only for Fail.
	Err error
}

// A Failure describes a failed attempt.
type Failure struct {
	// Err is the connection error.
	Err error
	// Proxy is the proxy the attempt was sent on, or nil.
	Proxy *proxy.Endpoint
	// Source supplies replacement proxies. It may be nil.
	Source proxy.Source
	// Budget is the lineage budget.
	Budget Budget
}

func (f Failure) hasProxy() bool {
	return f.Proxy != nil && !f.Proxy.IsZero()
}
