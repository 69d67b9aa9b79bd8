// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/request"
)

// A Policy decides the timeout of each attempt in a lineage.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the next attempt.
	//
	// When Timeout is called, e.Err and e.Decision still describe the
	// previous attempt, if any, while e.Proxy is already the proxy the
	// next attempt will use.
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy is the default timeout policy. It sets a fixed timeout
// of 5 seconds on each attempt.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed constructs a timeout policy that always returns d.
func Fixed(d time.Duration) Policy {
	return policy([]time.Duration{d})
}

// Adaptive constructs a timeout policy that lengthens the next timeout
// if the previous attempt timed out on the same proxy.
//
// Parameter usual is the timeout for the first attempt, for any attempt
// whose predecessor did not time out, and for the first attempt on a
// freshly rotated proxy.
//
// Parameter after holds the timeouts used when the previous attempt
// timed out: after[0] following the first timeout of the lineage,
// after[1] following the second, and so on, repeating the last element
// once after runs out.
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	return policy(append(p, after...))
}

type policy []time.Duration

func (p policy) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() || e.Decision.Action == recovery.RotateProxy {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}

// ByProxy constructs a timeout policy that delegates to direct for
// attempts sent without a proxy and to proxied for attempts sent
// through one. Proxied attempts usually need longer timeouts because
// the proxy adds a hop and a handshake.
func ByProxy(direct, proxied Policy) Policy {
	if direct == nil || proxied == nil {
		panic("proxyx/timeout: nil policy")
	}
	return byProxy{direct: direct, proxied: proxied}
}

type byProxy struct {
	direct  Policy
	proxied Policy
}

func (p byProxy) Timeout(e *request.Execution) time.Duration {
	if e.Proxy != nil && !e.Proxy.IsZero() {
		return p.proxied.Timeout(e)
	}
	return p.direct.Timeout(e)
}
