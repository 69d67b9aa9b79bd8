// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recovery

import (
	"fmt"
	"time"
)

// A Budget bounds connection-failure recovery for one request lineage.
//
// The zero value is a valid budget allowing a single attempt with no
// proxy rotation.
type Budget struct {
	// MaxProxyChanges is the number of times the proxy may be rotated.
	// Zero disables rotation even if a proxy source is configured.
	MaxProxyChanges int
	// MaxAttemptsPerProxy is the number of attempts made on each proxy,
	// or in total if no proxy is used. Values below 1 mean 1.
	MaxAttemptsPerProxy int
	// Sleep is the wait between attempts used by BudgetWaiter.
	Sleep time.Duration
}

// Normalize returns a copy of b with out-of-range values replaced by
// their defaults.
func (b Budget) Normalize() Budget {
	if b.MaxProxyChanges < 0 {
		b.MaxProxyChanges = 0
	}
	if b.MaxAttemptsPerProxy < 1 {
		b.MaxAttemptsPerProxy = 1
	}
	if b.Sleep < 0 {
		b.Sleep = 0
	}
	return b
}

// MaxAttempts returns the largest number of attempts a lineage may
// make under b.
func (b Budget) MaxAttempts() int {
	n := b.Normalize()
	return n.MaxAttemptsPerProxy * (n.MaxProxyChanges + 1)
}

func (b Budget) String() string {
	return fmt.Sprintf("%d attempts x %d proxies, sleep %s",
		b.MaxAttemptsPerProxy, b.MaxProxyChanges+1, b.Sleep)
}

// State holds the recovery counters of one request lineage. It is
// owned by a single execution and is never shared.
type State struct {
	// AttemptsOnProxy is the number of attempts sent on the current
	// proxy. The client increments it before each send.
	AttemptsOnProxy int
	// ProxyChanges is the number of rotations done so far.
	ProxyChanges int
}

// Reset zeroes both counters.
func (s *State) Reset() {
	s.AttemptsOnProxy = 0
	s.ProxyChanges = 0
}
