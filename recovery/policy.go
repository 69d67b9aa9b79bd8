// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recovery

import (
	"context"
)

// A Policy decides how to recover from a connection failure.
//
// Decide may update the counters in s: a RotateProxy decision
// increments ProxyChanges and resets AttemptsOnProxy. A Fail decision
// leaves them untouched.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines. The State is not shared, so no locking of it is needed.
type Policy interface {
	Decide(ctx context.Context, s *State, f Failure) Decision
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as recovery policies.
type PolicyFunc func(ctx context.Context, s *State, f Failure) Decision

// Decide calls f(ctx, s, fail).
func (f PolicyFunc) Decide(ctx context.Context, s *State, fail Failure) Decision {
	return f(ctx, s, fail)
}

// DefaultPolicy retries and rotates within the budget, waiting
// Budget.Sleep between attempts.
var DefaultPolicy Policy = NewPolicy(BudgetWaiter)

// Never is a policy that always fails on the first connection error.
var Never Policy = PolicyFunc(func(_ context.Context, _ *State, f Failure) Decision {
	return Decision{Action: Fail, Err: f.Err}
})

type policy struct {
	waiter Waiter
}

// NewPolicy returns the budget-driven policy using w to compute the
// wait before each retry or rotation.
func NewPolicy(w Waiter) Policy {
	if w == nil {
		panic("proxyx/recovery: nil waiter")
	}
	return policy{waiter: w}
}

func (p policy) Decide(ctx context.Context, s *State, f Failure) Decision {
	f.Budget = f.Budget.Normalize()
	b := f.Budget

	if s.AttemptsOnProxy < b.MaxAttemptsPerProxy {
		return Decision{Action: RetrySameProxy, Wait: p.waiter.Wait(s, f)}
	}

	if !f.hasProxy() || f.Source == nil || s.ProxyChanges >= b.MaxProxyChanges {
		return Decision{Action: Fail, Err: f.Err}
	}

	next, err := f.Source.Fetch(ctx)
	if err != nil {
		return Decision{Action: Fail, Err: err}
	}

	s.ProxyChanges++
	s.AttemptsOnProxy = 0
	return Decision{Action: RotateProxy, Proxy: &next, Wait: p.waiter.Wait(s, f)}
}
