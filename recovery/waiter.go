// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recovery

import (
	"math/rand"
	"sync"
	"time"
)

// A Waiter specifies how long to wait before the next attempt after a
// connection failure.
//
// The State passed to Wait reflects the decision being made: after a
// rotation AttemptsOnProxy is already zero.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(s *State, f Failure) time.Duration
}

// The WaiterFunc type is an adapter to allow the use of ordinary
// functions as waiters.
type WaiterFunc func(s *State, f Failure) time.Duration

// Wait calls w(s, f).
func (w WaiterFunc) Wait(s *State, f Failure) time.Duration {
	return w(s, f)
}

// BudgetWaiter waits Budget.Sleep before every retry and rotation.
var BudgetWaiter Waiter = WaiterFunc(func(_ *State, f Failure) time.Duration {
	return f.Budget.Normalize().Sleep
})

// NewFixedWaiter constructs a Waiter that always returns the given
// duration, ignoring the budget.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *State, _ Failure) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter constructs a Waiter implementing an exponential backoff
// formula with optional jitter, keyed on the number of attempts made on
// the current proxy. A fresh proxy therefore starts again from base.
//
// The formula is the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
//	ceil := min(base * 2**AttemptsOnProxy, max)
//
// Base and max must be positive values, and max must be at least equal
// to base.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil. Pass nil for no jitter. Otherwise pass a seed (time.Time, int,
// or int64), a *rand.Rand, or a rand.Source.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("proxyx/recovery: base must be positive")
	}
	if max < base {
		panic("proxyx/recovery: max must be at least base")
	}
	return &jitterExpWaiter{
		base: base,
		max:  max,
		rand: jitterToRand(jitter),
	}
}

type jitterExpWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *jitterExpWaiter) Wait(s *State, _ Failure) time.Duration {
	n := s.AttemptsOnProxy
	if n < 0 {
		n = 0
	}
	if n > 62 {
		n = 62
	}
	exp := int64(1) << n

	ceil := int64(w.base) * exp
	if ceil/exp != int64(w.base) || int64(w.max) < ceil {
		ceil = int64(w.max)
	}

	duration := ceil
	if w.rand != nil && ceil > 0 {
		w.lock.Lock()
		defer w.lock.Unlock()
		duration = w.rand.Int63n(ceil)
	}

	return time.Duration(duration)
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("proxyx/recovery: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("proxyx/recovery: invalid jitter type")
	}
	return rand.New(s)
}
