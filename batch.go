// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import (
	"context"
	"sync"

	"github.com/gogama/proxyx/request"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of plans a Batch executes at once
// when its Concurrency is zero.
const DefaultConcurrency = 5

// A Batch executes many request plans concurrently through one Doer.
//
// Each plan runs its own independent execution with its own recovery
// state, exactly as if passed to Doer.Do alone. A failed plan does not
// stop the others.
//
// The zero value is not usable: Doer must be set.
type Batch struct {
	// Doer executes each plan. It must be safe for concurrent use,
	// as Client is.
	Doer Doer
	// Concurrency bounds how many plans execute at once. If it is zero
	// or negative, DefaultConcurrency is used.
	Concurrency int
	// OnFulfilled, if not nil, is called with the index and final
	// execution of each plan that completed without error.
	OnFulfilled func(i int, e *request.Execution)
	// OnRejected, if not nil, is called with the index, final
	// execution, and error of each plan that failed.
	OnRejected func(i int, e *request.Execution, err error)
}

// Run executes plans and returns the final execution of each, in the
// same order as plans.
//
// The callbacks are never invoked concurrently with one another, so
// they need not synchronize. Once ctx is done, Run starts no further
// plans: their entries in the returned slice are nil and Run returns
// the context error. Plans already started run to completion under
// their own contexts.
func (b *Batch) Run(ctx context.Context, plans []*request.Plan) ([]*request.Execution, error) {
	if b.Doer == nil {
		panic("proxyx: nil doer")
	}

	n := b.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}

	execs := make([]*request.Execution, len(plans))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n)

	for i := range plans {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			e, err := b.Doer.Do(plans[i])
			mu.Lock()
			defer mu.Unlock()
			execs[i] = e
			if err != nil {
				if b.OnRejected != nil {
					b.OnRejected(i, e, err)
				}
			} else if b.OnFulfilled != nil {
				b.OnFulfilled(i, e)
			}
			return nil
		})
	}

	_ = g.Wait()
	return execs, ctx.Err()
}
