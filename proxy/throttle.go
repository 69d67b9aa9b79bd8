// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"context"

	"golang.org/x/time/rate"
)

type throttled struct {
	src     Source
	limiter *rate.Limiter
}

// Throttle wraps src so that fetches, across every goroutine sharing
// the returned Source, proceed no faster than limiter allows. A fetch
// blocks until the limiter admits it or ctx is done.
//
// Throttle is useful when proxies come from a paid or rate-limited
// supplier and many request plans may rotate at once.
func Throttle(src Source, limiter *rate.Limiter) Source {
	if src == nil {
		panic("proxyx/proxy: nil source")
	}
	if limiter == nil {
		panic("proxyx/proxy: nil limiter")
	}
	return &throttled{src: src, limiter: limiter}
}

func (t *throttled) Fetch(ctx context.Context) (Endpoint, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Endpoint{}, ctxErr
		}
		return Endpoint{}, &SourceError{Source: "throttled", Err: err}
	}
	return t.src.Fetch(ctx)
}
