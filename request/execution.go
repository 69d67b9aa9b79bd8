// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/response"
	"github.com/gogama/proxyx/transient"
)

// An Execution represents one lineage: every attempt, across retries
// and proxy rotations, made to resolve a single Plan.
//
// The client creates an Execution per call, updates it as the lineage
// progresses, and returns it when the lineage ends. Event handlers and
// timeout policies see the same Execution. They may store their own
// data on it with SetValue, but should otherwise treat its fields as
// read-only, since the recovery state in particular drives the client's
// loop.
type Execution struct {
	// ID identifies the lineage in logs and metrics.
	ID string

	// Plan specifies the HTTP request plan being executed. It is never
	// nil.
	Plan *Plan

	// Start is the start time of the lineage.
	Start time.Time

	// End is the end time of the lineage, or the zero time while it is
	// in flight.
	End time.Time

	// Attempt is the zero-based number of the current attempt across
	// the whole lineage. When the execution has ended it is the number
	// of the last attempt made, so Attempt+1 attempts were made in
	// total, unless the lineage failed before its first attempt.
	Attempt int

	// AttemptTimeouts is the count of attempts that timed out.
	AttemptTimeouts int

	// State holds the recovery counters. Both are zero once the lineage
	// has succeeded.
	State recovery.State

	// Rotations is the number of proxy rotations made over the whole
	// lineage. Unlike State.ProxyChanges it is never reset.
	Rotations int

	// Proxy is the proxy of the current or most recent attempt, or nil
	// if no proxy is used.
	Proxy *proxy.Endpoint

	// Decision is the most recent recovery decision. It is the zero
	// Decision until the first connection failure.
	Decision recovery.Decision

	// Request specifies the HTTP request to be made in the current
	// attempt, or already made in the last attempt.
	Request *http.Request

	// Response specifies the HTTP response received in the most recent
	// attempt. Its body has already been read into Body.
	Response *http.Response

	// Err indicates the error of the most recent attempt. Once the
	// execution has ended, Err is the error returned by the client.
	Err error

	// Body is the complete response body of the most recent attempt.
	Body []byte

	// Result wraps the successful response. It is nil unless the
	// lineage succeeded.
	Result response.Wrapper

	values map[interface{}]interface{}
}

// StatusCode returns the status code of the HTTP response from the
// most recent attempt, or 0 if there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers from the most recent
// attempt, or a nil header if there is no response.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution. It is zero before
// the execution starts and fixed once it ends.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether Err currently contains a timeout error.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// Succeeded reports whether the lineage has ended with a response.
func (e *Execution) Succeeded() bool {
	return e.Ended() && e.Err == nil && e.Result != nil
}

// Attempts returns the number of attempts sent so far. It is zero
// until the first attempt is made.
func (e *Execution) Attempts() int {
	if e.Request == nil && e.Response == nil && e.Attempt == 0 {
		return 0
	}
	return e.Attempt + 1
}

// SetValue stores a value on the execution under key, replacing any
// earlier value for the same key. Handlers use it to carry their own
// data from one event to the next. Keys must be comparable.
func (e *Execution) SetValue(key, value interface{}) {
	if e.values == nil {
		e.values = make(map[interface{}]interface{})
	}
	e.values[key] = value
}

// Value returns the value stored under key, or nil.
func (e *Execution) Value(key interface{}) interface{} {
	return e.values[key]
}
