// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"errors"
	"math"
	"syscall"
	"testing"
	"time"

	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/request"
	"github.com/stretchr/testify/assert"
)

var (
	fresh     = &request.Execution{}
	timedOut  = func(n int) *request.Execution { return &request.Execution{Attempt: n, AttemptTimeouts: n, Err: syscall.ETIMEDOUT} }
	otherErr  = &request.Execution{Attempt: 1, AttemptTimeouts: 1, Err: errors.New("connection reset")}
	withBody  = &request.Execution{AttemptTimeouts: 3, Err: syscall.ETIMEDOUT, Body: []byte("partial")}
	forever   = time.Duration(math.MaxInt64)
	ms        = time.Millisecond
	socksAddr = proxy.MustParse("socks5://p:1080")
)

func TestBuiltIn(t *testing.T) {
	testCases := []struct {
		name     string
		p        Policy
		e        *request.Execution
		expected time.Duration
	}{
		{"DefaultPolicy, fresh", DefaultPolicy, fresh, 5 * time.Second},
		{"DefaultPolicy, after timeouts", DefaultPolicy, withBody, 5 * time.Second},
		{"Infinite, fresh", Infinite, fresh, forever},
		{"Infinite, after timeouts", Infinite, timedOut(10), forever},
		{"Fixed, fresh", Fixed(33 * time.Hour), fresh, 33 * time.Hour},
		{"Fixed, one timeout", Fixed(33 * time.Hour), timedOut(1), 33 * time.Hour},
		{"Fixed, two timeouts", Fixed(33 * time.Hour), timedOut(2), 33 * time.Hour},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, testCase.p.Timeout(testCase.e))
		})
	}
}

func TestAdaptive(t *testing.T) {
	p := Adaptive(5*ms, 10*ms, 100*ms)
	testCases := []struct {
		name     string
		e        *request.Execution
		expected time.Duration
	}{
		{"first attempt", fresh, 5 * ms},
		{"after first timeout", timedOut(1), 10 * ms},
		{"after second timeout", timedOut(2), 100 * ms},
		{"past the end", timedOut(7), 100 * ms},
		{"after non-timeout error", otherErr, 5 * ms},
		{"timeouts but last error not a timeout", &request.Execution{Attempt: 2, AttemptTimeouts: 2, Err: errors.New("eof")}, 5 * ms},
		{"retry on same proxy", &request.Execution{AttemptTimeouts: 1, Err: syscall.ETIMEDOUT,
			Decision: recovery.Decision{Action: recovery.RetrySameProxy}}, 10 * ms},
		{"rotated to fresh proxy", &request.Execution{AttemptTimeouts: 1, Err: syscall.ETIMEDOUT,
			Decision: recovery.Decision{Action: recovery.RotateProxy}}, 5 * ms},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, p.Timeout(testCase.e))
		})
	}
	t.Run("no after values", func(t *testing.T) {
		assert.Equal(t, 7*ms, Adaptive(7*ms).Timeout(timedOut(3)))
	})
}

func TestByProxy(t *testing.T) {
	t.Run("nil policy", func(t *testing.T) {
		assert.PanicsWithValue(t, "proxyx/timeout: nil policy", func() { ByProxy(nil, Fixed(1)) })
		assert.PanicsWithValue(t, "proxyx/timeout: nil policy", func() { ByProxy(Fixed(1), nil) })
	})

	p := ByProxy(Fixed(time.Second), Fixed(3*time.Second))
	testCases := []struct {
		name     string
		proxy    *proxy.Endpoint
		expected time.Duration
	}{
		{"no proxy", nil, time.Second},
		{"zero proxy", &proxy.Endpoint{}, time.Second},
		{"proxied", &socksAddr, 3 * time.Second},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, p.Timeout(&request.Execution{Proxy: testCase.proxy}))
		})
	}
}
