// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/gogama/proxyx"
	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/request"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("rotation then success", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewCollector(reg)
		cl := newClient(c, recovery.Budget{MaxProxyChanges: 1, MaxAttemptsPerProxy: 2},
			refused(), refused(), reset(), nil)

		_, err := cl.Get("http://example.com/")

		require.NoError(t, err)
		assert.Equal(t, 2.0, testutil.ToFloat64(c.attempts.WithLabelValues("ConnRefused")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("ConnReset")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues(OutcomeResponse)))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.rotations))
		assert.Equal(t, 0.0, testutil.ToFloat64(c.timeouts))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.executions.WithLabelValues(ResultSuccess)))
		assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
		assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
	})
	t.Run("exhausted", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewCollector(reg)
		cl := newClient(c, recovery.Budget{MaxAttemptsPerProxy: 2}, refused(), refused())

		_, err := cl.Get("http://example.com/")

		var exhausted *proxyx.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 2.0, testutil.ToFloat64(c.attempts.WithLabelValues("ConnRefused")))
		assert.Equal(t, 0.0, testutil.ToFloat64(c.rotations))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.executions.WithLabelValues(ResultExhausted)))
		assert.Equal(t, 0.0, testutil.ToFloat64(c.executions.WithLabelValues(ResultSuccess)))
	})
	t.Run("timeout", func(t *testing.T) {
		c := NewCollector(prometheus.NewRegistry())
		e := &request.Execution{Err: &url.Error{Op: "Get", URL: "http://example.com/", Err: context.DeadlineExceeded}}
		c.Handle(proxyx.AfterAttemptTimeout, e)
		c.Handle(proxyx.AfterAttempt, e)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.timeouts))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("Timeout")))
	})
	t.Run("install", func(t *testing.T) {
		c := NewCollector(prometheus.NewRegistry())
		g := &proxyx.HandlerGroup{}
		c.Install(g)
		cl := &proxyx.Client{HTTPDoer: &sequenceDoer{}, Handlers: g}
		_, err := cl.Get("http://example.com/")
		require.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.executions.WithLabelValues(ResultSuccess)))
	})
	t.Run("duplicate registration", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		NewCollector(reg)
		assert.Panics(t, func() {
			NewCollector(reg)
		})
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeResponse, Outcome(nil))
	assert.Equal(t, "ConnRefused", Outcome(refused()))
	assert.Equal(t, "ConnReset", Outcome(reset()))
	assert.Equal(t, ResultError, Outcome(errors.New("foo")))
}

func TestResult(t *testing.T) {
	testCases := []struct {
		err      error
		expected string
	}{
		{nil, ResultSuccess},
		{&proxyx.ExhaustedError{Err: refused()}, ResultExhausted},
		{fmt.Errorf("wrapped: %w", &proxyx.ExhaustedError{Err: refused()}), ResultExhausted},
		{&proxy.SourceError{Source: "file", Err: errors.New("missing")}, ResultConfiguration},
		{&proxy.SchemeError{Scheme: "ftp"}, ResultConfiguration},
		{errors.New("other"), ResultError},
	}
	for i, testCase := range testCases {
		t.Run(fmt.Sprintf("[%d]=%s", i, testCase.expected), func(t *testing.T) {
			assert.Equal(t, testCase.expected, Result(testCase.err))
		})
	}
}

func newClient(c *Collector, budget recovery.Budget, errs ...error) *proxyx.Client {
	handlers := &proxyx.HandlerGroup{}
	c.Install(handlers)
	return &proxyx.Client{
		HTTPDoer: &sequenceDoer{errs: errs},
		Source:   proxy.NewList(proxy.MustParse("10.0.0.1:3128"), proxy.MustParse("10.0.0.2:3128")),
		Budget:   budget,
		Handlers: handlers,
	}
}

// sequenceDoer returns its errors in order, and a 200 response for a
// nil error or once the errors run out.
type sequenceDoer struct {
	mu   sync.Mutex
	errs []error
}

func (d *sequenceDoer) Do(r *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    r,
	}, nil
}

func refused() error {
	return &url.Error{Op: "Get", URL: "http://example.com/", Err: syscall.ECONNREFUSED}
}

func reset() error {
	return &url.Error{Op: "Get", URL: "http://example.com/", Err: syscall.ECONNRESET}
}
