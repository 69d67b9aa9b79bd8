// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports Prometheus metrics for a proxyx client.
//
// A Collector is an event handler. Install it into the client's
// handler group and it counts attempts, proxy rotations and completed
// lineages:
//
//	reg := prometheus.NewRegistry()
//	handlers := &proxyx.HandlerGroup{}
//	metrics.NewCollector(reg).Install(handlers)
//	client := &proxyx.Client{Handlers: handlers}
package metrics

import (
	"errors"

	"github.com/gogama/proxyx"
	"github.com/gogama/proxyx/request"
	"github.com/gogama/proxyx/transient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lineage results, used as the "result" label.
const (
	ResultSuccess       = "success"
	ResultExhausted     = "exhausted"
	ResultConfiguration = "configuration"
	ResultError         = "error"
)

// OutcomeResponse is the "outcome" label of an attempt that produced
// a complete response. Failed attempts are labeled with their
// transient.Category name, or "error" for other errors.
const OutcomeResponse = "response"

// A Collector records client events as Prometheus metrics. It is safe
// for concurrent use.
type Collector struct {
	attempts   *prometheus.CounterVec
	timeouts   prometheus.Counter
	rotations  prometheus.Counter
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   prometheus.Gauge
}

// NewCollector creates a Collector whose metrics are registered with
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxyx_attempts_total",
				Help: "Total number of HTTP request attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		timeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "proxyx_attempt_timeouts_total",
			Help: "Total number of HTTP request attempts that timed out.",
		}),
		rotations: f.NewCounter(prometheus.CounterOpts{
			Name: "proxyx_proxy_rotations_total",
			Help: "Total number of proxy rotations.",
		}),
		executions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxyx_executions_total",
				Help: "Total number of completed request lineages, by result.",
			},
			[]string{"result"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proxyx_execution_duration_seconds",
				Help:    "Duration of request lineages in seconds, including retries and waits.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "proxyx_executions_in_flight",
			Help: "Number of request lineages currently executing.",
		}),
	}
}

// Install adds c to the handler chains of the events it records.
func (c *Collector) Install(g *proxyx.HandlerGroup) {
	g.PushBack(proxyx.BeforeExecutionStart, c)
	g.PushBack(proxyx.AfterAttemptTimeout, c)
	g.PushBack(proxyx.AfterAttempt, c)
	g.PushBack(proxyx.AfterProxyRotation, c)
	g.PushBack(proxyx.AfterExecutionEnd, c)
}

// Handle implements proxyx.Handler.
func (c *Collector) Handle(evt proxyx.Event, e *request.Execution) {
	switch evt {
	case proxyx.BeforeExecutionStart:
		c.inFlight.Inc()
	case proxyx.AfterAttemptTimeout:
		c.timeouts.Inc()
	case proxyx.AfterAttempt:
		c.attempts.WithLabelValues(Outcome(e.Err)).Inc()
	case proxyx.AfterProxyRotation:
		c.rotations.Inc()
	case proxyx.AfterExecutionEnd:
		c.inFlight.Dec()
		result := Result(e.Err)
		c.executions.WithLabelValues(result).Inc()
		c.duration.WithLabelValues(result).Observe(e.Duration().Seconds())
	}
}

// Outcome returns the attempt outcome label for err.
func Outcome(err error) string {
	if err == nil {
		return OutcomeResponse
	}
	if cat := transient.Categorize(err); cat != transient.Not {
		return cat.String()
	}
	return ResultError
}

// Result returns the lineage result label for err.
func Result(err error) string {
	var exhausted *proxyx.ExhaustedError
	switch {
	case err == nil:
		return ResultSuccess
	case errors.As(err, &exhausted):
		return ResultExhausted
	case proxyx.IsConfigurationError(err):
		return ResultConfiguration
	default:
		return ResultError
	}
}
