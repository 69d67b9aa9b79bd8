// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/request"
	"github.com/gogama/proxyx/response"
	"github.com/gogama/proxyx/timeout"
	"github.com/gogama/proxyx/transient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
//
// To send attempts through the proxy assigned to a plan, the HTTPDoer
// must route each request through the endpoint attached to its context
// (see proxy.FromContext). An http.Client whose Transport is a
// *proxy.Transport does this.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	Do(r *http.Request) (*http.Response, error)
}

var emptyHandlers = HandlerGroup{}

var defaultDoer = &http.Client{Transport: &proxy.Transport{}}

// A Client is a robust HTTP client which survives proxy failures and
// transient connection errors by retrying and rotating proxies within
// a bounded budget. Its zero value is a valid configuration.
//
// The zero value client sends through an http.Client whose Transport
// is a *proxy.Transport, uses timeout.DefaultPolicy for attempt
// timeouts and recovery.DefaultPolicy for recovery decisions, logs
// nothing, and runs no event handlers.
//
// Client is safe for concurrent use by multiple goroutines, but a
// single request.Plan must not be executed concurrently, because the
// client rotates the plan's proxy in place.
//
// On top of the HTTPDoer, Client adds the following features:
//
// • Client reads and buffers the entire HTTP response body and wraps
// the response in a response.Wrapper;
//
// • Client recovers from connection failures by retrying on the same
// proxy and then rotating to fresh proxies from a proxy.Source;
//
// • Client sets individual attempt timeouts using a timeout policy;
//
// • Client merges default headers and query parameters into every
// request, with the plan's own values winning; and
//
// • Client invokes user-provided handler functions at designated
// plug-in points within the attempt loop.
type Client struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	HTTPDoer HTTPDoer
	// RecoveryPolicy decides how to recover from connection failures.
	//
	// If RecoveryPolicy is nil, recovery.DefaultPolicy is used.
	// Whatever the policy, the client never makes more than
	// Budget.MaxAttempts() attempts in one lineage.
	RecoveryPolicy recovery.Policy
	// TimeoutPolicy specifies how to set timeouts on individual
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	Handlers *HandlerGroup
	// Logger receives a structured log entry for every attempt and
	// every recovery transition. If Logger is nil, nothing is logged.
	Logger *zerolog.Logger
	// Budget is used for plans whose Budget is the zero value.
	Budget recovery.Budget
	// Source is used for plans whose Source is nil.
	Source proxy.Source
	// Header holds default request headers. A header key set on the
	// plan replaces the default.
	Header http.Header
	// Query holds default query parameters. A key set on the plan or
	// in its URL replaces the default.
	Query url.Values
}

// Do executes an HTTP request plan and returns the final execution
// state.
//
// If the plan has no proxy but a proxy Source is available, the
// initial proxy is fetched before the first attempt. The client then
// sends attempts until one produces an HTTP response, whatever its
// status code. After a connection failure (see transient.IsConnection)
// the recovery policy decides whether to retry on the same proxy,
// rotate to a new proxy, or fail.
//
// The returned Execution is never nil. If the returned error is nil,
// Execution.Result wraps the response and the recovery counters in
// Execution.State are zero. A response whose body was read in full is
// returned this way even if the plan context ended meanwhile.
//
// The returned error is:
//
// • a *ExhaustedError if the recovery budget ran out;
//
// • a configuration error (see IsConfigurationError), unmodified, if
// the proxy source failed or the plan body could not be encoded;
//
// • otherwise a *url.Error wrapping the cause, for example the plan
// context error or a non-connection transport error.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	e := request.Execution{
		ID:   uuid.NewString(),
		Plan: p,
	}

	doer := c.doer()

	timeoutPolicy := c.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	recoveryPolicy := c.RecoveryPolicy
	if recoveryPolicy == nil {
		recoveryPolicy = recovery.DefaultPolicy
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}

	handlers.run(BeforeExecutionStart, &e)
	p = e.Plan
	if p == nil {
		panic("proxyx: plan deleted from execution")
	}

	log := c.logger().With().Str("lineage", e.ID).Logger()
	budget := c.budget(p)
	src := c.source(p)
	maxAttempts := budget.MaxAttempts()
	e.Start = time.Now()

	if p.Proxy == nil && src != nil {
		ep, err := src.Fetch(p.Context())
		if err != nil {
			e.Err = err
			log.Error().Err(err).Msg("initial proxy fetch failed")
			return c.end(&e, handlers)
		}
		p.Proxy = &ep
	}

AttemptLoop:
	for {
		e.State.AttemptsOnProxy++
		e.Proxy = p.Proxy
		c.sendAndReceive(&e, doer, handlers, timeoutPolicy, &log)
		if e.Timeout() {
			e.AttemptTimeouts++
			handlers.run(AfterAttemptTimeout, &e)
		}
		handlers.run(AfterAttempt, &e)

		// A fully read response wins over a plan context that ended
		// after it arrived.
		if e.Err == nil {
			c.succeed(&e, &log)
			break
		}

		if ctxErr := p.Context().Err(); ctxErr != nil {
			if !errors.Is(e.Err, ctxErr) {
				e.Err = urlErrorWrap(p, ctxErr)
			}
			if ctxErr == context.DeadlineExceeded {
				handlers.run(AfterPlanTimeout, &e)
			}
			log.Warn().Err(e.Err).Int("attempt", e.Attempt).Msg("plan context done")
			break
		}

		if !transient.IsConnection(e.Err) {
			log.Warn().Err(e.Err).Int("attempt", e.Attempt).Msg("non-recoverable error")
			break
		}

		var d recovery.Decision
		if e.Attempt+1 >= maxAttempts {
			d = recovery.Decision{Action: recovery.Fail, Err: e.Err}
		} else {
			d = recoveryPolicy.Decide(p.Context(), &e.State, recovery.Failure{
				Err:    e.Err,
				Proxy:  p.Proxy,
				Source: src,
				Budget: budget,
			})
		}
		if d.Action == recovery.RotateProxy && d.Proxy == nil {
			d = recovery.Decision{Action: recovery.Fail, Err: e.Err}
		}
		e.Decision = d

		ev := log.Warn().
			Err(e.Err).
			Int("attempt", e.Attempt).
			Str("proxy", proxyString(p.Proxy)).
			Int("proxy_changes", e.State.ProxyChanges).
			Str("category", transient.Categorize(e.Err).String())
		switch d.Action {
		case recovery.RetrySameProxy:
			ev.Dur("wait", d.Wait).Msg("retrying on same proxy")
		case recovery.RotateProxy:
			ev.Str("next_proxy", d.Proxy.String()).Dur("wait", d.Wait).Msg("rotating proxy")
			p.Proxy = d.Proxy
			e.Rotations++
			handlers.run(AfterProxyRotation, &e)
		default:
			ev.Msg("recovery failed")
			if ctxErr := p.Context().Err(); ctxErr != nil {
				e.Err = urlErrorWrap(p, ctxErr)
			} else {
				e.Err = failure(&e, d)
			}
			break AttemptLoop
		}

		timer := time.NewTimer(d.Wait)
		select {
		case <-timer.C:
		case <-p.Context().Done():
			timer.Stop()
			err := p.Context().Err()
			e.Err = urlErrorWrap(p, err)
			if err == context.DeadlineExceeded {
				handlers.run(AfterPlanTimeout, &e)
			}
			log.Warn().Err(e.Err).Int("attempt", e.Attempt).Msg("plan context done during wait")
			break AttemptLoop
		}
		e.Response = nil
		e.Body = nil
		e.Attempt++
	}

	return c.end(&e, handlers)
}

// Dispatch executes p as Do does and returns only the wrapped
// response.
func (c *Client) Dispatch(p *request.Plan) (response.Wrapper, error) {
	return Dispatch(c, p)
}

func (c *Client) end(e *request.Execution, handlers *HandlerGroup) (*request.Execution, error) {
	e.End = time.Now()
	handlers.run(AfterExecutionEnd, e)
	return e, e.Err
}

func (c *Client) succeed(e *request.Execution, log *zerolog.Logger) {
	p := e.Plan
	wrap := p.Wrap
	if wrap == nil {
		wrap = response.New
	}
	e.Result = wrap(e.Response, e.Body, p.RedirectBase())
	log.Debug().
		Int("attempt", e.Attempt).
		Str("proxy", proxyString(p.Proxy)).
		Int("proxy_changes", e.State.ProxyChanges).
		Int("status", e.StatusCode()).
		Msg("attempt succeeded")
	e.State.Reset()
}

func failure(e *request.Execution, d recovery.Decision) error {
	cause := d.Err
	if cause == nil {
		cause = e.Err
	}
	if IsConfigurationError(cause) {
		return cause
	}
	return &ExhaustedError{
		Attempts:     e.Attempt + 1,
		ProxyChanges: e.Rotations,
		Proxy:        e.Plan.Proxy,
		Err:          cause,
	}
}

func (c *Client) sendAndReceive(e *request.Execution, doer HTTPDoer, handlers *HandlerGroup, timeoutPolicy timeout.Policy, log *zerolog.Logger) {
	p := e.Plan
	ctx, cancel := context.WithTimeout(p.Context(), timeoutPolicy.Timeout(e))
	defer cancel()
	e.Err = nil
	r, err := p.ToRequest(ctx)
	if err != nil {
		e.Request = nil
		e.Err = err
		return
	}
	c.decorate(r)
	e.Request = r
	handlers.run(BeforeAttempt, e)
	log.Debug().
		Int("attempt", e.Attempt).
		Str("proxy", proxyString(e.Proxy)).
		Int("proxy_changes", e.State.ProxyChanges).
		Str("method", e.Request.Method).
		Msg("sending attempt")
	e.Response, err = doer.Do(e.Request)
	if err != nil {
		e.Err = urlErrorWrap(p, err)
	} else {
		readBody(p, e, handlers)
	}
}

func readBody(p *request.Plan, e *request.Execution, handlers *HandlerGroup) {
	body := e.Response.Body
	defer func() {
		if body != nil {
			_ = body.Close()
		}
	}()
	handlers.run(BeforeReadBody, e)
	if e.Response == nil {
		panic("proxyx: attempt response was nilled")
	}
	if e.Response.Body == nil {
		panic("proxyx: attempt response body was nilled")
	}
	var err error
	e.Body, err = io.ReadAll(e.Response.Body)
	if err != nil {
		e.Err = urlErrorWrap(p, err)
	}
}

func (c *Client) decorate(r *http.Request) {
	if len(c.Header) > 0 {
		r.Header = request.MergeHeader(r.Header, c.Header)
	}
	if len(c.Query) > 0 {
		u := *r.URL
		u.RawQuery = request.MergeValues(u.Query(), c.Query).Encode()
		r.URL = &u
	}
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do. The body may be nil, a string, a []byte, an
// io.Reader or an io.ReadCloser.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// PostJSON issues a POST to the specified URL, with v encoded as a JSON
// body.
func (c *Client) PostJSON(url string, v interface{}) (*request.Execution, error) {
	return PostJSON(c, url, v)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer, if it has one.
func (c *Client) CloseIdleConnections() {
	doer := c.doer()
	if ic, ok := doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) doer() HTTPDoer {
	if c.HTTPDoer == nil {
		return defaultDoer
	}

	return c.HTTPDoer
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}

	return c.Logger
}

func (c *Client) budget(p *request.Plan) recovery.Budget {
	if p.Budget == (recovery.Budget{}) {
		return c.Budget.Normalize()
	}

	return p.Budget.Normalize()
}

func (c *Client) source(p *request.Plan) proxy.Source {
	if p.Source != nil {
		return p.Source
	}

	return c.Source
}

func proxyString(ep *proxy.Endpoint) string {
	if ep == nil {
		return ""
	}

	return ep.String()
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	u := ""
	if p.URL != nil {
		u = p.URL.String()
	}
	return &url.Error{
		Op:  urlErrorOp(p.EffectiveMethod()),
		URL: u,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
