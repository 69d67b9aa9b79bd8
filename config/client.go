// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/proxyx"
	"github.com/gogama/proxyx/cookie"
	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/request"
	"github.com/gogama/proxyx/timeout"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// A Client is a proxyx.Client built from Options, together with the
// cookie jar and base URI it was configured with.
type Client struct {
	*proxyx.Client
	// Jar is the cookie jar of the underlying http.Client.
	Jar *cookie.Jar
	// BaseURI is applied to plans created with Plan. It may be nil.
	BaseURI *url.URL
	// Transport is the proxy-routing transport of the underlying
	// http.Client.
	Transport *proxy.Transport
}

// NewClient builds a client from o, logging to w. If w is nil the
// client does not log.
func NewClient(o *Options, w io.Writer) (*Client, error) {
	if err := Validate(o); err != nil {
		return nil, err
	}

	jar, err := newJar(o.Cookies)
	if err != nil {
		return nil, err
	}

	src, err := newSource(o)
	if err != nil {
		return nil, err
	}

	var base *url.URL
	if o.BaseURI != "" {
		if base, err = url.Parse(o.BaseURI); err != nil {
			return nil, &Error{Key: "baseUri", Err: err}
		}
	}

	tr := &proxy.Transport{}
	cl := &proxyx.Client{
		HTTPDoer: &http.Client{Transport: tr, Jar: jar},
		Budget: recovery.Budget{
			MaxProxyChanges:     o.MaxProxyChanges,
			MaxAttemptsPerProxy: o.ConnectAttempts,
			Sleep:               o.ConnectSleep,
		},
		Source: src,
		Header: header(o.Headers),
		Query:  values(o.Query),
	}
	if o.Timeout > 0 {
		cl.TimeoutPolicy = timeout.Fixed(o.Timeout)
	}
	if w != nil {
		logger := NewLogger(o.Log, w)
		cl.Logger = &logger
	}

	return &Client{
		Client:    cl,
		Jar:       jar,
		BaseURI:   base,
		Transport: tr,
	}, nil
}

// Plan creates a request plan as request.NewPlan does, and applies the
// client's base URI to it.
func (c *Client) Plan(method, url string, body interface{}) (*request.Plan, error) {
	p, err := request.NewPlan(method, url, body)
	if err != nil {
		return nil, err
	}
	c.Apply(p)
	return p, nil
}

// Apply sets the client's base URI on p unless p already has one.
func (c *Client) Apply(p *request.Plan) {
	if p.BaseURI == nil && c.BaseURI != nil {
		u := *c.BaseURI
		p.BaseURI = &u
	}
}

// NewLogger returns a zerolog logger writing to w at the configured
// level, as JSON or, if Pretty is set, as console text.
func NewLogger(o LogOptions, w io.Writer) zerolog.Logger {
	if o.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(o.Level)
	if err != nil || o.Level == "" {
		level = zerolog.InfoLevel
	}
	return l.Level(level)
}

func newJar(cookies []Cookie) (*cookie.Jar, error) {
	seeds := make([]*http.Cookie, len(cookies))
	for i := range cookies {
		c := &cookies[i]
		seeds[i] = &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
	}
	jar, err := cookie.NewJar(seeds...)
	if err != nil {
		return nil, &Error{Key: "cookies", Err: err}
	}
	return jar, nil
}

func newSource(o *Options) (proxy.Source, error) {
	var src proxy.Source
	switch {
	case o.ProxyFile != "":
		var err error
		if src, err = proxy.LoadList(o.ProxyFile); err != nil {
			return nil, &Error{Key: "proxyFile", Err: err}
		}
	case o.Proxy != "" || len(o.Proxies) > 0:
		raw := o.Proxies
		if o.Proxy != "" {
			raw = append([]string{o.Proxy}, raw...)
		}
		eps := make([]proxy.Endpoint, len(raw))
		for i := range raw {
			ep, err := proxy.Parse(raw[i])
			if err != nil {
				key := "proxies"
				if o.Proxy != "" && i == 0 {
					key = "proxy"
				}
				return nil, &Error{Key: key, Err: err}
			}
			eps[i] = ep
		}
		if len(eps) == 1 {
			src = proxy.Static(eps[0])
		} else {
			src = proxy.NewList(eps...)
		}
	default:
		return nil, nil
	}

	if o.ProxyRate > 0 {
		burst := o.ProxyBurst
		if burst < 1 {
			burst = 1
		}
		src = proxy.Throttle(src, rate.NewLimiter(rate.Limit(o.ProxyRate), burst))
	}
	return src, nil
}

func header(m map[string]string) http.Header {
	if len(m) == 0 {
		return nil
	}
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func values(m map[string]string) url.Values {
	if len(m) == 0 {
		return nil
	}
	q := make(url.Values, len(m))
	for k, v := range m {
		q.Set(k, v)
	}
	return q
}
