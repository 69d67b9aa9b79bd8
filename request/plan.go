// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strings"

	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/response"
	"golang.org/x/net/http/httpguts"
)

const (
	nilCtxMsg = "proxyx/request: nil context"
)

// A Plan describes one logical HTTP request, which the robust client
// may send several times, possibly through different proxies, before
// it succeeds or the recovery budget runs out.
//
// The field structure of Plan mirrors http.Request for the fields it
// shares with it. On top of these it carries the body encodings
// (Form, JSON, Multipart), the proxy assignment and its Source, the
// recovery Budget, and the response Wrapper selection.
//
// The client mutates Proxy in place when it rotates to a new proxy.
// A Plan must therefore not be executed by two goroutines at once.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.). An empty
	// string means the method is derived: POST if Form, JSON or
	// Multipart is set, GET otherwise.
	Method string

	// URL specifies the URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent.
	Header http.Header

	// Query is merged into the URL query string on each attempt. A key
	// in Query replaces the same key already present in the URL.
	Query urlpkg.Values

	// Body is the pre-buffered raw request body.
	Body []byte

	// Form is sent URL-encoded as the request body.
	Form urlpkg.Values

	// JSON, if non-nil, is marshalled and sent as the request body.
	JSON interface{}

	// Multipart is sent as a multipart/form-data request body.
	Multipart []Part

	// Close stipulates whether to close the connection after each
	// attempt.
	Close bool

	// Host optionally overrides the Host header to send.
	Host string

	// Proxy is the proxy the next attempt is sent through. Nil means
	// no proxy, unless Source is set, in which case the client fetches
	// the initial proxy from it.
	Proxy *proxy.Endpoint

	// Source supplies replacement proxies when the client rotates.
	Source proxy.Source

	// Budget bounds connection-failure recovery.
	Budget recovery.Budget

	// BaseURI, if set, overrides the request URL as the base for
	// resolving relative redirect targets.
	BaseURI *urlpkg.URL

	// Wrap builds the response Wrapper. Nil means response.New.
	Wrap response.Factory

	// ctx allows the entire Plan exec to be cancelled. It should only
	// be modified by copying the whole Plan using WithContext.
	ctx context.Context
}

// A Part is one part of a multipart/form-data body. If Filename is
// empty the part is a plain form field.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Content     []byte
}

// NewPlan wraps NewPlanWithContext using the background context.
func NewPlan(method, url string, body interface{}) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, body)
}

// NewPlanWithContext returns a new Plan given a method, URL, and
// optional body.
//
// An empty method is kept empty so that it is derived from the body
// encoding at send time. Parameter body may be nil (empty body), or it
// may be a string, []byte, io.Reader, or io.ReadCloser. If body is an
// io.Reader, it is read to the end and buffered into a []byte. If body
// is an io.ReadCloser, it is closed after buffering.
func NewPlanWithContext(ctx context.Context, method, url string, body interface{}) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("proxyx/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	u.Host = removeEmptyPort(u.Host)
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return &Plan{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   b,
		Host:   u.Host,
	}, nil
}

// Context returns the request plan's context. The returned context is
// always non-nil; it defaults to the background context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed to
// ctx, which must be non-nil.
//
// The context controls the entire lifetime of the plan execution,
// including every attempt, proxy source fetches, event handlers, and
// waits between attempts.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// EffectiveMethod returns the method the plan is sent with.
func (p *Plan) EffectiveMethod() string {
	if p.Method != "" {
		return p.Method
	}
	if len(p.Form) > 0 || p.JSON != nil || len(p.Multipart) > 0 {
		return "POST"
	}
	return "GET"
}

// SetProxy parses raw with proxy.Parse and assigns the result to
// Proxy. An unsupported scheme is rejected here, before anything is
// sent.
func (p *Plan) SetProxy(raw string) error {
	ep, err := proxy.Parse(raw)
	if err != nil {
		return err
	}
	p.Proxy = &ep
	return nil
}

// AddHeader adds the value to the header key.
func (p *Plan) AddHeader(key, value string) {
	if p.Header == nil {
		p.Header = make(http.Header)
	}
	p.Header.Add(key, value)
}

// AddQuery adds the value to the query parameter key.
func (p *Plan) AddQuery(key, value string) {
	if p.Query == nil {
		p.Query = make(urlpkg.Values)
	}
	p.Query.Add(key, value)
}

// AddForm adds the value to the form field key.
func (p *Plan) AddForm(key, value string) {
	if p.Form == nil {
		p.Form = make(urlpkg.Values)
	}
	p.Form.Add(key, value)
}

// SetJSON sets the value to be sent as a JSON body.
func (p *Plan) SetJSON(v interface{}) {
	p.JSON = v
}

// AddPart appends a part to the multipart body.
func (p *Plan) AddPart(part Part) {
	p.Multipart = append(p.Multipart, part)
}

// AddCookie adds a cookie to the request. Per RFC 6265 section 5.4,
// AddCookie does not attach more than one Cookie header field. That
// means all cookies, if any, are written into the same line,
// separated by semicolons.
func (p *Plan) AddCookie(c *http.Cookie) {
	if p.Header == nil {
		p.Header = make(http.Header)
	}
	c2 := &http.Cookie{Name: c.Name, Value: c.Value}
	s := c2.String()
	if h := p.Header.Get("Cookie"); h != "" {
		p.Header.Set("Cookie", h+"; "+s)
	} else {
		p.Header.Set("Cookie", s)
	}
}

// SetBasicAuth sets the request plan's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
func (p *Plan) SetBasicAuth(username, password string) {
	if p.Header == nil {
		p.Header = make(http.Header)
	}
	p.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToRequest creates an HTTP request for one attempt of the plan. The
// context of the new request is ctx with the plan's current proxy
// attached to it (see proxy.WithEndpoint).
//
// An error is returned if the plan has no URL or its body cannot be
// encoded. Body encoding errors have type *EncodeError.
func (p *Plan) ToRequest(ctx context.Context) (*http.Request, error) {
	if p.URL == nil {
		return nil, errors.New("proxyx/request: nil URL")
	}

	header := p.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	body, contentType, err := p.encodeBody()
	if err != nil {
		return nil, err
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	r := (&http.Request{
		Method:     p.EffectiveMethod(),
		URL:        p.requestURL(),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Close:      p.Close,
		Host:       p.Host,
	}).WithContext(proxy.WithEndpoint(ctx, p.Proxy))
	setBody(r, body)
	return r, nil
}

// RedirectBase returns the URL relative redirect targets are resolved
// against: BaseURI if set, otherwise URL.
func (p *Plan) RedirectBase() *urlpkg.URL {
	if p.BaseURI != nil {
		return p.BaseURI
	}
	return p.URL
}

func (p *Plan) requestURL() *urlpkg.URL {
	if len(p.Query) == 0 {
		return p.URL
	}
	u := *p.URL
	q := MergeValues(p.Query, u.Query())
	u.RawQuery = q.Encode()
	return &u
}

// basicAuth is lifted verbatim from net/http/client.go.
//
// See 2 (end of page 4) https://www.ietf.org/rfc/rfc2617.txt
// "To receive authorization, the client sends the userid and password,
// separated by a single colon (":") character, within a base64
// encoded string in the credentials."
// It is not meant to be urlencoded.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// validMethod reports whether method is empty or an RFC 7230 token.
func validMethod(method string) bool {
	return strings.IndexFunc(method, func(r rune) bool {
		return !httpguts.IsTokenRune(r)
	}) == -1
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
