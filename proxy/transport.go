// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	ctrlist "container/list"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	xproxy "golang.org/x/net/proxy"
)

type endpointKey struct{}

// WithEndpoint returns a copy of ctx carrying ep as the proxy through
// which requests made with the context should be sent. A nil ep means
// the request should be sent directly.
func WithEndpoint(ctx context.Context, ep *Endpoint) context.Context {
	if ep == nil || ep.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, endpointKey{}, *ep)
}

// FromContext returns the endpoint attached to ctx by WithEndpoint.
func FromContext(ctx context.Context) (Endpoint, bool) {
	ep, ok := ctx.Value(endpointKey{}).(Endpoint)
	return ep, ok
}

// A Transport is an http.RoundTripper which sends every request through
// the proxy endpoint attached to the request context, or directly if
// no endpoint is attached.
//
// Transport keeps one underlying http.Transport per distinct endpoint,
// so pooled connections made through one proxy are never reused for a
// request meant for another. Only the most recently used transports
// are kept; the least recently used one is evicted, and its idle
// connections closed, when a new endpoint would exceed MaxTransports.
//
// HTTP and HTTPS proxies are handled by the standard library
// transport. A proxy that answers a CONNECT tunnel request with a
// non-2xx status fails the request with a *net.OpError whose Op is
// "proxyconnect" and whose Err is a *ConnectError. SOCKS5 proxies are
// dialed with golang.org/x/net/proxy.
//
// The zero value is ready to use. Transport is safe for concurrent use
// by multiple goroutines.
type Transport struct {
	// Base is the template for every underlying transport. It is
	// cloned, never used directly. If Base is nil, a clone of
	// http.DefaultTransport is used.
	Base *http.Transport

	// DialTimeout bounds how long the TCP connection to a SOCKS5 proxy
	// may take. If zero, 30 seconds is used.
	DialTimeout time.Duration

	// MaxTransports bounds the number of per-endpoint transports kept.
	// If zero, DefaultMaxTransports is used.
	MaxTransports int

	mu     sync.Mutex
	direct *http.Transport
	byURL  map[string]*ctrlist.Element
	lru    *ctrlist.List
}

// DefaultMaxTransports is the number of per-endpoint transports a
// Transport keeps when MaxTransports is zero.
const DefaultMaxTransports = 64

type transportEntry struct {
	key string
	rt  *http.Transport
}

// A ConnectError reports that an HTTP or HTTPS proxy refused to open a
// CONNECT tunnel.
type ConnectError struct {
	Proxy      string
	StatusCode int
	Status     string
}

func (err *ConnectError) Error() string {
	return "proxyx/proxy: " + err.Proxy + " refused CONNECT: " + err.Status
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	var rt *http.Transport
	var err error
	if ep, ok := FromContext(r.Context()); ok {
		rt, err = t.forEndpoint(ep)
	} else {
		rt = t.forDirect()
	}
	if err != nil {
		if r.Body != nil {
			_ = r.Body.Close()
		}
		return nil, err
	}
	return rt.RoundTrip(r)
}

// CloseIdleConnections closes idle connections on every underlying
// transport.
func (t *Transport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.direct != nil {
		t.direct.CloseIdleConnections()
	}
	if t.lru != nil {
		for el := t.lru.Front(); el != nil; el = el.Next() {
			el.Value.(*transportEntry).rt.CloseIdleConnections()
		}
	}
}

// Len returns the number of per-endpoint transports currently kept.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byURL)
}

func (t *Transport) base() *http.Transport {
	if t.Base != nil {
		return t.Base.Clone()
	}
	return http.DefaultTransport.(*http.Transport).Clone()
}

func (t *Transport) forDirect() *http.Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.direct == nil {
		t.direct = t.base()
	}
	return t.direct
}

func (t *Transport) forEndpoint(ep Endpoint) (*http.Transport, error) {
	key := ep.URL().String()

	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.byURL[key]; ok {
		t.lru.MoveToFront(el)
		return el.Value.(*transportEntry).rt, nil
	}

	rt := t.base()
	switch ep.Scheme() {
	case HTTP, HTTPS:
		rt.Proxy = http.ProxyURL(ep.URL())
		rt.OnProxyConnectResponse = rejectConnect
	case SOCKS5:
		dial, err := t.socks5(ep)
		if err != nil {
			return nil, err
		}
		rt.Proxy = nil
		rt.DialContext = dial
	default:
		return nil, &SchemeError{Scheme: ep.Scheme().String()}
	}

	if t.byURL == nil {
		t.byURL = make(map[string]*ctrlist.Element)
		t.lru = ctrlist.New()
	}
	t.evict()
	t.byURL[key] = t.lru.PushFront(&transportEntry{key: key, rt: rt})
	return rt, nil
}

// evict drops least recently used transports until there is room for
// one more. Requests in flight on an evicted transport are unaffected.
func (t *Transport) evict() {
	limit := t.MaxTransports
	if limit <= 0 {
		limit = DefaultMaxTransports
	}
	for len(t.byURL) >= limit {
		oldest := t.lru.Back()
		entry := t.lru.Remove(oldest).(*transportEntry)
		delete(t.byURL, entry.key)
		entry.rt.CloseIdleConnections()
	}
}

func rejectConnect(_ context.Context, proxyURL *url.URL, _ *http.Request, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	return &net.OpError{
		Op:  "proxyconnect",
		Net: "tcp",
		Err: &ConnectError{
			Proxy:      proxyURL.Redacted(),
			StatusCode: res.StatusCode,
			Status:     res.Status,
		},
	}
}

func (t *Transport) socks5(ep Endpoint) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	timeout := t.DialTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var auth *xproxy.Auth
	if u := ep.User(); u != nil {
		password, _ := u.Password()
		auth = &xproxy.Auth{User: u.Username(), Password: password}
	}
	d, err := xproxy.SOCKS5("tcp", ep.Address(), auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("proxyx/proxy: socks5 dialer for %s: %w", ep, err)
	}
	cd, ok := d.(xproxy.ContextDialer)
	if !ok {
		return func(_ context.Context, network, addr string) (net.Conn, error) {
			return d.Dial(network, addr)
		}, nil
	}
	return cd.DialContext, nil
}
