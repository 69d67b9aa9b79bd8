// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package proxy describes proxy endpoints, supplies them on demand, and
routes HTTP requests through them.

An Endpoint is an immutable proxy address with a scheme drawn from the
closed set HTTP, HTTPS and SOCKS5. Construct endpoints with New or Parse;
an unknown scheme is rejected with a *SchemeError at construction time,
never later when a request is sent.

A Source supplies endpoints on demand. The robust client fetches from a
Source when a request plan starts without a proxy and whenever its
recovery policy decides to rotate to a new proxy:

	src := proxy.NewCallback(func(ctx context.Context) (proxy.Info, error) {
		return proxy.Info{Address: "10.0.0.7:1080", Scheme: "socks5"}, nil
	})

Sources may be shared by many concurrent request plan executions, so
every Source in this package is safe for concurrent use. Wrap a Source
with Throttle to bound how fast concurrent executions can pull new
proxies from it.

Transport is an http.RoundTripper which sends each request through the
endpoint attached to its context with WithEndpoint, or directly if no
endpoint is attached.
*/
package proxy
