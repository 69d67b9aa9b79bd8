// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package proxyx provides an HTTP client which survives proxy failures and
transient connection errors by retrying, and by rotating through a
supply of proxies, within a bounded budget.

Create a Client to begin making requests.

	client := &proxyx.Client{}
	ex, err := client.Get("https://www.example.com")
	...
	ex, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

To send requests through proxies, give the client a proxy source and a
recovery budget. After a connection failure the client retries on the
same proxy up to MaxAttemptsPerProxy times, then fetches a fresh proxy
from the source, up to MaxProxyChanges times:

	src, err := proxy.LoadList("/etc/proxies.txt")
	...
	client := &proxyx.Client{
		Source: src,
		Budget: recovery.Budget{
			MaxProxyChanges:     10,
			MaxAttemptsPerProxy: 3,
			Sleep:               5 * time.Second,
		},
	}

The proxy may also be set per request plan, together with a plan
specific source and budget:

	p, err := request.NewPlan("", "https://www.example.com", nil)
	...
	err = p.SetProxy("socks5://10.0.0.1:1080")
	...
	w, err := client.Dispatch(p)

The zero value client sends through an http.Client whose transport is
a *proxy.Transport, which routes each attempt through the proxy the
client assigned to it. A custom HTTPDoer must do the same, for example:

	client := &proxyx.Client{
		HTTPDoer: &http.Client{
			Transport: &proxy.Transport{Base: myTransport},
			Jar:       jar,
		},
	}

Only connection failures, as classified by package transient, are
recovered from. Any HTTP response, whatever its status code, ends the
execution successfully. When the budget runs out, the client returns an
*ExhaustedError. Errors in how the client, the plan, or the proxy
supply is configured are never retried (see IsConfigurationError).

For control over the client's recovery decisions and timing, create a
custom recovery policy using package recovery:

	waiter := recovery.NewExpWaiter(250*time.Millisecond, 5*time.Second, time.Now())
	client := proxyx.Client{
		RecoveryPolicy: recovery.NewPolicy(waiter),
	}

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout:

	client := &proxyx.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

Set Logger to receive a structured zerolog entry for every attempt,
retry, proxy rotation, and failure. To hook into the fine-grained
details of the client's request execution logic, install a handler into
the appropriate handler chain:

	handlers := &proxyx.HandlerGroup{}
	handlers.PushBack(proxyx.AfterProxyRotation, proxyx.HandlerFunc(
		func(_ proxyx.Event, e *request.Execution) {
			fmt.Println("now using", e.Plan.Proxy)
		}),
	)
	client := &proxyx.Client{
		Handlers: handlers,
	}

To execute many plans at once, use a Batch.

Package proxyx provides basic interfaces for each method of the robust
client (Doer, Getter, Header, Poster, FormPoster, Dispatcher and
IdleCloser); a combined interface that composes the basic methods
(Executor); and utility functions for working with a Doer (Inflate,
Get, Head, Post, and PostForm).
*/
package proxyx
