// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Plan (describes an HTTP request
plan) and Execution (describes a Plan execution).

A Plan describes how to make a logical HTTP request, potentially
involving several attempts through several proxies. Its fields mirror
http.Request where they overlap, with a pre-buffered body plus the
Form, JSON and Multipart encodings, and add the proxy assignment, the
proxy Source used for rotation, and the recovery Budget.

	p, err := request.NewPlan("GET", "https://example.com", nil)
	...
	p.Source = proxy.NewList(eps...)
	p.Budget = recovery.Budget{MaxProxyChanges: 3, MaxAttemptsPerProxy: 2}
	e, err := client.Do(p)

A deadline on the plan context bounds the whole lineage, and is
separate from the per-attempt deadlines set by the client's
timeout.Policy. An attempt timeout is a recoverable connection failure;
a plan timeout ends the lineage.

Execution is both the output of the client's plan executing methods
and the input of event handlers and timeout policies.

MergeHeader and MergeValues combine default and caller options with the
caller winning per key.
*/
package request
