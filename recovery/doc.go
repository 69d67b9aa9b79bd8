// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package recovery decides how a robust HTTP client recovers from
connection failures: retry on the same proxy, rotate to a freshly
fetched proxy, or give up.

Recovery is bounded by a Budget. Each request lineage owns one State
whose counters track attempts on the current proxy and proxy changes
used so far. After every connection failure the client asks its Policy
for a Decision:

	1. With no proxy, retry until MaxAttemptsPerProxy attempts are used.
	2. With a proxy, retry on it until MaxAttemptsPerProxy attempts are
	   used, then rotate to a proxy fetched from the Source while
	   ProxyChanges < MaxProxyChanges, then fail.

A proxy source failure is a configuration error. It fails the lineage
at once and is not charged against the budget.

DefaultPolicy implements the rules above and waits Budget.Sleep between
attempts. Use NewPolicy with a different Waiter, for example one from
NewExpWaiter, to change only the wait period.
*/
package recovery
