// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient decides whether an error from an HTTP request
// attempt is a connection failure, meaning the connection to the
// target (possibly through a proxy) could not be established or was
// dropped before a complete response arrived.
//
// Connection failures are the only errors the proxyx recovery policy
// acts upon. Everything else (TLS verification failures, malformed
// responses, redirect policy errors, caller cancellation) is reported
// as Not and propagates to the caller unchanged.
//
// Package transient depends only on the standard library.
package transient
