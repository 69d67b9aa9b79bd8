// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// A Category is the connection-failure category of a particular error,
// as reported by function Categorize.
//
// The category Not means the error is not a connection failure. All
// other categories indicate the connection to the target or proxy
// failed in a way that a retry, possibly through another proxy, has
// some prospect of fixing.
type Category int

const (
	// Not indicates any error which is not a connection failure.
	Not Category = iota
	// Timeout indicates a client-side timeout, either while connecting
	// or while waiting for the response after the connection was made.
	//
	// Function Categorize returns Timeout if the error or any of its
	// wrapped causes has a Timeout() function that reports true.
	Timeout
	// ConnRefused indicates the remote host, or the proxy, refused the
	// connection (syscall.ECONNREFUSED).
	ConnRefused
	// ConnReset indicates the remote host, or the proxy, reset a
	// previously active TCP connection (syscall.ECONNRESET).
	ConnReset
	// Dial indicates a failure to establish the connection which is
	// not more precisely described by ConnRefused or Timeout, for
	// example a DNS failure, a rejected HTTP CONNECT through an HTTP
	// proxy, or a failed SOCKS5 handshake.
	Dial
	// Dropped indicates the connection was established but closed or
	// broken before a complete response was received.
	Dropped
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"Dial",
	"Dropped",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// Categorize returns the connection-failure category of the given
// error. A nil error, and an error that is not a connection failure,
// both produce the return value Not.
//
// Categorize looks at wrapped cause errors contained within err, not
// just err itself. Cancellation of a context is never a connection
// failure, since it represents a decision by the caller.
func Categorize(err error) Category {
	if err == nil || errors.Is(err, context.Canceled) {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial", "proxyconnect", "socks connect":
			return Dial
		case "read", "write":
			return Dropped
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Dropped
	}

	return Not
}

// IsConnection reports whether err is a connection failure, that is
// whether Categorize(err) returns anything other than Not.
func IsConnection(err error) bool {
	return Categorize(err) != Not
}

type hasTimeout interface {
	Timeout() bool
}
