// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// A Source supplies proxy endpoints on demand.
//
// Implementations of Source must be safe for concurrent use by multiple
// goroutines, since independent request plan executions sharing one
// Source may rotate proxies at the same time.
//
// Fetch returns a proxy endpoint or an error. A Source which cannot
// produce a well-formed endpoint must return a *SourceError, which the
// robust client treats as a configuration error: it is never retried
// and is not charged to the connection-failure budget.
type Source interface {
	Fetch(ctx context.Context) (Endpoint, error)
}

// A SourceError indicates a Source could not supply a usable endpoint,
// either because the underlying supplier failed or because what it
// supplied was malformed (for example it had no address).
type SourceError struct {
	// Source names the kind of source that failed.
	Source string
	// Err is the underlying cause.
	Err error
}

func (err *SourceError) Error() string {
	return fmt.Sprintf("proxyx/proxy: %s source: %v", err.Source, err.Err)
}

func (err *SourceError) Unwrap() error {
	return err.Err
}

// ErrNoAddress is the cause of a SourceError when a callback returns
// an Info with no address.
var ErrNoAddress = errors.New("missing proxy address")

type static struct {
	ep Endpoint
}

// Static returns a Source which always supplies ep.
func Static(ep Endpoint) Source {
	if ep.IsZero() {
		panic("proxyx/proxy: zero endpoint")
	}
	return static{ep}
}

func (s static) Fetch(_ context.Context) (Endpoint, error) {
	return s.ep, nil
}

// Info is the structure returned by a proxy callback.
//
// Address is required. It is either a bare "host:port" or a
// scheme-qualified URL such as "socks5://host:port". If Address is
// bare, Scheme names the scheme, with the empty string meaning "http".
// Metadata carries any side information about the proxy (type,
// location, expiry) and is attached to the resulting Endpoint.
type Info struct {
	Address  string
	Scheme   string
	Metadata map[string]string
}

// The CallbackFunc type is the signature of a user-supplied proxy
// callback.
type CallbackFunc func(ctx context.Context) (Info, error)

type callback struct {
	fn CallbackFunc
}

// NewCallback returns a Source which invokes fn every time an endpoint
// is needed. The callback must be safe for concurrent use.
//
// Every returned Info is validated. An error from fn, an Info without
// an address, and an Info with an unsupported scheme all result in a
// *SourceError.
func NewCallback(fn CallbackFunc) Source {
	if fn == nil {
		panic("proxyx/proxy: nil callback")
	}
	return callback{fn}
}

func (c callback) Fetch(ctx context.Context) (Endpoint, error) {
	info, err := c.fn(ctx)
	if err != nil {
		return Endpoint{}, &SourceError{Source: "callback", Err: err}
	}
	ep, err := info.endpoint()
	if err != nil {
		return Endpoint{}, &SourceError{Source: "callback", Err: err}
	}
	return ep, nil
}

func (info Info) endpoint() (Endpoint, error) {
	address := strings.TrimSpace(info.Address)
	if address == "" {
		return Endpoint{}, ErrNoAddress
	}
	if strings.Contains(address, "://") {
		return parse(address, info.Metadata)
	}
	s, err := ParseScheme(info.Scheme)
	if err != nil {
		return Endpoint{}, err
	}
	return New(address, s, info.Metadata)
}

type list struct {
	eps  []Endpoint
	next uint32
}

// NewList returns a Source which hands out the given endpoints in
// round-robin order.
func NewList(eps ...Endpoint) Source {
	if len(eps) == 0 {
		panic("proxyx/proxy: empty endpoint list")
	}
	l := &list{eps: make([]Endpoint, len(eps))}
	copy(l.eps, eps)
	return l
}

func (l *list) Fetch(_ context.Context) (Endpoint, error) {
	i := atomic.AddUint32(&l.next, 1) - 1
	return l.eps[i%uint32(len(l.eps))], nil
}

// LoadList reads a proxy list file and returns a round-robin Source
// over its endpoints.
//
// The file contains one endpoint per line in any form accepted by
// Parse. Blank lines and lines starting with '#' are ignored.
func LoadList(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Source: "file", Err: err}
	}
	defer f.Close()

	var eps []Endpoint
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ep, err := Parse(text)
		if err != nil {
			return nil, &SourceError{Source: "file", Err: fmt.Errorf("%s:%d: %w", path, line, err)}
		}
		eps = append(eps, ep)
	}
	if err := scanner.Err(); err != nil {
		return nil, &SourceError{Source: "file", Err: err}
	}
	if len(eps) == 0 {
		return nil, &SourceError{Source: "file", Err: fmt.Errorf("%s: no proxies", path)}
	}

	return NewList(eps...), nil
}
