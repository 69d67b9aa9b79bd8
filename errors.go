// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import (
	"errors"
	"fmt"

	"github.com/gogama/proxyx/proxy"
	"github.com/gogama/proxyx/request"
	"github.com/gogama/proxyx/response"
)

// An ExhaustedError is returned by Client.Do when a request plan
// execution ran out of recovery budget: every permitted attempt on
// every permitted proxy failed with a connection error.
type ExhaustedError struct {
	// Attempts is the total number of attempts made.
	Attempts int
	// ProxyChanges is the number of times the proxy was rotated.
	ProxyChanges int
	// Proxy is the proxy in use when the last attempt failed. It is
	// nil if the plan was sent directly.
	Proxy *proxy.Endpoint
	// Err is the last connection error.
	Err error
}

func (err *ExhaustedError) Error() string {
	p := "none"
	if err.Proxy != nil {
		p = err.Proxy.String()
	}
	return fmt.Sprintf("proxyx: recovery exhausted after %d attempts and %d proxy changes (last proxy %s): %v",
		err.Attempts, err.ProxyChanges, p, err.Err)
}

func (err *ExhaustedError) Unwrap() error {
	return err.Err
}

// IsConfigurationError reports whether err, or any error it wraps, is
// a configuration error: a failure which is caused by how the client,
// the request plan, or the proxy supply is set up, rather than by the
// network. Configuration errors are never retried.
//
// The configuration errors are *proxy.SourceError, *proxy.SchemeError,
// *request.EncodeError, *response.EncodingError, *response.JSONError,
// and any error with a Configuration method returning true, such as
// the errors produced by package config.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}

	var sourceErr *proxy.SourceError
	var schemeErr *proxy.SchemeError
	var encodeErr *request.EncodeError
	var encodingErr *response.EncodingError
	var jsonErr *response.JSONError
	var conf configurationError
	switch {
	case errors.As(err, &sourceErr),
		errors.As(err, &schemeErr),
		errors.As(err, &encodeErr),
		errors.As(err, &encodingErr),
		errors.As(err, &jsonErr):
		return true
	case errors.As(err, &conf):
		return conf.Configuration()
	default:
		return false
	}
}

type configurationError interface {
	error
	Configuration() bool
}
