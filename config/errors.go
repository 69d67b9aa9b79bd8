// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// An Error reports a problem with one option.
type Error struct {
	// Key is the option key, for example "connectAttempts". It is
	// empty when the problem is not specific to one key.
	Key string
	// Err is the underlying cause.
	Err error
}

func (err *Error) Error() string {
	if err.Key == "" {
		return fmt.Sprintf("proxyx/config: %v", err.Err)
	}
	return fmt.Sprintf("proxyx/config: %s: %v", err.Key, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Configuration always returns true. It marks Error as a
// configuration error for proxyx.IsConfigurationError.
func (err *Error) Configuration() bool {
	return true
}

// ErrConflictingProxies is reported when proxyFile is combined with
// proxy or proxies.
var ErrConflictingProxies = errors.New("proxyFile cannot be combined with proxy or proxies")

func validationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Err: err}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, &Error{Key: strings.TrimPrefix(fe.Namespace(), "Options."), Err: errors.New(message(fe))})
	}
	return errors.Join(errs...)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "url":
		return "must be an absolute URL"
	case "file":
		return "must name an existing file"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
