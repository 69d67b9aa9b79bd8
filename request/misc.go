// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"io"
)

// ErrBodyType is wrapped by the *EncodeError returned for a body of
// unsupported type.
var ErrBodyType = errors.New("invalid type (use nil, string, []byte, io.Reader or io.ReadCloser)")

// BodyBytes reads a raw plan body into memory so that every attempt
// of a lineage can resend it.
//
// The body may be nil, a string, a []byte or an io.Reader. A reader is
// read to the end and then closed if it is an io.Closer. Read and
// close errors are returned as is.
func BodyBytes(body interface{}) ([]byte, error) {
	var r io.Reader
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.Reader:
		r = x
	default:
		return nil, &EncodeError{Kind: "raw", Err: fmt.Errorf("%T: %w", body, ErrBodyType)}
	}

	b, err := io.ReadAll(r)
	if c, ok := r.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
