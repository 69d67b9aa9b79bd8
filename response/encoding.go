// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package response

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// An EncodingError indicates a character encoding conversion could not
// be done, either because an encoding name is not supported or because
// the body could not be represented in the target encoding.
type EncodingError struct {
	From string
	To   string
	Err  error
}

func (err *EncodingError) Error() string {
	return fmt.Sprintf("proxyx/response: convert %s to %s: %v", err.From, err.To, err.Err)
}

func (err *EncodingError) Unwrap() error {
	return err.Err
}

// ConvertEncoding returns a new *Response whose body is this response's
// body transcoded from encoding from to encoding to. Encoding names
// are those of the WHATWG Encoding Standard, for example "utf-8",
// "windows-1251" or "koi8-r". The receiver is not modified.
func (r *Response) ConvertEncoding(from, to string) (Wrapper, error) {
	body, err := Transcode(r.body, from, to)
	if err != nil {
		return nil, err
	}
	return &Response{raw: r.raw, body: body, base: r.base}, nil
}

// Transcode converts b from encoding from to encoding to.
func Transcode(b []byte, from, to string) ([]byte, error) {
	src, err := lookup(from)
	if err != nil {
		return nil, &EncodingError{From: from, To: to, Err: err}
	}
	dst, err := lookup(to)
	if err != nil {
		return nil, &EncodingError{From: from, To: to, Err: err}
	}
	utf8, err := src.NewDecoder().Bytes(b)
	if err != nil {
		return nil, &EncodingError{From: from, To: to, Err: err}
	}
	out, err := dst.NewEncoder().Bytes(utf8)
	if err != nil {
		return nil, &EncodingError{From: from, To: to, Err: err}
	}
	return out, nil
}

func lookup(name string) (encoding.Encoding, error) {
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return e, nil
}
