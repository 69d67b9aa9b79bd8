// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// A Wrapper exposes a completed HTTP response.
//
// Implementations must not retain the raw response body stream; the
// body has already been read and is available through Body.
type Wrapper interface {
	// Body returns the complete response body.
	Body() []byte
	// IsJSON reports whether the body is a JSON object or array.
	IsJSON() bool
	// ParseJSON decodes the body into a generic value. If the body is
	// not valid JSON, ParseJSON returns a *JSONError when strict is
	// true, and a nil value and nil error otherwise.
	ParseJSON(strict bool) (interface{}, error)
	// DecodeJSON decodes the body into v.
	DecodeJSON(v interface{}) error
	// Redirect returns the target of the Location header, resolved
	// against the base URL if it is relative, and true; or the empty
	// string and false if there is no Location header.
	Redirect() (string, bool)
	// ConvertEncoding returns a new Wrapper whose body is the body of
	// this one transcoded from one character encoding to another.
	ConvertEncoding(from, to string) (Wrapper, error)
	// Field returns one of a closed set of raw response fields.
	Field(f Field) interface{}
	// Raw returns the raw response. Its body has already been consumed.
	Raw() *http.Response
}

// A Factory builds a Wrapper from a raw HTTP response, its fully-read
// body, and the base URL used to resolve relative redirects.
type Factory func(raw *http.Response, body []byte, base *url.URL) Wrapper

// A Field names a raw response field readable through Wrapper.Field.
type Field int

const (
	// StatusCode selects the int status code.
	StatusCode Field = iota
	// Status selects the status line text, e.g. "200 OK".
	Status
	// Header selects the http.Header.
	Header
	// Proto selects the protocol, e.g. "HTTP/1.1".
	Proto
	// ContentLength selects the int64 content length.
	ContentLength
)

// Response is the default Wrapper implementation.
type Response struct {
	raw  *http.Response
	body []byte
	base *url.URL
}

var _ Wrapper = (*Response)(nil)

// New is the default Factory. It returns a *Response.
func New(raw *http.Response, body []byte, base *url.URL) Wrapper {
	if raw == nil {
		panic("proxyx/response: nil response")
	}
	return &Response{raw: raw, body: body, base: base}
}

// Body returns the complete response body.
func (r *Response) Body() []byte {
	return r.body
}

// IsJSON reports whether the body is non-empty, begins with a literal
// '{' or '[' (leading whitespace disqualifies it), and is valid JSON.
func (r *Response) IsJSON() bool {
	return IsJSON(r.body)
}

// IsJSON reports whether b is a JSON object or array with no leading
// whitespace.
func IsJSON(b []byte) bool {
	if len(b) == 0 || (b[0] != '{' && b[0] != '[') {
		return false
	}
	return json.Valid(b)
}

// ParseJSON decodes the body into a generic value: map[string]interface{}
// for objects, []interface{} for arrays, and so on.
func (r *Response) ParseJSON(strict bool) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(r.body, &v); err != nil {
		if strict {
			return nil, &JSONError{Err: err}
		}
		return nil, nil
	}
	return v, nil
}

// DecodeJSON decodes the body into v. A body that is not valid JSON
// for v yields a *JSONError.
func (r *Response) DecodeJSON(v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(r.body))
	if err := d.Decode(v); err != nil {
		return &JSONError{Err: err}
	}
	return nil
}

// Redirect returns the redirect target named by the Location header.
//
// An absolute http or https Location is returned unchanged. Any other
// Location is joined to the scheme and host of the base URL as a
// root-relative path; the base path is never consulted. If there is
// no base URL, a relative Location is returned unchanged.
func (r *Response) Redirect() (string, bool) {
	loc := r.raw.Header.Get("Location")
	if loc == "" {
		return "", false
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") || r.base == nil {
		return loc, true
	}
	if !strings.HasPrefix(loc, "/") {
		loc = "/" + loc
	}
	return r.base.Scheme + "://" + r.base.Host + loc, true
}

// Field returns the raw response field selected by f, or nil if f is
// not a known Field.
func (r *Response) Field(f Field) interface{} {
	switch f {
	case StatusCode:
		return r.raw.StatusCode
	case Status:
		return r.raw.Status
	case Header:
		return r.raw.Header
	case Proto:
		return r.raw.Proto
	case ContentLength:
		return r.raw.ContentLength
	default:
		return nil
	}
}

// Raw returns the raw response.
func (r *Response) Raw() *http.Response {
	return r.raw
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int {
	return r.raw.StatusCode
}

// A JSONError indicates a response body is not valid JSON.
type JSONError struct {
	Err error
}

func (err *JSONError) Error() string {
	return fmt.Sprintf("proxyx/response: invalid JSON body: %v", err.Err)
}

func (err *JSONError) Unwrap() error {
	return err.Err
}
