// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"net/url"
)

// MergeHeader returns a new header containing every key of caller,
// plus every key of defaults that caller does not have. Values of a key
// are never combined: the caller's values win.
func MergeHeader(caller, defaults http.Header) http.Header {
	merged := make(http.Header, len(caller)+len(defaults))
	for k, vs := range defaults {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range caller {
		merged[k] = append([]string(nil), vs...)
	}
	return merged
}

// MergeValues is the url.Values counterpart of MergeHeader. It serves
// both query strings and form bodies.
func MergeValues(caller, defaults url.Values) url.Values {
	merged := make(url.Values, len(caller)+len(defaults))
	for k, vs := range defaults {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range caller {
		merged[k] = append([]string(nil), vs...)
	}
	return merged
}
