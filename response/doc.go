// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package response wraps a fully-read HTTP response with convenience
// accessors for its body, JSON content, redirect target, and character
// encoding.
//
// The Wrapper interface is the fixed set of operations the robust
// client hands back to callers. Response is the default
// implementation. A request plan may select a different implementation
// by setting its Factory.
package response
