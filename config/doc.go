// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package config builds a robust proxyx client from an options bag.

Options come from a map, for programmatic use, or from a YAML file:

	opts, err := config.Load(map[string]interface{}{
		"proxy":           "socks5://10.0.0.1:1080",
		"connectAttempts": 3,
		"connectSleep":    "2s",
		"maxProxyChanges": 5,
		"baseUri":         "https://www.example.com",
	})
	...
	cl, err := config.NewClient(opts, os.Stderr)
	...
	p, err := cl.Plan("GET", "https://www.example.com/page", nil)
	...
	w, err := cl.Dispatch(p)

When any proxy is configured, and the recovery options are not given,
the defaults are 3 attempts per proxy, 5 seconds between attempts, and
10 proxy changes. Without a proxy the defaults are a single attempt and
no sleep.

Every error reported by this package is a configuration error as
understood by proxyx.IsConfigurationError.
*/
package config
