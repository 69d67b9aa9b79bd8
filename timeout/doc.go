// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package timeout decides how long each attempt of a lineage may take.

A timed out attempt is a transient failure like a refused connection, so
the attempt timeout is what bounds the time spent on an unresponsive
proxy before the client retries it or rotates away from it.

Use Fixed for one timeout everywhere, Adaptive to give a slow proxy more
time after it has timed out once, and ByProxy to pick different
policies for direct and proxied attempts:

	client := &proxyx.Client{
		TimeoutPolicy: timeout.ByProxy(
			timeout.Fixed(2*time.Second),
			timeout.Adaptive(5*time.Second, 10*time.Second),
		),
	}
*/
package timeout
