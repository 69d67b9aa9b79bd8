// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import "strconv"

// An Event names a point in a lineage at which Client runs the
// handlers installed for it.
type Event int

const (
	// BeforeExecutionStart fires once, before anything else happens.
	// Only the execution's ID and Plan are set. A handler may replace
	// the Plan, but must not set it to nil.
	BeforeExecutionStart Event = iota
	// BeforeAttempt fires before each attempt is sent, with Request
	// and Proxy set for the attempt. Handlers may change the request.
	// Its URL and Header may be shared with the plan, so clone them
	// before writing.
	BeforeAttempt
	// BeforeReadBody fires when an attempt produced a response, of
	// any status, before its body is read. Response is set and its
	// Body is still unread.
	BeforeReadBody
	// AfterAttemptTimeout fires when an attempt timed out. Err holds
	// the timeout and AttemptTimeouts has already been incremented.
	AfterAttemptTimeout
	// AfterAttempt fires after every attempt, before the recovery
	// policy is consulted. At least one of Response and Err is set.
	// Both are set when the body could not be read.
	AfterAttempt
	// AfterProxyRotation fires when the recovery policy rotated the
	// lineage to a fresh proxy. Decision holds the rotation, the
	// plan's Proxy is the new proxy, and the execution's Proxy is
	// still the one that failed. The wait before the next attempt has
	// not begun.
	AfterProxyRotation
	// AfterPlanTimeout fires when the plan context deadline passed,
	// whether that was noticed at the end of an attempt or during the
	// wait before the next one. When both happen together it fires
	// after AfterAttempt.
	AfterPlanTimeout
	// AfterExecutionEnd fires once, last, with End set. Err is the
	// error returned by Client.Do, and Result the wrapper of a
	// successful lineage.
	AfterExecutionEnd

	eventSentinel

	numEvents = int(eventSentinel)
)

var eventNames = [numEvents]string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"BeforeReadBody",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"AfterProxyRotation",
	"AfterPlanTimeout",
	"AfterExecutionEnd",
}

// Events returns every Event, in the order Client can fire them.
func Events() []Event {
	evts := make([]Event, numEvents)
	for i := range evts {
		evts[i] = Event(i)
	}
	return evts
}

// Name returns the name of the event, for example "AfterAttempt".
func (evt Event) Name() string {
	if evt < 0 || evt >= eventSentinel {
		return "Event(" + strconv.Itoa(int(evt)) + ")"
	}
	return eventNames[evt]
}

func (evt Event) String() string {
	return evt.Name()
}
