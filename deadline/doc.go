// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package deadline tracks the phase deadline installed against a single
connection.

A connection carries at most one armed deadline at a time. The connect
phase deadline is armed when the request obtains the connection and is
atomically replaced by the read phase deadline when response headers
arrive:

	lease := st.Arm(deadline.Connect, 3*time.Second, abortConnect)
	...
	lease, ok := st.Transition(lease, deadline.Read, 3*time.Second, abortRead)

Every operation after Arm is scoped to the Lease it returned. Once the
connection is handed to another request (or the deadline fires, or is
stopped) the old Lease goes stale and all operations using it behave as
though no deadline exists. This is what keeps state from leaking across
pooled connection reuse.
*/
package deadline
