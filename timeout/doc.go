// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout decides the connect phase and read phase timeouts for
// a request. A generic interface for timeout policies is provided,
// Policy, along with the default resolution rules and a fixed policy.
package timeout
