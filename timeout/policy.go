// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/timedhttp/request"
)

// DefaultTimeout is the timeout used for any phase whose timeout is not
// otherwise determined.
const DefaultTimeout = 3000 * time.Millisecond

// A Pair holds the timeouts for the two phases of a request.
type Pair struct {
	// Connect bounds the time from obtaining a connection until the
	// response headers arrive.
	Connect time.Duration
	// Read bounds the time from the response headers arriving until
	// the response body ends.
	Read time.Duration
}

// A Policy defines a timeout policy which may be plugged into the
// client (timedhttp.Client) to decide the connect and read timeouts of
// each request.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeouts returns the timeouts to apply to the request described
	// by o.
	Timeouts(o *request.Options) Pair
}

// DefaultPolicy resolves timeouts from the request options:
//
// • if ConnectTimeout or ReadTimeout is set, each phase uses its own
// value, or DefaultTimeout if its own value is unset;
//
// • otherwise, if Timeout is set, both phases use it;
//
// • otherwise both phases use DefaultTimeout.
//
// A zero or negative duration is unset.
var DefaultPolicy Policy = resolver{}

// Fixed constructs a timeout policy that ignores the request options
// and always returns the given connect and read timeouts.
func Fixed(connect, read time.Duration) Policy {
	return fixed{Connect: connect, Read: read}
}

// Resolve applies DefaultPolicy's rules to the three timeout settings.
func Resolve(timeout, connect, read time.Duration) Pair {
	if connect > 0 || read > 0 {
		return Pair{
			Connect: orDefault(connect),
			Read:    orDefault(read),
		}
	}
	d := orDefault(timeout)
	return Pair{Connect: d, Read: d}
}

type resolver struct{}

func (_ resolver) Timeouts(o *request.Options) Pair {
	return Resolve(o.Timeout, o.ConnectTimeout, o.ReadTimeout)
}

type fixed Pair

func (f fixed) Timeouts(_ *request.Options) Pair {
	return Pair(f)
}

func orDefault(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return DefaultTimeout
}
