// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package deadline

import (
	"sync"
	"time"
)

// A Phase identifies which part of the request lifecycle a deadline
// belongs to.
type Phase int

const (
	// Idle means no deadline is armed.
	Idle Phase = iota
	// Connect is the interval from obtaining a connection until the
	// response headers are received.
	Connect
	// Read is the interval from response headers received until the
	// response body ends.
	Read
)

var phaseNames = []string{
	"Idle",
	"Connect",
	"Read",
}

// String returns the name of the phase.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Phase(?)"
	}
	return phaseNames[p]
}

// A Lease proves ownership of the deadline armed by a particular call
// to Arm or Transition. The zero Lease never owns anything.
type Lease uint64

var now = time.Now

// State is the deadline state attached to one connection. The zero
// value is an idle state ready to use.
//
// State is safe for concurrent use. Expiry callbacks are invoked on
// their own goroutine, after the state has been cleared and without
// holding the internal lock.
type State struct {
	mu      sync.Mutex
	gen     uint64
	seq     uint64
	phase   Phase
	timeout time.Duration
	start   time.Time
	timer   *time.Timer
	last    time.Duration
}

// Arm cancels any deadline currently armed, whatever its lease, and
// installs a new one of duration d starting now. When the deadline
// expires, the state is cleared and expire is called.
func (s *State) Arm(p Phase, d time.Duration, expire func()) Lease {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armLocked(p, d, expire)
}

// Transition atomically replaces the deadline owned by l with a fresh
// deadline for phase p and duration d, starting now. The remaining
// budget of the old deadline is not carried over.
//
// If l is stale, or its deadline already expired, the state is left
// alone and ok is false.
func (s *State) Transition(l Lease, p Phase, d time.Duration, expire func()) (next Lease, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownedLocked(l) {
		return 0, false
	}
	return s.armLocked(p, d, expire), true
}

// Rearm replaces the timer owned by l with one that fires when the
// remaining budget of the current deadline is used up. The phase start
// time and configured duration are unchanged, so the remaining budget
// is the configured duration minus the time elapsed since the phase
// began.
//
// If l is stale, or no budget remains, the state is cleared and ok is
// false.
func (s *State) Rearm(l Lease, expire func()) (remaining time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownedLocked(l) {
		return 0, false
	}
	remaining = s.timeout - now().Sub(s.start)
	s.timer.Stop()
	if remaining <= 0 {
		s.clearLocked()
		return 0, false
	}
	s.timer = s.startTimerLocked(remaining, expire)
	return remaining, true
}

// Remaining reports the budget left on the deadline owned by l.
func (s *State) Remaining(l Lease) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownedLocked(l) {
		return 0, false
	}
	return s.timeout - now().Sub(s.start), true
}

// Stop cancels the deadline owned by l and clears the state. It
// reports whether l still owned an armed deadline.
func (s *State) Stop(l Lease) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownedLocked(l) {
		return false
	}
	s.timer.Stop()
	s.clearLocked()
	return true
}

// Reset cancels any armed deadline regardless of lease and forgets
// the last configured duration. Connections call Reset when they are
// closed.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.clearLocked()
	s.last = 0
}

// Phase returns the phase of the armed deadline, or Idle.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Last returns the duration most recently armed on the state, even if
// that deadline has since been cleared.
func (s *State) Last() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *State) armLocked(p Phase, d time.Duration, expire func()) Lease {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	s.phase = p
	s.timeout = d
	s.last = d
	s.start = now()
	s.timer = s.startTimerLocked(d, expire)
	return Lease(s.gen)
}

func (s *State) startTimerLocked(d time.Duration, expire func()) *time.Timer {
	s.seq++
	seq := s.seq
	return time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.seq != seq || s.timer == nil {
			s.mu.Unlock()
			return
		}
		s.clearLocked()
		s.mu.Unlock()
		if expire != nil {
			expire()
		}
	})
}

func (s *State) ownedLocked(l Lease) bool {
	return l != 0 && uint64(l) == s.gen && s.timer != nil
}

func (s *State) clearLocked() {
	s.gen++
	s.phase = Idle
	s.timer = nil
	s.timeout = 0
	s.start = time.Time{}
}
