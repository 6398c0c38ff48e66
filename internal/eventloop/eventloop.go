// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package eventloop runs callbacks one at a time on a single goroutine.
// Interaction handlers and network completions of a session are all
// delivered through one Loop, so the state they touch needs no locking.
package eventloop

import (
	"context"
	"sync"
	"time"
)

// Loop is a FIFO of callbacks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	pending int
	wake    chan struct{}
}

// New returns an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Go runs work on its own goroutine and queues the callback it returns, if
// any.  work must not touch loop-owned state.
func (l *Loop) Go(work func() func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		fn := work()
		l.mu.Lock()
		l.pending--
		if fn != nil {
			l.queue = append(l.queue, fn)
		}
		l.mu.Unlock()
		l.signal()
	}()
}

// After queues fn once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	time.AfterFunc(d, func() {
		l.mu.Lock()
		l.pending--
		l.queue = append(l.queue, fn)
		l.mu.Unlock()
		l.signal()
	})
}

// next pops the first callback.  idle is true when nothing is queued and no
// Go or After work is outstanding.
func (l *Loop) next() (fn func(), idle bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, l.pending == 0
	}
	fn = l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, false
}

// Run executes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if fn, _ := l.next(); fn != nil {
			fn()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Flush executes callbacks on the calling goroutine until the loop is idle,
// waiting for outstanding Go and After work.  It must not be called while
// Run is active.
func (l *Loop) Flush() {
	for {
		fn, idle := l.next()
		if fn != nil {
			fn()
			continue
		}
		if idle {
			return
		}
		<-l.wake
	}
}
