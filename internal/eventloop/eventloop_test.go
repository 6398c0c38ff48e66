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

package eventloop

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestFlushOrder(t *testing.T) {
	l := New()
	var got []string
	l.Post(func() {
		got = append(got, "a")
		l.Post(func() { got = append(got, "c") })
	})
	l.Post(func() { got = append(got, "b") })
	l.Flush()

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong callback order: got %v, want %v", got, want)
	}
}

func TestGo(t *testing.T) {
	l := New()
	release := make(chan struct{})
	var got []string
	l.Go(func() func() {
		<-release
		return func() { got = append(got, "done") }
	})
	l.Post(func() {
		got = append(got, "posted")
		close(release)
	})
	l.Go(func() func() { return nil })
	l.Flush()

	if want := []string{"posted", "done"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong callback order: got %v, want %v", got, want)
	}
}

func TestAfter(t *testing.T) {
	l := New()
	var got []string
	start := time.Now()
	l.After(20*time.Millisecond, func() { got = append(got, "later") })
	l.Post(func() { got = append(got, "now") })
	l.Flush()

	if want := []string{"now", "later"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong callback order: got %v, want %v", got, want)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("After() ran early: %v", elapsed)
	}
}

func TestRun(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() did not execute the posted callback")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Wrong Run() error: got %v, want %v", err, context.Canceled)
	}
}
