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

package refresh

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	s := NewStack()
	if _, ok := s.Current(); ok {
		t.Fatalf("Empty stack has a current entry")
	}
	for _, p := range []string{"a", "b", "c"} {
		s.PushState(Entry{Position: p})
	}

	steps := []struct {
		name string
		move func() (Entry, bool)
		want string
		ok   bool
	}{
		{"back", s.Back, "b", true},
		{"back again", s.Back, "a", true},
		{"back at start", s.Back, "", false},
		{"forward", s.Forward, "b", true},
	}
	for _, step := range steps {
		e, ok := step.move()
		if ok != step.ok || e.Position != step.want {
			t.Errorf("Wrong %s: got (%q, %t), want (%q, %t)", step.name, e.Position, ok, step.want, step.ok)
		}
	}

	s.PushState(Entry{Position: "d"})
	if got, want := s.Len(), 3; got != want {
		t.Errorf("Forward entries kept after push: got %d entries, want %d", got, want)
	}
	if _, ok := s.Forward(); ok {
		t.Errorf("Forward succeeded at the newest entry")
	}
	s.ReplaceState(Entry{Position: "e"})
	if e, _ := s.Current(); e.Position != "e" {
		t.Errorf("Wrong entry after replace: got %q, want %q", e.Position, "e")
	}
}

func TestSetInHistory(t *testing.T) {
	tp := newTestPage(t, baseState(), Options{InPlaceUpdate: true})
	defer tp.server.Close()
	history := NewStack()
	tp.SetHistory(history)

	tp.pos.SetByCoordinates("chr1", 1, 1000)
	tp.SetInHistory()
	tp.SetInHistory()
	assert.Equal(t, 1, history.Len())
	assert.False(t, tp.page.IsDirty())

	tp.pos.SetByCoordinates("chr1", 1, 500)
	tp.SetInHistory()
	assert.Equal(t, 2, history.Len())
}

func TestPopState(t *testing.T) {
	const sameDelta = "position=chr1:1-1000"
	testCases := []struct {
		name     string
		entry    Entry
		dirty    bool
		want     Action
		position string
		requests int
		loads    int
	}{
		{"unchanged", Entry{Position: "chr1:1-1000", TrackDelta: sameDelta}, false, Unchanged, "chr1:1-1000", 0, 0},
		{"position only", Entry{Position: "chr1:101-200", TrackDelta: sameDelta}, false, Replayed, "chr1:101-200", 0, 0},
		{"track delta", Entry{Position: "chr1:101-200", TrackDelta: "position=chr1:101-200&knownGene=pack"}, false, Refreshed, "chr1:1-1000", 1, 0},
		{"dirty same chromosome", Entry{Position: "chr1:101-200", TrackDelta: "position=chr1:101-200"}, true, Refreshed, "chr1:1-1000", 1, 0},
		{"dirty other chromosome", Entry{Position: "chr2:1-100", TrackDelta: "position=chr2:1-100"}, true, Reloaded, "chr1:1-1000", 0, 1},
		{"unreadable delta", Entry{Position: "chr1:1-100", TrackDelta: "%zz"}, false, Reloaded, "chr1:1-1000", 0, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tp := newTestPage(t, baseState(), Options{InPlaceUpdate: true})
			defer tp.server.Close()
			tp.renderer.respond = func(url.Values) (int, string) { return http.StatusOK, render(t, baseState()) }
			tp.pos.SetByCoordinates("chr1", 1, 1000)
			tp.page.ClearDirty()
			if tc.dirty {
				tp.page.MarkDirty()
			}

			got := tp.PopState(tc.entry)
			tp.loop.Flush()

			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.position, tp.pos.Get())
			require.Len(t, tp.renderer.requests, tc.requests)
			if tc.requests > 0 {
				want, err := url.ParseQuery(tc.entry.TrackDelta)
				require.NoError(t, err)
				for name := range want {
					assert.Equal(t, want.Get(name), tp.renderer.requests[0].Get(name))
				}
			}
			assert.Len(t, tp.page.Loads, tc.loads)
		})
	}
}

func TestRestore(t *testing.T) {
	tp := newTestPage(t, baseState(), Options{InPlaceUpdate: true})
	defer tp.server.Close()
	assert.Equal(t, Unchanged, tp.Restore())

	history := NewStack()
	tp.SetHistory(history)
	history.PushState(Entry{Position: "chr1:5-10", TrackDelta: "position=chr1:1-1000"})
	assert.Equal(t, Replayed, tp.Restore())
	assert.Equal(t, "chr1:5-10", tp.pos.Get())
}
