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
	"fmt"
	"net/url"

	"github.com/googlegenomics/trackview/position"
	"github.com/sirupsen/logrus"
)

// Entry is the payload recorded in browser history for one view.
type Entry struct {
	Position string `json:"position"`
	// TrackDelta is the server's key for the position plus track
	// configuration the view was rendered with.
	TrackDelta string `json:"lastDbPos"`
	SessionID  string `json:"hgsid"`
}

// History is the browser history API.
type History interface {
	PushState(e Entry)
	ReplaceState(e Entry)
	// Current returns the entry of the page being shown.
	Current() (Entry, bool)
}

// Stack is an in-memory History with back and forward navigation.
type Stack struct {
	entries []Entry
	index   int
}

// NewStack returns an empty history.
func NewStack() *Stack {
	return &Stack{index: -1}
}

// PushState records e as the newest entry, dropping any forward entries.
func (s *Stack) PushState(e Entry) {
	s.entries = append(s.entries[:s.index+1], e)
	s.index++
}

// ReplaceState overwrites the current entry.
func (s *Stack) ReplaceState(e Entry) {
	if s.index < 0 {
		s.PushState(e)
		return
	}
	s.entries[s.index] = e
}

// Current returns the current entry.
func (s *Stack) Current() (Entry, bool) {
	if s.index < 0 {
		return Entry{}, false
	}
	return s.entries[s.index], true
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Back moves to the previous entry and returns it.
func (s *Stack) Back() (Entry, bool) {
	if s.index <= 0 {
		return Entry{}, false
	}
	s.index--
	return s.entries[s.index], true
}

// Forward moves to the next entry and returns it.
func (s *Stack) Forward() (Entry, bool) {
	if s.index+1 >= len(s.entries) {
		return Entry{}, false
	}
	s.index++
	return s.entries[s.index], true
}

// Action is how the page was reconciled with a history entry.
type Action int

const (
	// Unchanged means the entry matched what is shown.
	Unchanged Action = iota
	// Replayed means only the displayed position was restored.
	Replayed
	// Refreshed means a partial update was issued for the entry's tracks.
	Refreshed
	// Reloaded means the page was reloaded.
	Reloaded
)

func (a Action) String() string {
	switch a {
	case Unchanged:
		return "unchanged"
	case Replayed:
		return "replayed"
	case Refreshed:
		return "refreshed"
	case Reloaded:
		return "reloaded"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// SetInHistory records the displayed view in browser history.  The current
// entry is replaced when it already describes the view.
func (p *Protocol) SetInHistory() {
	if p.history == nil {
		return
	}
	e := Entry{Position: p.pos.Get(), SessionID: p.opts.SessionID}
	if state := p.view.State(); state != nil {
		e.TrackDelta = state.LastDbPos
	}
	if current, ok := p.history.Current(); ok && current == e {
		p.history.ReplaceState(e)
	} else {
		p.history.PushState(e)
	}
	p.page.ClearDirty()
}

// Restore reconciles a page shown again from the browser's cache with the
// current history entry.
func (p *Protocol) Restore() Action {
	if p.history == nil {
		return Unchanged
	}
	e, ok := p.history.Current()
	if !ok {
		return Unchanged
	}
	return p.PopState(e)
}

// PopState reconciles the page with the entry the browser navigated to.  An
// entry with the displayed track configuration only restores the position.
// Otherwise the entry's configuration is requested again, or the page is
// reloaded when it was changed since it was cached and the entry shows
// another chromosome.
func (p *Protocol) PopState(e Entry) Action {
	log := p.log.WithFields(logrus.Fields{"position": e.Position, "lastDbPos": e.TrackDelta})
	state := p.view.State()
	if state == nil {
		log.Info("No state to reconcile history with, reloading")
		p.submit(url.Values{position.InputName: {e.Position}})
		return Reloaded
	}

	if e.TrackDelta == state.LastDbPos {
		if e.Position == "" || e.Position == p.pos.Get() {
			return Unchanged
		}
		p.pos.Set(e.Position, 0)
		return Replayed
	}

	params, err := url.ParseQuery(e.TrackDelta)
	if err != nil {
		log.WithError(err).Warn("Unreadable history entry, reloading")
		p.submit(url.Values{position.InputName: {e.Position}})
		return Reloaded
	}
	if p.page.IsDirty() {
		if pos, err := position.Parse(e.Position, state); err != nil || pos.Chrom != state.ChromName {
			log.Info("History entry on another chromosome, reloading")
			p.submit(params)
			return Reloaded
		}
	}

	if e.Position != "" {
		p.pos.Set(e.Position, 0)
	}
	if !p.opts.InPlaceUpdate || p.ManyTracks() {
		p.submit(params)
		return Reloaded
	}
	p.RequestPartialUpdate("", params, nil)
	return Refreshed
}
