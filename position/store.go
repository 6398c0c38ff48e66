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

// Package position implements the position store: the one owner of the
// displayed genomic position.  Every position input, the position and size
// readouts and the cross-reference links on the page are written from the
// value passed to Set, so they never disagree.
package position

import (
	"fmt"
	"strconv"

	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
)

// InputName is the name shared by every input holding the position.
const InputName = "position"

// DefaultSlop is how far, in pixels, a drag may stray outside the image and
// still count.
const DefaultSlop = 10

// Options configures a Store.
type Options struct {
	// BackSupport is set when navigation already records browser history,
	// so position changes need not mark the page dirty.
	BackSupport bool
	Slop        int
	Links       []LinkRule
}

// Store owns the displayed position of one page.
type Store struct {
	page *page.Page
	view *model.View
	opts Options

	original     *string
	originalSize int
}

// New returns a store writing into p and reading geometry and windows from
// v.
func New(p *page.Page, v *model.View, opts Options) *Store {
	return &Store{page: p, view: v, opts: opts}
}

// Get returns the position shown in the visible position input.
func (s *Store) Get() string {
	var hidden string
	for _, in := range s.page.Inputs {
		if in.Name != InputName {
			continue
		}
		if !in.Hidden {
			return in.Value
		}
		hidden = in.Value
	}
	return hidden
}

// Position parses the displayed position.
func (s *Store) Position() (genomics.Position, error) {
	return genomics.ParsePosition(s.Get())
}

// Size returns the displayed size, or 0 when none is shown.
func (s *Store) Size() int {
	n, err := strconv.Atoi(genomics.StripCommas(s.page.SizeDisplay))
	if err != nil {
		return 0
	}
	return n
}

// Set displays position.  A virtual position is disguised when a single
// window is active.  A size of zero or less leaves the size readout alone.
// Unparseable positions are still written to the inputs, but links are left
// untouched.
func (s *Store) Set(position string, size int) {
	position = genomics.StripCommas(position)
	state := s.view.State()
	var ws genomics.Windows
	if state != nil {
		ws = state.WindowSet()
	}

	p, err := genomics.ParsePosition(position)
	parsed := err == nil
	if parsed {
		if p.IsVirtual() {
			p = genomics.Disguise(p, ws)
		}
		position = p.String()
	}

	for _, in := range s.page.Inputs {
		if in.Name == InputName {
			in.Value = position
		}
	}
	if parsed {
		s.page.PositionDisplay = p.Commified()
	} else {
		s.page.PositionDisplay = position
	}

	if size > 0 {
		if parsed && !p.IsVirtual() && ws.Disguisable() {
			if n := genomics.VirtualSpanSize(p, ws); n > 0 {
				size = n
			}
		}
		s.page.SizeDisplay = genomics.Commify(size)
	}

	if parsed {
		var db string
		if state != nil {
			db = state.DB
		}
		s.fixupLinks(p, db)
	}

	if !s.opts.BackSupport {
		s.page.MarkDirty()
	}
}

func (s *Store) fixupLinks(p genomics.Position, db string) {
	for _, rule := range s.opts.Links {
		link, ok := s.page.Links[rule.LinkID]
		if !ok {
			continue
		}
		if href, ok := rule.rewrite(link.Href, p, db); ok {
			link.Href = href
		}
	}
}

// Parse reads a position shown on the page and returns it in the
// coordinates of state, undoing any disguise.
func Parse(s string, state *model.State) (genomics.Position, error) {
	p, err := genomics.ParsePosition(s)
	if err != nil {
		return p, err
	}
	if state != nil {
		p = genomics.Undisguise(p, state.WindowSet())
	}
	return p, nil
}

// SetByCoordinates displays chrom:start-end, with start and end 1-based and
// closed, and returns the position string.
func (s *Store) SetByCoordinates(chrom string, start, end int) string {
	position := fmt.Sprintf("%s:%d-%d", chrom, start, end)
	s.Set(position, end-start+1)
	return position
}

// Snapshot records the displayed position so that RevertToOriginalPos can
// restore it.  An existing snapshot is kept.
func (s *Store) Snapshot() {
	if s.original != nil {
		return
	}
	original := s.Get()
	s.original = &original
	s.originalSize = s.Size()
}

// HasSnapshot reports whether a snapshot is held.
func (s *Store) HasSnapshot() bool {
	return s.original != nil
}

// RevertToOriginalPos restores the snapshot and discards it.  Without a
// snapshot it does nothing.
func (s *Store) RevertToOriginalPos() {
	if s.original == nil {
		return
	}
	original, size := *s.original, s.originalSize
	s.ClearOriginal()
	s.Set(original, size)
}

// ClearOriginal discards the snapshot.
func (s *Store) ClearOriginal() {
	s.original = nil
	s.originalSize = 0
}

// Check reports whether the page point (pageX, pageY) of a drag is still
// over the image, allowing for the slop and excluding the side label column.
func (s *Store) Check(pageX, pageY int) bool {
	img := s.page.Image
	slop := s.opts.Slop
	var insideX int
	var rev bool
	if state := s.view.State(); state != nil {
		insideX, rev = state.InsideX, state.RevCmplDisp
	}

	leftX := img.Left + insideX - slop
	rightX := img.Left + img.Width + slop
	if rev {
		leftX = img.Left - slop
		rightX = img.Left + img.Width - insideX + slop
	}
	return pageX >= leftX && pageX < rightX &&
		pageY >= img.Top-slop && pageY < img.Top+img.Height+slop
}
