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

package drag

import (
	"math"
	"net/url"
	"time"

	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/internal/eventloop"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
	"github.com/googlegenomics/trackview/position"
)

const (
	// ideogramMoveSlop is how far the pointer moves before a press becomes a
	// drag.
	ideogramMoveSlop = 2
	// ideogramEdgeSlop is how far past the chromosome a drag may end and
	// still be clamped to it.
	ideogramEdgeSlop = 20
	// ideogramMinBases is the smallest drag not taken as a click.
	ideogramMinBases = 20
)

// Chromosome is the chromosome drawn in the ideogram.  Left and Width are
// its pixel extent within the ideogram image.
type Chromosome struct {
	Name    string
	Size    int
	Left    int
	Width   int
	Reverse bool
}

func (c Chromosome) toBases(x int) int {
	offset := float64(x-c.Left) / float64(c.Width)
	if c.Reverse {
		offset = 1 - offset
	}
	return int(math.Round(offset * float64(c.Size)))
}

// normalize orders [start,end) and shifts it inside the chromosome, keeping
// its width when possible.
func (c Chromosome) normalize(start, end int) genomics.Position {
	if end < start {
		start, end = end, start
	}
	width := end - start
	if start < 0 {
		start, end = 0, width
	}
	if end > c.Size {
		start, end = c.Size-width, c.Size
		if start < 0 {
			start = 0
		}
	}
	return genomics.FromHalfOpen(c.Name, start, end)
}

// Ideogram handles drags over the chromosome ideogram.  A drag selects the
// bases under it; a click, or a drag under ideogramMinBases, recenters the
// view on the clicked base.
type Ideogram struct {
	loop   *eventloop.Loop
	page   *page.Page
	view   *model.View
	pos    *position.Store
	nav    Navigator
	chrom  Chromosome
	height int
	delay  time.Duration

	// Confirm is asked before jumping to a dragged region.  Nil accepts.
	Confirm func(genomics.Position) bool

	pressed bool
	moved   bool
	down    int
}

// NewIdeogram returns a handler for an ideogram image height pixels high
// showing chrom.
func NewIdeogram(loop *eventloop.Loop, p *page.Page, v *model.View, pos *position.Store, nav Navigator, chrom Chromosome, height int, opts Options) *Ideogram {
	delay := opts.UnblockDelay
	if delay == 0 {
		delay = DefaultUnblockDelay
	}
	return &Ideogram{loop: loop, page: p, view: v, pos: pos, nav: nav, chrom: chrom, height: height, delay: delay}
}

// SetChromosome replaces the chromosome drawn.
func (g *Ideogram) SetChromosome(chrom Chromosome) {
	g.chrom = chrom
}

// Down starts a drag at the ideogram pixel (x, y).  Presses off the drawn
// chromosome are ignored.
func (g *Ideogram) Down(x, y int) bool {
	if g.pressed || g.chrom.Width <= 0 {
		return false
	}
	if x < g.chrom.Left || x >= g.chrom.Left+g.chrom.Width || y < 0 || y >= g.height {
		return false
	}
	g.pressed = true
	g.moved = false
	g.down = x
	g.page.BlockClicks()
	g.page.Selection = page.Selection{Visible: true, X1: x, X2: x}
	return true
}

// Move extends the drag to x.
func (g *Ideogram) Move(x int) {
	if !g.pressed {
		return
	}
	if !g.moved && abs(x-g.down) <= ideogramMoveSlop {
		return
	}
	g.moved = true
	right := g.chrom.Left + g.chrom.Width
	switch {
	case x < g.chrom.Left:
		x = g.chrom.Left
	case x > right:
		x = right
	}
	g.page.Selection.X2 = x
}

// Up ends the drag at (x, y) and navigates to the selected region.  It
// returns the region and whether the view moved.
func (g *Ideogram) Up(x, y int) (genomics.Position, bool) {
	if !g.pressed {
		return genomics.Position{}, false
	}
	g.Move(x)
	g.pressed = false
	defer g.loop.After(g.delay, g.page.AllowClicks)
	defer g.page.HideSelection()

	state := g.view.State()
	if y < 0 || y >= g.height || state == nil {
		return genomics.Position{}, false
	}

	var (
		start, end int
		selected   bool
		ask        bool
	)
	moved := g.moved
	if moved {
		left, right := g.chrom.Left, g.chrom.Left+g.chrom.Width
		if x >= -ideogramEdgeSlop && x < left {
			x = left
		}
		if x >= right && x < g.page.Ideogram.Width+ideogramEdgeSlop {
			x = right
		}
		if x >= left && x < right+1 {
			start, end = g.chrom.toBases(g.down), g.chrom.toBases(x)
			selected = true
			if abs(end-start) < ideogramMinBases {
				moved = false
			} else {
				ask = true
			}
		}
	}
	if !moved {
		width := state.WinEnd - state.WinStart
		start = g.chrom.toBases(x) - int(math.Round(float64(width)/2))
		end = start + width
		selected = true
	}
	if !selected {
		return genomics.Position{}, false
	}

	p := g.chrom.normalize(start, end)
	if ask && g.Confirm != nil && !g.Confirm(p) {
		return genomics.Position{}, false
	}
	s := g.pos.SetByCoordinates(p.Chrom, p.Start, p.End)
	g.nav.NavigateInPlace(url.Values{position.InputName: {s}, "findNearest": {"1"}})
	return p, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
