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

// Package drag turns pointer drags over the track image and the chromosome
// ideogram into zooms, highlights or cancellations.
package drag

import (
	"fmt"
	"net/url"
	"time"

	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/highlight"
	"github.com/googlegenomics/trackview/internal/eventloop"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
	"github.com/googlegenomics/trackview/position"
	"github.com/googlegenomics/trackview/refresh"
)

// Defaults for Options.
const (
	DefaultSingleClick  = 100 * time.Millisecond
	DefaultUnblockDelay = 50 * time.Millisecond
)

// Navigator shows a new view.
type Navigator interface {
	NavigateInPlace(params url.Values) *refresh.Request
}

// Modifiers are the keys held when a drag ends.
type Modifiers struct {
	Alt, Ctrl, Meta bool
}

// Pointer is a pointer event in page coordinates.
type Pointer struct {
	PageX, PageY int
	Time         time.Time
	Mods         Modifiers
}

// Options configures a Controller.
type Options struct {
	LeftMargin int
	// SingleClick is the longest drag still taken as a click.
	SingleClick time.Duration
	// UnblockDelay is how long image map clicks stay blocked after a drag.
	UnblockDelay time.Duration
}

// Outcome is what a completed drag did.  It is one of Canceled, Recentered,
// Highlighted, Navigated or Prompted.
type Outcome interface {
	outcome()
}

// Canceled means the drag was discarded and the position restored.
type Canceled struct{}

// Recentered means a click moved the view, keeping its width.
type Recentered struct {
	Position genomics.Position
}

// Highlighted means the selection was added to the highlights.
type Highlighted struct {
	Position genomics.Position
}

// Navigated means the view moved to the selection.
type Navigated struct {
	Position genomics.Position
}

// Prompted means the user was asked what to do with the selection.
type Prompted struct {
	Dialog *Dialog
}

func (Canceled) outcome()    {}
func (Recentered) outcome()  {}
func (Highlighted) outcome() {}
func (Navigated) outcome()   {}
func (Prompted) outcome()    {}

// Controller handles drag selection over the track image.
type Controller struct {
	loop *eventloop.Loop
	page *page.Page
	view *model.View
	pos  *position.Store
	hl   *highlight.Model
	nav  Navigator
	opts Options

	active    bool
	escaped   bool
	startX    int
	startTime time.Time
	dialog    *Dialog
}

// NewController returns a controller for the track image of p.
func NewController(loop *eventloop.Loop, p *page.Page, v *model.View, pos *position.Store, hl *highlight.Model, nav Navigator, opts Options) *Controller {
	if opts.SingleClick == 0 {
		opts.SingleClick = DefaultSingleClick
	}
	if opts.UnblockDelay == 0 {
		opts.UnblockDelay = DefaultUnblockDelay
	}
	return &Controller{loop: loop, page: p, view: v, pos: pos, hl: hl, nav: nav, opts: opts}
}

// Dialog returns the open choice dialog, or nil.
func (c *Controller) Dialog() *Dialog {
	return c.dialog
}

// SelectStart begins a selection at ptr.
func (c *Controller) SelectStart(ptr Pointer) {
	c.active = true
	c.escaped = false
	c.startX = ptr.PageX - c.page.Image.Left
	c.startTime = ptr.Time
	c.pos.Snapshot()
	c.page.BlockClicks()
	c.page.Selection = page.Selection{Visible: true, X1: c.startX, X2: c.startX}
}

// SelectChange extends the selection to ptr and shows the selected region
// as the position.  It reports whether ptr is over the image.
func (c *Controller) SelectChange(ptr Pointer) bool {
	if !c.active || c.escaped {
		return false
	}
	x := ptr.PageX - c.page.Image.Left
	c.page.Selection.X2 = x
	if x == c.startX {
		return true
	}
	if !c.pos.Check(ptr.PageX, ptr.PageY) {
		return false
	}
	c.update(x, false)
	return true
}

// Escape abandons the selection in progress, or closes the dialog.
func (c *Controller) Escape() {
	if c.dialog != nil {
		c.Resolve(Cancel{})
		return
	}
	c.escaped = true
	c.page.HideSelection()
}

// update shows the selection ending at x as the position and returns it.
func (c *Controller) update(x int, singleClick bool) (genomics.Position, bool) {
	state := c.view.State()
	if state == nil || state.WinEnd <= state.WinStart {
		return genomics.Position{}, false
	}
	g := state.Geometry(c.page.Image.Width, c.opts.LeftMargin)
	start, end := genomics.PixelsToBases(g, c.startX, x, state.WinStart, state.WinEnd, !singleClick)
	if singleClick {
		width := state.NewWinWidth
		if width <= 0 {
			width = state.WinEnd - state.WinStart
		}
		start, end = genomics.CenterWindow(start, end, width, state.ChromStart, state.ChromEnd)
	}
	s := c.pos.SetByCoordinates(state.ChromName, start+1, end)
	p, err := genomics.ParsePosition(s)
	if err != nil {
		return genomics.Position{}, false
	}
	return p, true
}

// SelectEnd completes the selection at ptr and acts on it.
func (c *Controller) SelectEnd(ptr Pointer) Outcome {
	if !c.active {
		return Canceled{}
	}
	c.active = false
	defer c.loop.After(c.opts.UnblockDelay, c.page.AllowClicks)

	if c.escaped || !c.pos.Check(ptr.PageX, ptr.PageY) {
		return c.apply(Canceled{})
	}

	x := ptr.PageX - c.page.Image.Left
	state := c.view.State()
	onRuler := state != nil && ptr.PageY-c.page.Image.Top <= state.RulerClickHeight
	singleClick := x == c.startX || (!onRuler && ptr.Time.Sub(c.startTime) < c.opts.SingleClick)

	p, ok := c.update(x, singleClick)
	if !ok {
		return c.apply(Canceled{})
	}

	switch {
	case singleClick && !onRuler:
		return c.apply(Recentered{Position: p})
	case ptr.Mods.Alt:
		return c.apply(Highlighted{Position: p})
	case ptr.Mods.Meta || ptr.Mods.Ctrl || !state.EnableHighlightingDialog:
		return c.apply(Navigated{Position: p})
	}
	return c.apply(Prompted{Dialog: c.newDialog(p)})
}

func (c *Controller) apply(o Outcome) Outcome {
	switch o := o.(type) {
	case Canceled:
		c.page.HideSelection()
		c.pos.RevertToOriginalPos()
	case Recentered:
		c.page.HideSelection()
		c.navigate(o.Position, nil)
	case Highlighted:
		c.page.HideSelection()
		c.hl.Add(o.Position, "", false)
		c.pos.RevertToOriginalPos()
	case Navigated:
		c.page.HideSelection()
		c.navigate(o.Position, nil)
	case Prompted:
		c.dialog = o.Dialog
	default:
		panic(fmt.Sprintf("unknown drag outcome %T", o))
	}
	return o
}

// navigate moves to p, disguised when a single window is shown.
func (c *Controller) navigate(p genomics.Position, extra url.Values) {
	if state := c.view.State(); state != nil {
		p = genomics.Disguise(p, state.WindowSet())
	}
	params := url.Values{position.InputName: {p.String()}}
	for name, values := range extra {
		params[name] = values
	}
	c.pos.ClearOriginal()
	c.nav.NavigateInPlace(params)
}
