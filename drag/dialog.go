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
	"fmt"
	"net/url"

	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/highlight"
)

// Dialog asks what to do with a selection.
type Dialog struct {
	// Position is the selection in the coordinates of the view.
	Position genomics.Position
	// Display is the selection as shown to the user.
	Display genomics.Position
	// Regions lists the chromosome intervals the selection covers when the
	// view is made of several windows.
	Regions []genomics.Position
	// Color is the color offered for a new highlight.
	Color string
}

// Choice is a dialog button: ZoomIn, SingleHighlight, AddHighlight,
// SaveColor or Cancel.
type Choice interface {
	choice()
}

// ZoomIn navigates to the selection.  DontAsk disables the dialog for later
// drags.
type ZoomIn struct {
	DontAsk bool
}

// SingleHighlight replaces the highlights with the selection.
type SingleHighlight struct {
	Color   string
	DontAsk bool
}

// AddHighlight adds the selection to the highlights.
type AddHighlight struct {
	Color   string
	DontAsk bool
}

// SaveColor makes Color the default highlight color.  The dialog stays open.
type SaveColor struct {
	Color string
}

// Cancel closes the dialog.
type Cancel struct{}

func (ZoomIn) choice()          {}
func (SingleHighlight) choice() {}
func (AddHighlight) choice()    {}
func (SaveColor) choice()       {}
func (Cancel) choice()          {}

func (c *Controller) newDialog(p genomics.Position) *Dialog {
	d := &Dialog{Position: p, Display: p, Color: c.hl.Color()}
	state := c.view.State()
	if state == nil || len(state.Windows) == 0 {
		return d
	}
	ws := state.WindowSet()
	d.Display = genomics.Disguise(p, ws)
	if ws.Disguisable() {
		return d
	}
	start, end := p.HalfOpen()
	for _, w := range state.Windows {
		if w.VirtEnd > start && end > w.VirtStart {
			s := max(start, w.VirtStart) - w.VirtStart + w.WinStart
			e := min(end, w.VirtEnd) - w.VirtStart + w.WinStart
			d.Regions = append(d.Regions, genomics.FromHalfOpen(w.ChromName, s, e))
		}
	}
	return d
}

// Resolve acts on the button pressed in the open dialog.  It reports whether
// the dialog closed.  Every choice but ZoomIn restores the position shown
// before the drag.
func (c *Controller) Resolve(ch Choice) bool {
	d := c.dialog
	if d == nil {
		return false
	}
	revert := true
	switch ch := ch.(type) {
	case ZoomIn:
		revert = false
		var extra url.Values
		if c.dontAsk(ch.DontAsk) {
			extra = url.Values{highlight.DialogVar: {"0"}}
		}
		c.navigate(d.Position, extra)
	case SingleHighlight:
		c.dontAsk(ch.DontAsk)
		c.highlight(d.Position, ch.Color, true)
	case AddHighlight:
		c.dontAsk(ch.DontAsk)
		c.highlight(d.Position, ch.Color, false)
	case SaveColor:
		c.hl.SetColor(ch.Color)
		d.Color = ch.Color
		return false
	case Cancel:
	default:
		panic(fmt.Sprintf("unknown dialog choice %T", ch))
	}

	c.dialog = nil
	c.page.HideSelection()
	if revert {
		c.pos.RevertToOriginalPos()
	}
	return true
}

// dontAsk disables the dialog when set and reports whether it is disabled.
func (c *Controller) dontAsk(set bool) bool {
	state := c.view.State()
	if state == nil {
		return set
	}
	if set {
		state.EnableHighlightingDialog = false
	}
	return !state.EnableHighlightingDialog
}

func (c *Controller) highlight(p genomics.Position, color string, replace bool) {
	if color != "" && color != c.hl.Color() {
		c.hl.SetColor(color)
	}
	c.hl.Add(p, "", replace)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
