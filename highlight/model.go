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

package highlight

import (
	"errors"
	"fmt"
	"math"

	"github.com/biogo/store/interval"
	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
)

// Cart variables written by the model.
const (
	HighlightVar        = "highlight"
	NonVirtHighlightVar = "nonVirtHighlight"
	ColorVar            = "prevHlColor"
	DialogVar           = "enableHighlightingDialog"
)

var errIndexOutOfRange = errors.New("highlight index out of range")

// Syncer persists cart variables.
type Syncer interface {
	SetVars(vars map[string]string)
}

// Model is the active highlight list of a page.  A highlight is identified
// by its index in the list.
type Model struct {
	view       *model.View
	page       *page.Page
	sync       Syncer
	leftMargin int

	list  []Highlight
	color string
}

// New returns a model drawing into p, loaded from the current state of v.
func New(v *model.View, p *page.Page, sync Syncer, leftMargin int) *Model {
	m := &Model{view: v, page: p, sync: sync, leftMargin: leftMargin}
	if s := v.State(); s != nil {
		m.Load(s)
	}
	return m
}

// Load replaces the list with the one carried by s.
func (m *Model) Load(s *model.State) {
	m.list = ParseList(s.Highlight, s.DB)
	if s.PrevHlColor != "" {
		m.color = s.PrevHlColor
	}
}

// List returns a copy of the highlights.
func (m *Model) List() []Highlight {
	return append([]Highlight(nil), m.list...)
}

// Color returns the color used for highlights added without one.
func (m *Model) Color() string {
	if m.color != "" {
		return m.color
	}
	return DefaultColor
}

// SetColor records color as the user's choice and persists it.
func (m *Model) SetColor(color string) {
	m.color = color
	m.sync.SetVars(map[string]string{ColorVar: color})
}

// Add highlights pos, which may be virtual.  An empty color means the
// current color.  With replace the list is reset to the new highlight.
func (m *Model) Add(pos genomics.Position, color string, replace bool) {
	state := m.view.State()
	if state == nil {
		return
	}
	if color == "" {
		color = m.Color()
	}
	ws := state.WindowSet()
	shown := genomics.Disguise(pos, ws)
	h := Highlight{DB: state.DB, Chrom: shown.Chrom, Start: shown.Start, End: shown.End, Color: color}
	if replace {
		m.list = []Highlight{h}
	} else {
		m.list = append(m.list, h)
	}

	vars := map[string]string{
		HighlightVar: Encode(m.list),
		DialogVar:    boolVar(state.EnableHighlightingDialog),
	}
	if len(ws.Current) > 0 {
		if ws.Disguisable() {
			vars[NonVirtHighlightVar] = vars[HighlightVar]
		} else if pos.IsVirtual() {
			start, end := pos.HalfOpen()
			if chrom, s, e, ok := genomics.VirtualToReal(start, end, ws.Current); ok {
				actual := Highlight{DB: state.DB, Chrom: chrom, Start: s + 1, End: e, Color: color}
				vars[NonVirtHighlightVar] = actual.String()
			}
		}
	}
	m.sync.SetVars(vars)
	m.Render()
}

// RemoveAt removes the i-th highlight.
func (m *Model) RemoveAt(i int) error {
	if i < 0 || i >= len(m.list) {
		return fmt.Errorf("removing %d of %d: %v", i, len(m.list), errIndexOutOfRange)
	}
	m.list = append(m.list[:i:i], m.list[i+1:]...)
	m.sync.SetVars(map[string]string{HighlightVar: Encode(m.list)})
	m.Render()
	return nil
}

// Clear removes every highlight.
func (m *Model) Clear() {
	m.list = nil
	m.sync.SetVars(map[string]string{HighlightVar: ""})
	m.Render()
}

// span is a highlight's extent in the coordinates of the current view.
type span struct {
	start, end int
	index      int
}

func (s span) Overlap(b interval.IntRange) bool {
	return s.end > b.Start && s.start < b.End
}
func (s span) ID() uintptr              { return uintptr(s.index) }
func (s span) Range() interval.IntRange { return interval.IntRange{Start: s.start, End: s.end} }

// spans returns the 0-based half-open extents of the highlights on the
// displayed chromosome of the current assembly, undisguised.
func (m *Model) spans(state *model.State) []span {
	ws := state.WindowSet()
	var spans []span
	for i, h := range m.list {
		if h.DB != state.DB {
			continue
		}
		p := genomics.Undisguise(h.Position(), ws)
		if p.Chrom != state.ChromName || p.End < p.Start {
			continue
		}
		start, end := p.HalfOpen()
		spans = append(spans, span{start: start, end: end, index: i})
	}
	return spans
}

// lookup returns the lowest index whose span overlaps [start,end) and
// satisfies keep.
func (m *Model) lookup(start, end int, keep func(span) bool) (int, bool) {
	state := m.view.State()
	if state == nil {
		return 0, false
	}
	var tree interval.IntTree
	for _, s := range m.spans(state) {
		// spans never yields inverted ranges.
		tree.Insert(s, false)
	}
	best := -1
	for _, iv := range tree.Get(span{start: start, end: end}) {
		s := iv.(span)
		if keep != nil && !keep(s) {
			continue
		}
		if best == -1 || s.index < best {
			best = s.index
		}
	}
	return best, best != -1
}

// FindIndexAt returns the highlight under the image pixel x.
func (m *Model) FindIndexAt(x int) (int, bool) {
	state := m.view.State()
	if state == nil {
		return 0, false
	}
	g := state.Geometry(m.page.Image.Width, m.leftMargin)
	start, end := genomics.PixelsToBases(g, x, x, state.WinStart, state.WinEnd, false)
	return m.lookup(start, end, nil)
}

// FindIndex returns the first highlight containing pos, which is expressed
// in the coordinates of the current view.
func (m *Model) FindIndex(pos genomics.Position) (int, bool) {
	start, end := pos.HalfOpen()
	return m.lookup(start, end, func(s span) bool {
		return s.start <= start && s.end >= end
	})
}

// Render recomputes the overlay boxes of the highlights visible in the
// portal.
func (m *Model) Render() {
	m.page.Overlays = nil
	state := m.view.State()
	if state == nil {
		return
	}
	portalStart, portalEnd := state.PortalBounds()
	if portalEnd <= portalStart {
		return
	}
	pixelsPerBase := float64(state.PortalPixels(m.page.Image.Width)-2) / float64(portalEnd-portalStart)
	origin := float64(state.DataLeft() + m.leftMargin)

	for _, s := range m.spans(state) {
		if s.start > portalEnd || s.end < portalStart {
			continue
		}
		clippedStart := max(s.start, portalStart)
		clippedEnd := min(s.end, portalEnd)
		width := float64(clippedEnd-clippedStart) * pixelsPerBase
		left := origin
		if state.RevCmplDisp {
			left += float64(portalEnd-clippedEnd)*pixelsPerBase - 1
		} else {
			left += float64(clippedStart-portalStart) * pixelsPerBase
		}
		l, w := int(math.Floor(left)), int(math.Ceil(width))
		if w < 2 {
			w = 3
			l--
		}
		color := m.list[s.index].Color
		if color == "" {
			color = m.Color()
		}
		m.page.Overlays = append(m.page.Overlays, page.Overlay{
			Index: s.index, Color: color,
			Left: l, Width: w,
			BaseLeft: l, BaseWidth: w,
		})
	}
}

// Translate shifts the overlays dx pixels from where they were rendered,
// clipping them to the portal.
func (m *Model) Translate(dx int) {
	state := m.view.State()
	if state == nil {
		return
	}
	portalLeft := state.DataLeft()
	portalRight := portalLeft + state.PortalPixels(m.page.Image.Width)
	for i := range m.page.Overlays {
		o := &m.page.Overlays[i]
		left := max(o.BaseLeft+dx, portalLeft)
		right := min(o.BaseLeft+o.BaseWidth+dx, portalRight)
		o.Left = left
		o.Width = max(right-left, 0)
	}
}

func boolVar(b bool) string {
	if b {
		return "1"
	}
	return "0"
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
