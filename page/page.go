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

// Package page holds the headless model of a track view page: the position
// inputs, cross-reference links, image table rows, highlight overlays and the
// interaction flags the controllers coordinate through.
//
// A Page is not safe for concurrent use.  It is only touched from the event
// loop that owns the session.
package page

import (
	"net/url"
	"sort"
)

// RowPrefix is prepended to a track id to form its row element id.
const RowPrefix = "tr_"

// Input is a form element holding the displayed position.
type Input struct {
	Name   string
	ID     string
	Hidden bool
	Value  string
}

// Link is a cross-reference anchor whose href embeds the position.
type Link struct {
	ID   string
	Href string
}

// Image is the bounding box of the track image table in page coordinates.
type Image struct {
	Left, Top     int
	Width, Height int
}

// Contains reports whether the page point (x, y) lies inside the image.
func (i Image) Contains(x, y int) bool {
	return x >= i.Left && x < i.Left+i.Width && y >= i.Top && y < i.Top+i.Height
}

// Row is one track's strip of the image table.
type Row struct {
	TrackID string
	Class   string
	// Order is the sort key carried in the row's abbr attribute.
	Order   int
	Content string
	// PanLeft is the horizontal offset of the row's pan image.
	PanLeft int
}

// ElementID returns the row's element id.
func (r *Row) ElementID() string {
	return RowPrefix + r.TrackID
}

// Overlay is the rendered box of one highlight.  Left and Width are the
// current box; BaseLeft and BaseWidth are where it was rendered before any
// panning.
type Overlay struct {
	Index     int
	Color     string
	Left      int
	Width     int
	BaseLeft  int
	BaseWidth int
}

// Selection is the drag-select rubber band.
type Selection struct {
	Visible bool
	X1, X2  int
}

// Ideogram is the chromosome overview image.
type Ideogram struct {
	Src   string
	Style string
	Width int
}

// Page is the mutable state of one rendered page.
type Page struct {
	Inputs          []*Input
	PositionDisplay string
	SizeDisplay     string
	Links           map[string]*Link

	Image      Image
	Ideogram   Ideogram
	Background string
	Overlays   []Overlay
	Selection  Selection

	// Form holds the values submitted with the next full page load.
	Form url.Values
	// Loads records every full page load requested, in order.
	Loads []string
	// Notices records the messages shown to the user, in order.
	Notices []string

	rows          []*Row
	loading       map[string]bool
	dirty         bool
	clicksBlocked bool
}

// New returns an empty page.
func New() *Page {
	return &Page{
		Links:   make(map[string]*Link),
		Form:    make(url.Values),
		loading: make(map[string]bool),
	}
}

// AddInput registers a position input.
func (p *Page) AddInput(name, id string, hidden bool) *Input {
	in := &Input{Name: name, ID: id, Hidden: hidden}
	p.Inputs = append(p.Inputs, in)
	return in
}

// AddLink registers a cross-reference link.
func (p *Page) AddLink(id, href string) *Link {
	l := &Link{ID: id, Href: href}
	p.Links[id] = l
	return l
}

// Row returns the row of the given track, or nil.
func (p *Page) Row(trackID string) *Row {
	for _, r := range p.rows {
		if r.TrackID == trackID {
			return r
		}
	}
	return nil
}

// Rows returns the rows in display order.
func (p *Page) Rows() []*Row {
	return append([]*Row(nil), p.rows...)
}

// AppendRow adds r at the bottom of the table, replacing any row with the
// same track id.
func (p *Page) AppendRow(r *Row) {
	p.RemoveRow(r.TrackID)
	p.rows = append(p.rows, r)
}

// ReplaceRow swaps r in for the row with the same track id, keeping its
// place in the table.  It reports whether such a row existed.
func (p *Page) ReplaceRow(r *Row) bool {
	for i, old := range p.rows {
		if old.TrackID == r.TrackID {
			p.rows[i] = r
			return true
		}
	}
	return false
}

// RemoveRow deletes the row of the given track.  It reports whether a row
// was removed.
func (p *Page) RemoveRow(trackID string) bool {
	for i, r := range p.rows {
		if r.TrackID == trackID {
			p.rows = append(p.rows[:i], p.rows[i+1:]...)
			return true
		}
	}
	return false
}

// SortRows orders the rows by their order key, keeping ties stable.
func (p *Page) SortRows() {
	sort.SliceStable(p.rows, func(i, j int) bool {
		return p.rows[i].Order < p.rows[j].Order
	})
}

// ShowLoading marks the row of trackID, or the whole table when trackID is
// empty, as waiting for a response.
func (p *Page) ShowLoading(trackID string) {
	p.loading[trackID] = true
}

// HideLoading clears the loading indicator set by ShowLoading.
func (p *Page) HideLoading(trackID string) {
	delete(p.loading, trackID)
}

// Loading reports whether the indicator for trackID is shown.
func (p *Page) Loading(trackID string) bool {
	return p.loading[trackID]
}

// AnyLoading reports whether any loading indicator is shown.
func (p *Page) AnyLoading() bool {
	return len(p.loading) > 0
}

// MarkDirty records that the page diverged from what the browser cached.
func (p *Page) MarkDirty() {
	p.dirty = true
}

// ClearDirty resets the flag set by MarkDirty.
func (p *Page) ClearDirty() {
	p.dirty = false
}

// IsDirty reports whether MarkDirty was called since the last ClearDirty.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// BlockClicks suppresses clicks on image map items.
func (p *Page) BlockClicks() {
	p.clicksBlocked = true
}

// AllowClicks undoes BlockClicks.
func (p *Page) AllowClicks() {
	p.clicksBlocked = false
}

// ClicksAllowed reports whether image map clicks are handled.
func (p *Page) ClicksAllowed() bool {
	return !p.clicksBlocked
}

// Notify shows msg to the user.
func (p *Page) Notify(msg string) {
	p.Notices = append(p.Notices, msg)
}

// Load replaces the page by loading target.
func (p *Page) Load(target string) {
	p.Loads = append(p.Loads, target)
}

// HideSelection hides the drag-select rubber band.
func (p *Page) HideSelection() {
	p.Selection = Selection{}
}
