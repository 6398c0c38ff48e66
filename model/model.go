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

// Package model defines the track-state object the rendering endpoint embeds
// in every page and fragment, and the per-track records it carries.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/googlegenomics/trackview/genomics"
)

// Visibility is a track's display mode.  The numeric values are the wire
// codes used in the embedded state.
type Visibility int

const (
	Hide Visibility = iota
	Dense
	Full
	Pack
	Squish
)

var visibilityNames = []string{"hide", "dense", "full", "pack", "squish"}

var errUnknownVisibility = errors.New("unknown visibility")

func (v Visibility) String() string {
	if v < 0 || int(v) >= len(visibilityNames) {
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
	return visibilityNames[v]
}

// ParseVisibility parses a visibility name such as "pack".
func ParseVisibility(s string) (Visibility, error) {
	for i, name := range visibilityNames {
		if strings.EqualFold(s, name) {
			return Visibility(i), nil
		}
	}
	return Hide, fmt.Errorf("%q: %v", s, errUnknownVisibility)
}

// TrackRecord is the per-track entry of the track-state model.
type TrackRecord struct {
	Visibility Visibility `json:"visibility"`
	// LimitedVis is the visibility the server actually rendered when it
	// capped the requested one.
	LimitedVis *Visibility `json:"limitedVis,omitempty"`
	Type       string      `json:"type,omitempty"`
	ShortLabel string      `json:"shortLabel,omitempty"`
	Parent     string      `json:"parentTrack,omitempty"`
	Children   []string    `json:"children,omitempty"`

	// LocalVisibility is a client-side change not yet confirmed by the
	// server.
	LocalVisibility *Visibility `json:"-"`
}

// EffectiveVisibility is the local override when present, otherwise the
// server visibility.
func (r *TrackRecord) EffectiveVisibility() Visibility {
	if r.LocalVisibility != nil {
		return *r.LocalVisibility
	}
	return r.Visibility
}

// RemoteType marks tracks rendered by a remote renderer rather than in the
// image.
const RemoteType = "remote"

// State is the track-state object embedded in every rendering response.
type State struct {
	CGIVersion string `json:"cgiVersion"`
	DB         string `json:"db,omitempty"`

	ChromName   string `json:"chromName"`
	WinStart    int    `json:"winStart"`
	WinEnd      int    `json:"winEnd"`
	ChromStart  int    `json:"chromStart"`
	ChromEnd    int    `json:"chromEnd"`
	NewWinWidth int    `json:"newWinWidth"`

	RevCmplDisp      bool `json:"revCmplDisp"`
	InsideX          int  `json:"insideX"`
	RulerClickHeight int  `json:"rulerClickHeight"`
	InPlaceUpdate    bool `json:"inPlaceUpdate"`

	TrackDb map[string]*TrackRecord `json:"trackDb"`

	Highlight                string `json:"highlight,omitempty"`
	PrevHlColor              string `json:"prevHlColor,omitempty"`
	EnableHighlightingDialog bool   `json:"enableHighlightingDialog"`

	Windows          []genomics.Window `json:"windows,omitempty"`
	WindowsBefore    []genomics.Window `json:"windowsBefore,omitempty"`
	WindowsAfter     []genomics.Window `json:"windowsAfter,omitempty"`
	VirtChromChanged bool              `json:"virtChromChanged,omitempty"`

	// LastDbPos identifies the position plus track configuration the page
	// was rendered for.  History entries compare it to detect divergence.
	LastDbPos string `json:"lastDbPos,omitempty"`

	ImgBoxPortal        bool    `json:"imgBoxPortal,omitempty"`
	ImgBoxWidth         int     `json:"imgBoxWidth,omitempty"`
	ImgBoxPortalWidth   int     `json:"imgBoxPortalWidth,omitempty"`
	ImgBoxPortalLeft    int     `json:"imgBoxPortalLeft,omitempty"`
	ImgBoxPortalOffsetX int     `json:"imgBoxPortalOffsetX,omitempty"`
	ImgBoxLeftLabel     int     `json:"imgBoxLeftLabel,omitempty"`
	ImgBoxPortalStart   int     `json:"imgBoxPortalStart,omitempty"`
	ImgBoxPortalEnd     int     `json:"imgBoxPortalEnd,omitempty"`
	ImgBoxBasesPerPixel float64 `json:"imgBoxBasesPerPixel,omitempty"`
}

// WindowSet returns the state's virtual coordinate space.
func (s *State) WindowSet() genomics.Windows {
	return genomics.Windows{
		Before:  s.WindowsBefore,
		Current: s.Windows,
		After:   s.WindowsAfter,
	}
}

// Position returns the displayed window as a 1-based position.
func (s *State) Position() genomics.Position {
	return genomics.FromHalfOpen(s.ChromName, s.WinStart, s.WinEnd)
}

// Geometry returns the pixel geometry of the track image.
func (s *State) Geometry(imageWidth, leftMargin int) genomics.Geometry {
	return genomics.Geometry{
		ImageWidth:  imageWidth,
		InsideX:     s.InsideX,
		LeftMargin:  leftMargin,
		RevCmplDisp: s.RevCmplDisp,
	}
}

// PortalBounds returns the 0-based half-open interval visible in the portal.
// Without a portal that is the whole window.
func (s *State) PortalBounds() (int, int) {
	if s.ImgBoxPortal && s.ImgBoxPortalEnd > s.ImgBoxPortalStart {
		return s.ImgBoxPortalStart, s.ImgBoxPortalEnd
	}
	return s.WinStart, s.WinEnd
}

// PortalPixels returns the width of the visible data area of an image
// imageWidth pixels wide.
func (s *State) PortalPixels(imageWidth int) int {
	if s.ImgBoxPortal && s.ImgBoxPortalWidth > 0 {
		return s.ImgBoxPortalWidth
	}
	return imageWidth - s.InsideX
}

// DataLeft is the pixel offset of the data area within the image.  The
// label column is on the right in reverse-complement display.
func (s *State) DataLeft() int {
	if s.RevCmplDisp {
		return 0
	}
	return s.InsideX
}

// Track returns the record of id, or nil.
func (s *State) Track(id string) *TrackRecord {
	if s == nil || s.TrackDb == nil {
		return nil
	}
	return s.TrackDb[id]
}

// TrackIDs returns the ids of the track-state model in sorted order.
func (s *State) TrackIDs() []string {
	ids := make([]string, 0, len(s.TrackDb))
	for id := range s.TrackDb {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// View holds the state of the currently displayed page.  The state is
// replaced wholesale when a new response is applied.
type View struct {
	state *State
}

// NewView returns a view holding s.
func NewView(s *State) *View {
	return &View{state: s}
}

// State returns the current state.
func (v *View) State() *State {
	return v.state
}

// Replace installs s as the current state.
func (v *View) Replace(s *State) {
	v.state = s
}
