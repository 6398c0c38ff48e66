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

package genomics

import "math"

// DefaultLeftMargin is the border, in pixels, between the image edge and the
// first drawn pixel.
const DefaultLeftMargin = 3

// Geometry describes how the track image maps onto the displayed window.
type Geometry struct {
	// ImageWidth is the full image width in pixels, side labels included.
	ImageWidth int
	// InsideX is the width of the side label column.  It is on the left in
	// forward display and on the right in reverse-complement display.
	InsideX int
	// LeftMargin is subtracted from raw pixel offsets before scaling.
	LeftMargin  int
	RevCmplDisp bool
}

// DataWidth is the number of pixels showing sequence.
func (g Geometry) DataWidth() int {
	return g.ImageWidth - g.InsideX
}

// PixelsToBases converts the pixel selection [selStart,selEnd] into a 0-based
// half-open interval within [winStart,winEnd).  Selections reaching into the
// side label column are clamped to the data area.  With halfBasePadding a
// base is included once at least half of it is covered, which is how drag
// selections round; without it a single pixel maps to the base beneath it.
// The result always satisfies winStart <= start < end <= winEnd.
func PixelsToBases(g Geometry, selStart, selEnd, winStart, winEnd int, halfBasePadding bool) (start, end int) {
	if selEnd < selStart {
		selStart, selEnd = selEnd, selStart
	}
	width := g.DataWidth()
	if width <= 0 || winEnd <= winStart {
		return winStart, winStart + 1
	}
	mult := float64(winEnd-winStart) / float64(width)
	selStart -= g.LeftMargin
	selEnd -= g.LeftMargin

	var startBases, endBases float64
	if g.RevCmplDisp {
		startBases = mult * float64(width-min(width, selEnd))
		endBases = mult * float64(width-min(width, selStart))
	} else {
		startBases = mult * float64(max(g.InsideX, selStart)-g.InsideX)
		endBases = mult * float64(max(g.InsideX, selEnd)-g.InsideX)
	}

	if halfBasePadding {
		start = winStart + int(math.Floor(startBases+0.5))
		end = winStart + int(math.Ceil(endBases-0.5))
	} else {
		start = winStart + int(math.Floor(startBases))
		end = winStart + int(math.Floor(endBases)) + 1
	}

	if end > winEnd {
		end = winEnd
	}
	if end <= winStart {
		end = winStart + 1
	}
	if start >= end {
		start = end - 1
	}
	if start < winStart {
		start = winStart
	}
	return start, end
}

// CenterWindow returns a width-sized 0-based half-open interval centered on
// [start,end), with each edge independently clipped to [lo,hi).
func CenterWindow(start, end, width, lo, hi int) (int, int) {
	center := float64(start+end) / 2
	newStart := int(math.Floor(center - float64(width)/2))
	newEnd := newStart + width
	if newStart < lo {
		newStart = lo
	}
	if hi > lo && newEnd > hi {
		newEnd = hi
	}
	return newStart, newEnd
}
