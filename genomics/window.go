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

import "fmt"

// Window is one contiguous real-genome interval participating in the virtual
// chromosome.  WinStart and WinEnd are 0-based and half-open; VirtStart and
// VirtEnd give the window's extent in the virtual coordinate space.
type Window struct {
	ChromName string `json:"chromName"`
	WinStart  int    `json:"winStart"`
	WinEnd    int    `json:"winEnd"`
	VirtStart int    `json:"virtStart"`
	VirtEnd   int    `json:"virtEnd"`
}

// Windows is the virtual coordinate space supplied by the server: the
// windows currently displayed plus the windows materialized before and after
// them for panning.
type Windows struct {
	Before  []Window
	Current []Window
	After   []Window
}

// All returns the windows in virtual order.
func (ws Windows) All() []Window {
	all := make([]Window, 0, len(ws.Before)+len(ws.Current)+len(ws.After))
	all = append(all, ws.Before...)
	all = append(all, ws.Current...)
	return append(all, ws.After...)
}

// Disguisable reports whether a virtual position is shown to the user as a
// plain chromosome position.  That happens only when exactly one window is
// active.
func (ws Windows) Disguisable() bool {
	return len(ws.Current) == 1
}

// Validate checks the ordering invariants of each window list.
func (ws Windows) Validate() error {
	for _, list := range []struct {
		name    string
		windows []Window
	}{
		{"windowsBefore", ws.Before},
		{"windows", ws.Current},
		{"windowsAfter", ws.After},
	} {
		if err := validateWindows(list.windows); err != nil {
			return fmt.Errorf("%s: %v", list.name, err)
		}
	}
	return nil
}

func validateWindows(windows []Window) error {
	for i, w := range windows {
		if w.WinEnd <= w.WinStart {
			return fmt.Errorf("window %d: empty interval %d-%d", i, w.WinStart, w.WinEnd)
		}
		if w.VirtEnd-w.VirtStart != w.WinEnd-w.WinStart {
			return fmt.Errorf("window %d: virtual extent does not match real extent", i)
		}
		if i == 0 {
			continue
		}
		prev := windows[i-1]
		if prev.VirtEnd != w.VirtStart {
			return fmt.Errorf("window %d: virtual offsets not contiguous (%d != %d)", i, prev.VirtEnd, w.VirtStart)
		}
		if prev.ChromName == w.ChromName && w.WinStart < prev.WinEnd {
			return fmt.Errorf("window %d: overlaps or precedes window %d", i, i-1)
		}
	}
	return nil
}

// RealToVirtual maps the 0-based half-open interval [start,end) on chrom into
// the virtual coordinate space.  The first window overlapping the interval
// starts the match, immediately following overlapping windows extend it, and
// the first non-overlapping window after that ends it.
func RealToVirtual(chrom string, start, end int, windows []Window) (virtStart, virtEnd int, ok bool) {
	virtStart, virtEnd = -1, -1
	for _, w := range windows {
		overlap := chrom == w.ChromName && end > w.WinStart && w.WinEnd > start
		if virtStart == -1 {
			if overlap {
				s := max(start, w.WinStart)
				e := min(end, w.WinEnd)
				virtStart = w.VirtStart + (s - w.WinStart)
				virtEnd = w.VirtStart + (e - w.WinStart)
			}
			continue
		}
		if !overlap {
			break
		}
		virtEnd = w.VirtStart + (min(end, w.WinEnd) - w.WinStart)
	}
	return virtStart, virtEnd, virtStart != -1
}

// VirtualToReal maps the 0-based half-open virtual interval [start,end) back
// to a chromosome interval.  The chromosome of the first overlapping window
// wins; the match stops at the first window on another chromosome or the
// first window past the interval.
func VirtualToReal(start, end int, windows []Window) (chrom string, realStart, realEnd int, ok bool) {
	realStart, realEnd = -1, -1
	for _, w := range windows {
		overlap := w.VirtEnd > start && end > w.VirtStart
		if !overlap {
			if realStart != -1 {
				break
			}
			continue
		}
		s := max(start, w.VirtStart) - w.VirtStart + w.WinStart
		e := min(end, w.VirtEnd) - w.VirtStart + w.WinStart
		if realStart == -1 {
			chrom, realStart, realEnd = w.ChromName, s, e
			continue
		}
		if w.ChromName != chrom {
			break
		}
		realEnd = max(realEnd, e)
	}
	return chrom, realStart, realEnd, realStart != -1
}

// Disguise shows a virtual position as the single-chromosome position it
// covers.  It returns p unchanged unless exactly one window is active, p is
// virtual, and every window lies on one chromosome in ascending order.
func Disguise(p Position, ws Windows) Position {
	if !ws.Disguisable() || !p.IsVirtual() {
		return p
	}
	chrom := ws.Current[0].ChromName
	start, end := p.HalfOpen()
	newStart, newEnd := -1, -1
	lastEnd := -1
	for _, w := range ws.All() {
		if w.ChromName != chrom || (lastEnd != -1 && w.WinStart < lastEnd) {
			return p
		}
		lastEnd = w.WinEnd
		if w.VirtEnd > start && end > w.VirtStart {
			cs := max(start, w.VirtStart) - w.VirtStart + w.WinStart
			ce := min(end, w.VirtEnd) - w.VirtStart + w.WinStart
			if newStart == -1 {
				newStart = cs
			}
			newEnd = ce
		}
	}
	if newStart == -1 {
		return p
	}
	return FromHalfOpen(chrom, newStart, newEnd)
}

// Undisguise is the inverse of Disguise: a plain chromosome position on the
// windows' chromosome is mapped back into the virtual coordinate space.
func Undisguise(p Position, ws Windows) Position {
	if !ws.Disguisable() || p.IsVirtual() {
		return p
	}
	chrom := ws.Current[0].ChromName
	if p.Chrom != chrom {
		return p
	}
	start, end := p.HalfOpen()
	newStart, newEnd := -1, -1
	lastEnd := -1
	for _, w := range ws.All() {
		if w.ChromName != chrom || (lastEnd != -1 && w.WinStart < lastEnd) {
			return p
		}
		lastEnd = w.WinEnd
		if w.WinEnd > start && end > w.WinStart {
			cs := max(start, w.WinStart) - w.WinStart + w.VirtStart
			ce := min(end, w.WinEnd) - w.WinStart + w.VirtStart
			if newStart == -1 {
				newStart = cs
			}
			newEnd = ce
		}
	}
	if newStart == -1 {
		return p
	}
	return FromHalfOpen(VirtualChrom, newStart, newEnd)
}

// VirtualSpanSize sums the overlap between the real position p and every
// window: the effective size of a selection when windows are discontiguous.
func VirtualSpanSize(p Position, ws Windows) int {
	start, end := p.HalfOpen()
	size := 0
	for _, w := range ws.All() {
		if w.ChromName == p.Chrom && w.WinEnd > start && end > w.WinStart {
			size += min(end, w.WinEnd) - max(start, w.WinStart)
		}
	}
	return size
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
