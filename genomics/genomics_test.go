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

import (
	"testing"
)

func TestParsePosition(t *testing.T) {
	testCases := []struct {
		input string
		want  Position
		fail  bool
	}{
		{"chr1:1000-2000", Position{"chr1", 1000, 2000}, false},
		{"chr1:1,000-2,000", Position{"chr1", 1000, 2000}, false},
		{" chrX:5-6 ", Position{"chrX", 5, 6}, false},
		{"virt:1-10", Position{VirtualChrom, 1, 10}, false},
		{"multi:1-10", Position{VirtualChrom, 1, 10}, false},
		{"chr1", Position{}, true},
		{"chr1:10", Position{}, true},
		{"chr1:a-b", Position{}, true},
		{"", Position{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParsePosition(tc.input)
			if tc.fail {
				if err == nil {
					t.Fatalf("ParsePosition(%q) succeeded, want error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePosition(%q) returned unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Wrong position: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCommify(t *testing.T) {
	testCases := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tc := range testCases {
		if got := Commify(tc.n); got != tc.want {
			t.Errorf("Wrong Commify(%d): got %q, want %q", tc.n, got, tc.want)
		}
	}

	p := Position{"chr1", 1000, 2000000}
	if got, want := p.Commified(), "chr1:1,000-2,000,000"; got != want {
		t.Errorf("Wrong commified position: got %q, want %q", got, want)
	}
	if got, want := p.String(), "chr1:1000-2000000"; got != want {
		t.Errorf("Wrong position string: got %q, want %q", got, want)
	}
}

func TestHalfOpen(t *testing.T) {
	p := FromHalfOpen("chr2", 99, 200)
	if got, want := p, (Position{"chr2", 100, 200}); got != want {
		t.Fatalf("Wrong position: got %v, want %v", got, want)
	}
	start, end := p.HalfOpen()
	if start != 99 || end != 200 {
		t.Errorf("Wrong half-open interval: got [%d,%d), want [99,200)", start, end)
	}
	if got, want := p.Size(), 101; got != want {
		t.Errorf("Wrong size: got %d, want %d", got, want)
	}
}

func TestPixelsToBases(t *testing.T) {
	plain := Geometry{ImageWidth: 1000}
	testCases := []struct {
		name             string
		geometry         Geometry
		selStart, selEnd int
		winStart, winEnd int
		pad              bool
		start, end       int
	}{
		{"drag", plain, 100, 150, 0, 1000, true, 100, 150},
		{"single pixel", plain, 500, 500, 0, 1000, false, 500, 501},
		{"reversed selection", plain, 150, 100, 0, 1000, true, 100, 150},
		{"window offset", plain, 100, 150, 5000, 6000, true, 5100, 5150},
		{"label column", Geometry{ImageWidth: 1100, InsideX: 100}, 50, 150, 0, 1000, true, 0, 50},
		{"left margin", Geometry{ImageWidth: 1000, LeftMargin: 3}, 103, 153, 0, 1000, true, 100, 150},
		{"reverse complement", Geometry{ImageWidth: 1000, RevCmplDisp: true}, 100, 150, 0, 1000, true, 850, 900},
		{"past right edge", plain, 900, 2000, 0, 1000, true, 900, 1000},
		{"zoomed to bases", plain, 0, 4, 0, 100, true, 0, 1},
		{"half bases", plain, 5, 25, 0, 100, true, 1, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := PixelsToBases(tc.geometry, tc.selStart, tc.selEnd, tc.winStart, tc.winEnd, tc.pad)
			if start != tc.start || end != tc.end {
				t.Errorf("Wrong interval: got [%d,%d), want [%d,%d)", start, end, tc.start, tc.end)
			}
		})
	}
}

func TestPixelsToBasesStaysInWindow(t *testing.T) {
	geometries := []Geometry{
		{ImageWidth: 800},
		{ImageWidth: 900, InsideX: 100, LeftMargin: DefaultLeftMargin},
		{ImageWidth: 900, InsideX: 100, LeftMargin: DefaultLeftMargin, RevCmplDisp: true},
	}
	windows := [][2]int{{0, 1}, {0, 37}, {1000, 1800}, {123456, 9876543}}
	for _, g := range geometries {
		for _, w := range windows {
			for x1 := -50; x1 <= 1000; x1 += 17 {
				for x2 := x1; x2 <= 1000; x2 += 23 {
					for _, pad := range []bool{false, true} {
						start, end := PixelsToBases(g, x1, x2, w[0], w[1], pad)
						if !(w[0] <= start && start < end && end <= w[1]) {
							t.Fatalf("PixelsToBases(%+v, %d, %d, %d, %d, %t) = [%d,%d), outside window", g, x1, x2, w[0], w[1], pad, start, end)
						}
					}
				}
			}
		}
	}
}

func TestCenterWindow(t *testing.T) {
	testCases := []struct {
		name              string
		start, end, width int
		wantStart         int
		wantEnd           int
	}{
		{"middle", 500, 501, 200, 400, 600},
		{"clipped left", 10, 11, 200, 0, 110},
		{"clipped right", 990, 991, 200, 890, 1000},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := CenterWindow(tc.start, tc.end, tc.width, 0, 1000)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("Wrong window: got [%d,%d), want [%d,%d)", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

var multiWindows = []Window{
	{ChromName: "chr1", WinStart: 100, WinEnd: 200, VirtStart: 0, VirtEnd: 100},
	{ChromName: "chr1", WinStart: 300, WinEnd: 400, VirtStart: 100, VirtEnd: 200},
	{ChromName: "chr2", WinStart: 0, WinEnd: 50, VirtStart: 200, VirtEnd: 250},
}

func TestRealToVirtual(t *testing.T) {
	testCases := []struct {
		name       string
		chrom      string
		start, end int
		want       [2]int
		ok         bool
	}{
		{"spanning windows", "chr1", 150, 350, [2]int{50, 150}, true},
		{"inside window", "chr1", 120, 130, [2]int{20, 30}, true},
		{"other chrom", "chr2", 10, 20, [2]int{210, 220}, true},
		{"gap", "chr1", 200, 300, [2]int{-1, -1}, false},
		{"unknown chrom", "chr3", 0, 10, [2]int{-1, -1}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := RealToVirtual(tc.chrom, tc.start, tc.end, multiWindows)
			if ok != tc.ok {
				t.Fatalf("Wrong ok: got %t, want %t", ok, tc.ok)
			}
			if got := [2]int{start, end}; got != tc.want {
				t.Errorf("Wrong interval: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVirtualToReal(t *testing.T) {
	testCases := []struct {
		name       string
		start, end int
		chrom      string
		want       [2]int
		ok         bool
	}{
		{"stops at chrom change", 50, 220, "chr1", [2]int{150, 400}, true},
		{"second chrom", 210, 240, "chr2", [2]int{10, 40}, true},
		{"past all windows", 300, 400, "", [2]int{-1, -1}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chrom, start, end, ok := VirtualToReal(tc.start, tc.end, multiWindows)
			if ok != tc.ok {
				t.Fatalf("Wrong ok: got %t, want %t", ok, tc.ok)
			}
			if chrom != tc.chrom {
				t.Errorf("Wrong chrom: got %q, want %q", chrom, tc.chrom)
			}
			if got := [2]int{start, end}; got != tc.want {
				t.Errorf("Wrong interval: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDisguise(t *testing.T) {
	single := Windows{
		Before:  []Window{{ChromName: "chr1", WinStart: 0, WinEnd: 1000, VirtStart: 0, VirtEnd: 1000}},
		Current: []Window{{ChromName: "chr1", WinStart: 1000, WinEnd: 2000, VirtStart: 1000, VirtEnd: 2000}},
		After:   []Window{{ChromName: "chr1", WinStart: 5000, WinEnd: 6000, VirtStart: 2000, VirtEnd: 3000}},
	}
	unordered := Windows{
		Current: single.Current,
		After:   []Window{{ChromName: "chr1", WinStart: 500, WinEnd: 600, VirtStart: 2000, VirtEnd: 2100}},
	}
	mixed := Windows{
		Current: single.Current,
		After:   []Window{{ChromName: "chr2", WinStart: 0, WinEnd: 1000, VirtStart: 2000, VirtEnd: 3000}},
	}
	multiple := Windows{Current: multiWindows}

	virtual := Position{VirtualChrom, 1101, 1200}
	testCases := []struct {
		name    string
		windows Windows
		input   Position
		want    Position
	}{
		{"single window", single, virtual, Position{"chr1", 1101, 1200}},
		{"spans into after", single, Position{VirtualChrom, 1901, 2100}, Position{"chr1", 1901, 5100}},
		{"multiple windows", multiple, virtual, virtual},
		{"descending windows", unordered, virtual, virtual},
		{"chrom change", mixed, virtual, virtual},
		{"already real", single, Position{"chr1", 5, 10}, Position{"chr1", 5, 10}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Disguise(tc.input, tc.windows); got != tc.want {
				t.Errorf("Wrong disguised position: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDisguiseRoundTrip(t *testing.T) {
	ws := Windows{
		Current: []Window{{ChromName: "chr7", WinStart: 10000, WinEnd: 20000, VirtStart: 0, VirtEnd: 10000}},
	}
	for start := 1; start < 10000; start += 997 {
		for end := start; end <= 10000; end += 1231 {
			p := Position{VirtualChrom, start, end}
			shown := Disguise(p, ws)
			if shown.IsVirtual() {
				t.Fatalf("Disguise(%v) stayed virtual", p)
			}
			if got := Undisguise(shown, ws); got != p {
				t.Fatalf("Undisguise(Disguise(%v)) = %v", p, got)
			}
		}
	}
}

func TestVirtualSpanSize(t *testing.T) {
	ws := Windows{Current: multiWindows}
	testCases := []struct {
		name string
		pos  Position
		want int
	}{
		{"two windows", Position{"chr1", 151, 350}, 100},
		{"gap only", Position{"chr1", 201, 300}, 0},
		{"whole chrom", Position{"chr2", 1, 1000}, 50},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VirtualSpanSize(tc.pos, ws); got != tc.want {
				t.Errorf("Wrong span size: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (Windows{Current: multiWindows}).Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
	bad := Windows{After: []Window{
		{ChromName: "chr1", WinStart: 0, WinEnd: 10, VirtStart: 0, VirtEnd: 10},
		{ChromName: "chr1", WinStart: 20, WinEnd: 30, VirtStart: 15, VirtEnd: 25},
	}}
	if err := bad.Validate(); err == nil {
		t.Errorf("Validate() succeeded on non-contiguous virtual offsets")
	}
	overlapping := Windows{Current: []Window{
		{ChromName: "chr1", WinStart: 0, WinEnd: 10, VirtStart: 0, VirtEnd: 10},
		{ChromName: "chr1", WinStart: 5, WinEnd: 15, VirtStart: 10, VirtEnd: 20},
	}}
	if err := overlapping.Validate(); err == nil {
		t.Errorf("Validate() succeeded on overlapping windows")
	}
}
