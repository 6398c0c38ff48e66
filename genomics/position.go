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

// Package genomics contains the coordinate types of the track view and the
// pure functions that map between pixels, chromosome coordinates and the
// virtual coordinate space.
package genomics

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// VirtualChrom is the chromosome name of the virtual coordinate space.
const VirtualChrom = "multi"

// legacyVirtualChrom is accepted on input for positions saved by older pages.
const legacyVirtualChrom = "virt"

var (
	errMalformedPosition = errors.New("malformed position")

	positionPattern = regexp.MustCompile(`^(\S+):(\d+)-(\d+)$`)
)

// Position is a displayed genomic position.  Start and End are 1-based and
// closed, as shown to the user.
type Position struct {
	Chrom      string
	Start, End int
}

// ParsePosition parses chrom:start-end.  Thousands separators are stripped
// before parsing.
func ParsePosition(s string) (Position, error) {
	s = StripCommas(strings.TrimSpace(s))
	m := positionPattern.FindStringSubmatch(s)
	if m == nil {
		return Position{}, fmt.Errorf("%q: %v", s, errMalformedPosition)
	}
	start, err := strconv.Atoi(m[2])
	if err != nil {
		return Position{}, fmt.Errorf("parsing start: %v", err)
	}
	end, err := strconv.Atoi(m[3])
	if err != nil {
		return Position{}, fmt.Errorf("parsing end: %v", err)
	}
	chrom := m[1]
	if chrom == legacyVirtualChrom {
		chrom = VirtualChrom
	}
	return Position{Chrom: chrom, Start: start, End: end}, nil
}

// FromHalfOpen converts a 0-based half-open interval to a Position.
func FromHalfOpen(chrom string, start, end int) Position {
	return Position{Chrom: chrom, Start: start + 1, End: end}
}

// HalfOpen returns the 0-based half-open interval covered by p.
func (p Position) HalfOpen() (int, int) {
	return p.Start - 1, p.End
}

// Size is the number of bases covered by p.
func (p Position) Size() int {
	return p.End - p.Start + 1
}

// IsVirtual reports whether p is expressed in the virtual coordinate space.
func (p Position) IsVirtual() bool {
	return IsVirtualChrom(p.Chrom)
}

// Contains reports whether q lies entirely within p.
func (p Position) Contains(q Position) bool {
	return p.Chrom == q.Chrom && p.Start <= q.Start && q.End <= p.End
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d-%d", p.Chrom, p.Start, p.End)
}

// Commified formats p with thousands separators, e.g. chr1:1,000-2,000.
func (p Position) Commified() string {
	return p.Chrom + ":" + Commify(p.Start) + "-" + Commify(p.End)
}

// IsVirtualChrom reports whether chrom names the virtual coordinate space.
func IsVirtualChrom(chrom string) bool {
	return chrom == VirtualChrom || chrom == legacyVirtualChrom
}

// StripCommas removes thousands separators.
func StripCommas(s string) string {
	return strings.Replace(s, ",", "", -1)
}

// Commify formats n with thousands separators.
func Commify(n int) string {
	if n < 0 {
		return "-" + Commify(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
