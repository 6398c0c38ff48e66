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

// Package highlight implements the list of colored regions drawn over the
// track image.
package highlight

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/googlegenomics/trackview/genomics"
)

// DefaultColor is used when neither the highlight nor the user chose one.
const DefaultColor = "#aaedff"

const separator = "|"

var errMalformedHighlight = errors.New("malformed highlight")

// Highlight is one colored region.  Start and End are 1-based and closed.
// Color includes the leading '#' and is empty when none was given.
type Highlight struct {
	DB    string
	Chrom string
	Start int
	End   int
	Color string
}

// Position returns the highlighted region.
func (h Highlight) Position() genomics.Position {
	return genomics.Position{Chrom: h.Chrom, Start: h.Start, End: h.End}
}

// String formats h as db.chrom:start-end#color.
func (h Highlight) String() string {
	var b strings.Builder
	if h.DB != "" {
		b.WriteString(h.DB)
		b.WriteByte('.')
	}
	b.WriteString(h.Position().String())
	b.WriteString(h.Color)
	return b.String()
}

// Parse reads a highlight in any of the formats found in saved sessions:
//
//	chrom:start-end
//	db.chrom:start-end
//	db.chrom:start-end#color
//	db#chrom#start#end#color
//
// defaultDB is used when the string names no assembly.
func Parse(s, defaultDB string) (Highlight, error) {
	if parts := strings.Split(s, "#"); len(parts) == 5 {
		start, err := strconv.Atoi(parts[2])
		if err != nil {
			return Highlight{}, fmt.Errorf("parsing start: %v", err)
		}
		end, err := strconv.Atoi(parts[3])
		if err != nil {
			return Highlight{}, fmt.Errorf("parsing end: %v", err)
		}
		h := Highlight{DB: parts[0], Chrom: parts[1], Start: start, End: end}
		if parts[4] != "" {
			h.Color = "#" + parts[4]
		}
		return h, nil
	}

	h := Highlight{DB: defaultDB}
	rest := s
	if parts := strings.Split(rest, "."); len(parts) == 2 {
		h.DB, rest = parts[0], parts[1]
	}
	if parts := strings.Split(rest, "#"); len(parts) == 2 {
		rest = parts[0]
		h.Color = "#" + parts[1]
	}
	p, err := genomics.ParsePosition(rest)
	if err != nil {
		return Highlight{}, fmt.Errorf("%q: %v", s, errMalformedHighlight)
	}
	h.Chrom, h.Start, h.End = p.Chrom, p.Start, p.End
	return h, nil
}

// ParseList splits a |-joined highlight list.  Empty and malformed entries
// are dropped.
func ParseList(s, defaultDB string) []Highlight {
	var list []Highlight
	for _, item := range strings.Split(s, separator) {
		if item == "" {
			continue
		}
		h, err := Parse(item, defaultDB)
		if err != nil {
			continue
		}
		list = append(list, h)
	}
	return list
}

// Encode joins list into the persisted form read by ParseList.
func Encode(list []Highlight) string {
	items := make([]string, len(list))
	for i, h := range list {
		items[i] = h.String()
	}
	return strings.Join(items, separator)
}
