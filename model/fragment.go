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

package model

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/googlegenomics/trackview/page"
	"golang.org/x/net/html"
)

// StateVariable is the script variable holding the embedded state.
const StateVariable = "hgTracks"

const (
	ideogramID  = "chrom"
	warnListID  = "warnList"
	dataCellCls = "tdData"
)

var (
	statePattern = regexp.MustCompile(`(?s)// START ` + StateVariable +
		`\n?var ` + StateVariable + ` = (.+?);\n?// END ` + StateVariable)
	backgroundPattern = regexp.MustCompile(`background-image:\s*url\("?([^")]+)"?\)`)
)

// Fragment is what a rendering response carries besides plain markup.
type Fragment struct {
	// State is nil when the response embedded no state.
	State      *State
	Rows       map[string]*page.Row
	Ideogram   *page.Ideogram
	Background string
	Warnings   []string
}

// Scrape extracts the embedded state from a response body.  It returns nil
// and no error when the body carries no state.
func Scrape(body string) (*State, error) {
	m := statePattern.FindStringSubmatch(body)
	if m == nil {
		return nil, nil
	}
	var s State
	if err := json.Unmarshal([]byte(m[1]), &s); err != nil {
		return nil, fmt.Errorf("decoding %s: %v", StateVariable, err)
	}
	return &s, nil
}

// Embed renders s as the script block Scrape reads back.
func Embed(s *State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %v", StateVariable, err)
	}
	var b strings.Builder
	b.WriteString("<script>\n// START " + StateVariable + "\n")
	b.WriteString("var " + StateVariable + " = ")
	b.Write(data)
	b.WriteString(";\n// END " + StateVariable + "\n</script>\n")
	return b.String(), nil
}

// ParseFragment parses a rendering response.
func ParseFragment(body string) (*Fragment, error) {
	state, err := Scrape(body)
	if err != nil {
		return nil, err
	}
	f := &Fragment{State: state, Rows: make(map[string]*page.Row)}
	if err := f.scan(strings.NewReader(body)); err != nil {
		return nil, fmt.Errorf("parsing fragment: %v", err)
	}
	return f, nil
}

func (f *Fragment) scan(r io.Reader) error {
	z := html.NewTokenizer(r)
	var (
		row      *page.Row
		content  strings.Builder
		rowDepth int
		inWarn   int
		inItem   bool
		item     strings.Builder
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return err
			}
			return nil
		}
		raw := string(z.Raw())
		tok := z.Token()

		if row != nil {
			switch {
			case tt == html.StartTagToken && tok.Data == "tr":
				rowDepth++
			case tt == html.EndTagToken && tok.Data == "tr":
				rowDepth--
				if rowDepth == 0 {
					row.Content = content.String()
					f.Rows[row.TrackID] = row
					row = nil
					continue
				}
			}
			content.WriteString(raw)
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.Data {
			case "tr":
				if row != nil || tt == html.SelfClosingTagToken {
					break
				}
				id := attr(tok, "id")
				if !strings.HasPrefix(id, page.RowPrefix) {
					break
				}
				row = &page.Row{TrackID: strings.TrimPrefix(id, page.RowPrefix), Class: attr(tok, "class")}
				if order, err := strconv.Atoi(attr(tok, "abbr")); err == nil {
					row.Order = order
				}
				content.Reset()
				rowDepth = 1
			case "img":
				if attr(tok, "id") != ideogramID {
					break
				}
				ideo := &page.Ideogram{Src: attr(tok, "src"), Style: attr(tok, "style")}
				if w, err := strconv.Atoi(attr(tok, "width")); err == nil {
					ideo.Width = w
				}
				f.Ideogram = ideo
			case "td":
				if !hasClass(tok, dataCellCls) {
					break
				}
				if m := backgroundPattern.FindStringSubmatch(attr(tok, "style")); m != nil {
					f.Background = m[1]
				}
			case "ul":
				if inWarn > 0 {
					inWarn++
				} else if attr(tok, "id") == warnListID {
					inWarn = 1
				}
			case "li":
				if inWarn > 0 {
					inItem = true
					item.Reset()
				}
			}
		case html.EndTagToken:
			switch tok.Data {
			case "ul":
				if inWarn > 0 {
					inWarn--
				}
			case "li":
				if inItem {
					if msg := strings.TrimSpace(item.String()); msg != "" {
						f.Warnings = append(f.Warnings, msg)
					}
					inItem = false
				}
			}
		case html.TextToken:
			if inItem {
				item.WriteString(tok.Data)
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(tok html.Token, class string) bool {
	for _, c := range strings.Fields(attr(tok, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
