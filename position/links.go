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

package position

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/googlegenomics/trackview/genomics"
)

// Field selects the value a link parameter receives.
type Field int

const (
	// Start is the 1-based start.
	Start Field = iota
	// End is the closed end.
	End
	// ZeroStart is the 0-based start.
	ZeroStart
	// Chrom is the chromosome name.
	Chrom
	// DB is the assembly name.
	DB
	// Range keeps the existing value up to its last ':' and appends
	// start-end, as in name=II:100-200.
	Range
)

// Param binds a query parameter to a field.
type Param struct {
	Name  string
	Field Field
}

// LinkRule rewrites the query of one cross-reference link.  A rule applies
// only when the link exists and its URL already carries every parameter;
// otherwise it is skipped.
type LinkRule struct {
	LinkID string
	Params []Param
}

// DefaultLinkRules covers the cross-reference links of the track page.
var DefaultLinkRules = []LinkRule{
	{"ensemblLink", []Param{{"start", Start}, {"end", End}}},
	{"ncbiLink", []Param{{"BEG", Start}, {"END", End}}},
	{"ncbiLink", []Param{{"from", Start}, {"to", End}}},
	{"medakaLink", []Param{{"start", Start}, {"end", End}}},
	{"wormbaseLink", []Param{{"name", Range}}},
	{"dnaLink", []Param{{"o", ZeroStart}, {"l", ZeroStart}, {"r", End}, {"c", Chrom}, {"db", DB}}},
}

// rewrite returns href with the rule's parameters set for p, and whether
// the rule applied.
func (r LinkRule) rewrite(href string, p genomics.Position, db string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return href, false
	}
	q := u.Query()
	for _, param := range r.Params {
		if _, ok := q[param.Name]; !ok {
			return href, false
		}
	}
	for _, param := range r.Params {
		var v string
		switch param.Field {
		case Start:
			v = strconv.Itoa(p.Start)
		case End:
			v = strconv.Itoa(p.End)
		case ZeroStart:
			v = strconv.Itoa(p.Start - 1)
		case Chrom:
			v = p.Chrom
		case DB:
			if db == "" {
				continue
			}
			v = db
		case Range:
			old := q.Get(param.Name)
			i := strings.LastIndex(old, ":")
			if i < 0 {
				return href, false
			}
			v = old[:i+1] + strconv.Itoa(p.Start) + "-" + strconv.Itoa(p.End)
		}
		q.Set(param.Name, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}
