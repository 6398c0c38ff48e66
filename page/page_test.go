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

package page

import (
	"reflect"
	"testing"
)

func trackIDs(rows []*Row) []string {
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.TrackID)
	}
	return ids
}

func TestRows(t *testing.T) {
	p := New()
	p.AppendRow(&Row{TrackID: "knownGene", Order: 3})
	p.AppendRow(&Row{TrackID: "ruler", Order: 1})
	p.AppendRow(&Row{TrackID: "snp", Order: 2})
	p.AppendRow(&Row{TrackID: "cons", Order: 2})

	if got, want := p.Row("snp").ElementID(), "tr_snp"; got != want {
		t.Errorf("Wrong element id: got %q, want %q", got, want)
	}

	p.SortRows()
	if got, want := trackIDs(p.Rows()), []string{"ruler", "snp", "cons", "knownGene"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong sorted rows: got %v, want %v", got, want)
	}

	if !p.RemoveRow("snp") {
		t.Fatalf("RemoveRow(snp) found no row")
	}
	if p.RemoveRow("snp") {
		t.Errorf("RemoveRow(snp) removed a row twice")
	}
	if p.Row("snp") != nil {
		t.Errorf("Row(snp) still present after removal")
	}

	p.AppendRow(&Row{TrackID: "ruler", Order: 9})
	if got, want := trackIDs(p.Rows()), []string{"cons", "knownGene", "ruler"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong rows after re-append: got %v, want %v", got, want)
	}

	if !p.ReplaceRow(&Row{TrackID: "cons", Content: "new"}) {
		t.Fatalf("ReplaceRow(cons) found no row")
	}
	if got, want := trackIDs(p.Rows()), []string{"cons", "knownGene", "ruler"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong rows after replace: got %v, want %v", got, want)
	}
	if got, want := p.Row("cons").Content, "new"; got != want {
		t.Errorf("Wrong replaced content: got %q, want %q", got, want)
	}
	if p.ReplaceRow(&Row{TrackID: "missing"}) {
		t.Errorf("ReplaceRow(missing) reported a replacement")
	}
}

func TestFlags(t *testing.T) {
	p := New()
	if p.IsDirty() || !p.ClicksAllowed() || p.AnyLoading() {
		t.Fatalf("New page has flags set")
	}
	p.MarkDirty()
	p.BlockClicks()
	p.ShowLoading("")
	p.ShowLoading("snp")
	if !p.IsDirty() || p.ClicksAllowed() || !p.Loading("snp") {
		t.Errorf("Flags not set")
	}
	p.HideLoading("snp")
	if p.Loading("snp") || !p.AnyLoading() {
		t.Errorf("Wrong loading state after hiding one indicator")
	}
	p.HideLoading("")
	p.AllowClicks()
	p.ClearDirty()
	if p.IsDirty() || !p.ClicksAllowed() || p.AnyLoading() {
		t.Errorf("Flags not cleared")
	}
}

func TestImageContains(t *testing.T) {
	img := Image{Left: 10, Top: 100, Width: 200, Height: 50}
	testCases := []struct {
		x, y int
		want bool
	}{
		{10, 100, true},
		{209, 149, true},
		{210, 120, false},
		{50, 99, false},
		{50, 150, false},
	}
	for _, tc := range testCases {
		if got := img.Contains(tc.x, tc.y); got != tc.want {
			t.Errorf("Wrong Contains(%d, %d): got %t, want %t", tc.x, tc.y, got, tc.want)
		}
	}
}
