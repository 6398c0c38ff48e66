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

package refresh

import (
	"strconv"

	"github.com/googlegenomics/trackview/model"
)

// OrderSuffix is appended to a track id to form its row order cart variable.
const OrderSuffix = "_imgOrd"

// SetVisibility records a visibility change made on the page.  The change
// is queued for the server and kept as the track's local visibility until a
// response confirms it.  Hiding a track removes its row.
func (p *Protocol) SetVisibility(trackID string, vis model.Visibility) {
	if rec := p.view.State().Track(trackID); rec != nil {
		v := vis
		rec.LocalVisibility = &v
		if vis == model.Hide {
			rec.Visibility = model.Hide
		}
	}
	if vis == model.Hide {
		p.page.RemoveRow(trackID)
	}
	p.QueueVars(map[string]string{trackID: vis.String()})
}

// MakeTrackVisible shows trackID in pack mode unless it is already shown in
// full.  The image is not updated.
func (p *Protocol) MakeTrackVisible(trackID string) {
	rec := p.view.State().Track(trackID)
	if rec != nil && rec.EffectiveVisibility() == model.Full {
		return
	}
	p.SetVisibility(trackID, model.Pack)
}

// ChangeVisibility sets the visibility of trackID and requests its new
// rendering.
func (p *Protocol) ChangeVisibility(trackID string, vis model.Visibility) *Request {
	p.SetVisibility(trackID, vis)
	if vis == model.Hide {
		p.Flush()
		return nil
	}
	return p.RequestPartialUpdate(trackID, nil, &vis)
}

// Reorder arranges the rows in the order of ids, which must name existing
// rows, and persists the order keys that changed.
func (p *Protocol) Reorder(ids []string) {
	vars := make(map[string]string)
	for i, id := range ids {
		row := p.page.Row(id)
		if row == nil || row.Order == i+1 {
			continue
		}
		row.Order = i + 1
		vars[id+OrderSuffix] = strconv.Itoa(row.Order)
	}
	if len(vars) == 0 {
		return
	}
	p.page.SortRows()
	p.page.MarkDirty()
	p.SetVars(vars)
}
