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

// Package refresh keeps the displayed track image, the track-state model and
// the server session consistent.  It issues partial image updates, merges
// their responses into the page, escalates to full reloads when patching is
// unsafe and reconciles the page with browser history.
//
// All methods must be called from the event loop that owns the page.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/googlegenomics/trackview/cart"
	"github.com/googlegenomics/trackview/internal/eventloop"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
	"github.com/googlegenomics/trackview/position"
	"github.com/sirupsen/logrus"
)

// Request parameters understood by the rendering endpoint.
const (
	TrackImgOnlyParam    = "hgt.trackImgOnly"
	TrackNameFilterParam = "hgt.trackNameFilter"
)

// Defaults for Options.
const (
	DefaultManyTracks        = 50
	DefaultMaxGetLength      = 2000
	DefaultMaxPositionLength = 2000
)

// GenericFailure is shown when a response cannot be applied.
const GenericFailure = "Couldn't update the track image. Reload the page to continue."

var (
	errMissingState     = errors.New("response carried no track state")
	errPositionTooLong  = errors.New("position too long")
	errUnexpectedStatus = errors.New("unexpected status")
)

// Status is the state of one partial-update request.
type Status int

const (
	Idle Status = iota
	Requested
	Applied
	Rejected
	Superseded
)

var statusNames = []string{"idle", "requested", "applied", "rejected", "superseded"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Request is one issued partial update.
type Request struct {
	// TrackID is empty for a whole-image update.
	TrackID string
	Seq     uint64
	Params  url.Values
	// NewVisibility is the visibility asked for, if the request changes it.
	NewVisibility *model.Visibility

	status     Status
	navigation bool
}

// Status returns the request's current state.
func (r *Request) Status() Status {
	return r.status
}

// Options configures a Protocol.
type Options struct {
	// URL is the rendering endpoint.
	URL       string
	SessionID string
	HTTP      *http.Client
	// Cart, when set, receives flushed cart updates.  Without it updates
	// travel with the next rendering request.
	Cart *cart.Client

	// InPlaceUpdate enables partial navigation.  Without it every navigation
	// reloads the page.
	InPlaceUpdate bool
	// ManyTracks is the track count above which navigation reloads the page.
	ManyTracks int
	// MaxGetLength is the encoded parameter length above which requests are
	// posted.
	MaxGetLength      int
	MaxPositionLength int
}

func (o *Options) setDefaults() {
	if o.ManyTracks == 0 {
		o.ManyTracks = DefaultManyTracks
	}
	if o.MaxGetLength == 0 {
		o.MaxGetLength = DefaultMaxGetLength
	}
	if o.MaxPositionLength == 0 {
		o.MaxPositionLength = DefaultMaxPositionLength
	}
	if o.HTTP == nil {
		o.HTTP = http.DefaultClient
	}
}

// Protocol is the image synchronization service of one page.
type Protocol struct {
	ctx  context.Context
	loop *eventloop.Loop
	page *page.Page
	view *model.View
	pos  *position.Store
	opts Options

	queue   *cart.Queue
	seq     map[string]uint64
	history History
	applied []func(*model.State)
	log     *logrus.Entry
}

// New returns a protocol for the page p.  ctx bounds every request the
// protocol issues; responses are applied on loop.
func New(ctx context.Context, loop *eventloop.Loop, p *page.Page, v *model.View, pos *position.Store, opts Options) *Protocol {
	opts.setDefaults()
	return &Protocol{
		ctx:   ctx,
		loop:  loop,
		page:  p,
		view:  v,
		pos:   pos,
		opts:  opts,
		queue: cart.NewQueue(),
		seq:   make(map[string]uint64),
		log:   logrus.WithField("session", opts.SessionID),
	}
}

// OnApply registers fn to run after a whole-image response has been applied.
func (p *Protocol) OnApply(fn func(*model.State)) {
	p.applied = append(p.applied, fn)
}

// SetHistory attaches the browser history the protocol records navigation
// in.
func (p *Protocol) SetHistory(h History) {
	p.history = h
}

// SetVars queues cart updates and flushes them.
func (p *Protocol) SetVars(vars map[string]string) {
	p.queue.SetAll(vars)
	p.Flush()
}

// QueueVars queues cart updates to travel with the next request.
func (p *Protocol) QueueVars(vars map[string]string) {
	p.queue.SetAll(vars)
}

// Pending returns the queued cart updates.
func (p *Protocol) Pending() *cart.Queue {
	return p.queue
}

// Flush sends the queued cart updates to the cart endpoint.  Sending is
// fire-and-forget; a failure is reported on the page.
func (p *Protocol) Flush() {
	if p.opts.Cart == nil || p.queue.Len() == 0 {
		return
	}
	vars := p.queue.Drain()
	client := p.opts.Cart
	p.loop.Go(func() func() {
		err := client.Send(p.ctx, vars)
		if err == nil {
			return nil
		}
		return func() {
			p.log.WithError(err).Warn("Cart update failed")
			p.page.Notify(fmt.Sprintf("Couldn't save settings: %v", err))
		}
	})
}

// ManyTracks reports whether so many tracks are shown that partial updates
// are slower than reloading.
func (p *Protocol) ManyTracks() bool {
	state := p.view.State()
	if state == nil {
		return false
	}
	visible := 0
	for _, rec := range state.TrackDb {
		if rec.EffectiveVisibility() != model.Hide {
			visible++
		}
	}
	return visible > p.opts.ManyTracks
}

// RequestPartialUpdate asks for a new rendering of trackID, or of the whole
// image when trackID is empty.  Queued cart updates and extra travel with
// the request.  The request supersedes any earlier one for the same row; a
// whole-image request supersedes every pending row request.
func (p *Protocol) RequestPartialUpdate(trackID string, extra url.Values, newVis *model.Visibility) *Request {
	params := url.Values{}
	params.Set(TrackImgOnlyParam, "1")
	params.Set(cart.SessionParam, p.opts.SessionID)
	if trackID != "" {
		params.Set(TrackNameFilterParam, trackID)
	}
	for name, values := range p.queue.Drain() {
		params[name] = values
	}
	for name, values := range extra {
		params[name] = values
	}

	if trackID == "" {
		for id := range p.seq {
			if id != "" {
				p.seq[id]++
				p.page.HideLoading(id)
			}
		}
	}
	p.seq[trackID]++
	req := &Request{TrackID: trackID, Seq: p.seq[trackID], Params: params, NewVisibility: newVis, status: Requested}
	p.page.ShowLoading(trackID)

	log := p.log.WithFields(logrus.Fields{"track": trackID, "seq": req.Seq})
	log.Debug("Requesting image update")
	p.loop.Go(func() func() {
		body, err := p.fetch(params)
		return func() { p.apply(req, body, err) }
	})
	return req
}

func (p *Protocol) fetch(params url.Values) (string, error) {
	encoded := params.Encode()
	var (
		req *http.Request
		err error
	)
	if len(encoded) > p.opts.MaxGetLength {
		req, err = http.NewRequest(http.MethodPost, p.opts.URL, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequest(http.MethodGet, p.opts.URL+"?"+encoded, nil)
	}
	if err != nil {
		return "", fmt.Errorf("creating request: %v", err)
	}

	resp, err := p.opts.HTTP.Do(req.WithContext(p.ctx))
	if err != nil {
		return "", fmt.Errorf("requesting image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("requesting image: %v %s", errUnexpectedStatus, resp.Status)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading image response: %v", err)
	}
	return string(body), nil
}

func (p *Protocol) apply(req *Request, body string, err error) {
	log := p.log.WithFields(logrus.Fields{"track": req.TrackID, "seq": req.Seq})
	if p.seq[req.TrackID] != req.Seq {
		req.status = Superseded
		log.Debug("Dropping superseded image update")
		return
	}
	defer p.page.HideLoading(req.TrackID)

	if err != nil {
		req.status = Rejected
		log.WithError(err).Warn("Image update failed")
		p.page.Notify(GenericFailure)
		return
	}
	frag, err := model.ParseFragment(body)
	if err != nil {
		req.status = Rejected
		log.WithError(err).Warn("Unreadable image update")
		p.page.Notify(GenericFailure)
		return
	}
	if frag.State == nil {
		req.status = Rejected
		log.WithError(errMissingState).Warn("Image update rejected")
		if len(frag.Warnings) > 0 {
			p.page.Notify(strings.Join(frag.Warnings, "\n"))
		} else {
			p.page.Notify(GenericFailure)
		}
		return
	}

	old := p.view.State()
	if old != nil && (old.CGIVersion != frag.State.CGIVersion || frag.State.VirtChromChanged) {
		req.status = Rejected
		log.WithFields(logrus.Fields{"old": old.CGIVersion, "new": frag.State.CGIVersion}).Info("Server state changed, reloading")
		p.FullReload()
		return
	}

	if req.TrackID != "" {
		p.applyTrack(req, frag, log)
		return
	}
	p.applyAll(req, frag, log)
}

func (p *Protocol) applyTrack(req *Request, frag *model.Fragment, log *logrus.Entry) {
	id := req.TrackID
	if cur := p.view.State(); cur != nil && !sameWindow(cur, frag.State) {
		req.status = Superseded
		log.WithField("window", fmt.Sprintf("%s:%d-%d", frag.State.ChromName, frag.State.WinStart, frag.State.WinEnd)).Debug("Dropping image update for another window")
		return
	}
	rec := frag.State.Track(id)
	if rec == nil || p.view.State() == nil {
		req.status = Rejected
		log.Info("Track missing from response, reloading")
		p.FullReload()
		return
	}
	if rec.LimitedVis != nil && req.NewVisibility != nil && *rec.LimitedVis != *req.NewVisibility {
		p.page.Notify(fmt.Sprintf("%s is shown in %s mode: too many items to display in %s mode.",
			trackLabel(id, rec), *rec.LimitedVis, *req.NewVisibility))
	}

	row := frag.Rows[id]
	if old := p.page.Row(id); old != nil {
		if row == nil || rec.Visibility == model.Hide {
			p.page.RemoveRow(id)
		} else {
			row.PanLeft = old.PanLeft
			row.Order = old.Order
			p.page.ReplaceRow(row)
		}
	} else if row != nil && rec.Visibility != model.Hide {
		p.page.AppendRow(row)
		p.page.SortRows()
	}

	next := *p.view.State()
	next.TrackDb = make(map[string]*model.TrackRecord, len(next.TrackDb)+1)
	for k, v := range p.view.State().TrackDb {
		next.TrackDb[k] = v
	}
	next.TrackDb[id] = rec
	p.view.Replace(&next)
	req.status = Applied
}

func sameWindow(a, b *model.State) bool {
	return a.ChromName == b.ChromName && a.WinStart == b.WinStart && a.WinEnd == b.WinEnd
}

func (p *Protocol) applyAll(req *Request, frag *model.Fragment, log *logrus.Entry) {
	old, next := p.view.State(), frag.State
	changes := UpdateAllRows(p.page, old, next, frag.Rows)
	if frag.Ideogram != nil {
		p.page.Ideogram = *frag.Ideogram
	}
	if frag.Background != "" {
		p.page.Background = frag.Background
	}
	p.view.Replace(next)
	p.pos.ClearOriginal()
	p.pos.SetByCoordinates(next.ChromName, next.WinStart+1, next.WinEnd)
	for _, fn := range p.applied {
		fn(next)
	}
	if req.navigation {
		p.SetInHistory()
	}
	req.status = Applied
	log.WithFields(logrus.Fields{
		"patched":  len(changes.Patched),
		"appended": len(changes.Appended),
		"removed":  len(changes.Removed),
		"position": p.pos.Get(),
	}).Debug("Applied image update")
}

// RowChanges lists the rows touched by UpdateAllRows.
type RowChanges struct {
	Patched  []string
	Appended []string
	Removed  []string
}

// UpdateAllRows replaces the rows of p with those of a whole-image response.
// Rows of tracks visible before and after are patched in place, newly
// visible tracks are appended and tracks no longer shown are removed.  The
// table is then sorted by order key.
func UpdateAllRows(p *page.Page, old, next *model.State, rows map[string]*page.Row) RowChanges {
	var changes RowChanges
	for _, id := range next.TrackIDs() {
		rec := next.TrackDb[id]
		if rec.Visibility == model.Hide || rec.Type == model.RemoteType {
			if rec.Visibility == model.Hide && p.RemoveRow(id) {
				changes.Removed = append(changes.Removed, id)
			}
			continue
		}
		row := rows[id]
		if row == nil {
			continue
		}
		prev := old.Track(id)
		if current := p.Row(id); current != nil && prev != nil && prev.Visibility != model.Hide {
			row.PanLeft = current.PanLeft
			p.ReplaceRow(row)
			changes.Patched = append(changes.Patched, id)
			continue
		}
		p.AppendRow(row)
		changes.Appended = append(changes.Appended, id)
	}
	if old != nil {
		for _, id := range old.TrackIDs() {
			if next.Track(id) == nil && p.RemoveRow(id) {
				changes.Removed = append(changes.Removed, id)
			}
		}
	}
	p.SortRows()
	return changes
}

// NavigateInPlace shows the view described by params, updating the image in
// place when the page supports it and reloading the page otherwise.
func (p *Protocol) NavigateInPlace(params url.Values) *Request {
	if !p.opts.InPlaceUpdate || p.ManyTracks() {
		p.submit(params)
		return nil
	}
	req := p.RequestPartialUpdate("", params, nil)
	req.navigation = true
	return req
}

// Navigate moves to the position typed by the user.  A position on the
// displayed chromosome is shown in place; anything else, including search
// terms, reloads the page.
func (p *Protocol) Navigate(pos string) error {
	if len(pos) > p.opts.MaxPositionLength {
		p.page.Notify(fmt.Sprintf("Position is longer than %d characters.", p.opts.MaxPositionLength))
		return fmt.Errorf("%d characters: %v", len(pos), errPositionTooLong)
	}
	params := url.Values{position.InputName: {pos}}
	state := p.view.State()
	if parsed, err := position.Parse(pos, state); err == nil && state != nil && !p.ManyTracks() && parsed.Chrom == state.ChromName {
		p.page.MarkDirty()
		p.NavigateInPlace(params)
		return nil
	}
	p.submit(params)
	return nil
}

// FullReload replaces the page, carrying the queued cart updates.
func (p *Protocol) FullReload() {
	p.submit(nil)
}

func (p *Protocol) submit(params url.Values) {
	form := p.queue.Drain()
	form.Set(cart.SessionParam, p.opts.SessionID)
	for name, values := range params {
		form[name] = values
	}
	for name, values := range form {
		p.page.Form[name] = values
	}
	target := p.opts.URL + "?" + form.Encode()
	p.log.WithField("target", target).Info("Reloading page")
	p.page.Load(target)
}

func trackLabel(id string, rec *model.TrackRecord) string {
	if rec.ShortLabel != "" {
		return rec.ShortLabel
	}
	return id
}
