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

// Package browser assembles the services of one track browser page into a
// Session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/googlegenomics/trackview/analytics"
	"github.com/googlegenomics/trackview/cart"
	"github.com/googlegenomics/trackview/drag"
	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/highlight"
	"github.com/googlegenomics/trackview/internal/eventloop"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
	"github.com/googlegenomics/trackview/pan"
	"github.com/googlegenomics/trackview/position"
	"github.com/googlegenomics/trackview/refresh"
	"github.com/sirupsen/logrus"
)

var (
	errNoState       = errors.New("response carries no track state")
	errMissingURL    = errors.New("no rendering endpoint configured")
	errUnknownAction = errors.New("unknown highlight action")
)

// Config configures a Session.  Zero values select the defaults.
type Config struct {
	// URL is the rendering endpoint.
	URL string
	// CartURL is the cart endpoint.  When empty cart updates travel with the
	// next rendering request.
	CartURL   string
	DB        string
	SessionID string
	HTTP      *http.Client

	InPlaceUpdate bool
	BackSupport   bool

	LeftMargin   int
	Slop         int
	SingleClick  time.Duration
	UnblockDelay time.Duration
	ManyTracks   int
	MaxGetLength int
	// HighlightColor is used until the user picks a color.
	HighlightColor string
	Links          []position.LinkRule

	// IdeogramHeight is the height of the chromosome ideogram in pixels.
	IdeogramHeight int

	// Analytics, when set, receives the session's usage hits on Flush.
	Analytics *analytics.Client
}

func (c *Config) setDefaults() {
	if c.LeftMargin == 0 {
		c.LeftMargin = genomics.DefaultLeftMargin
	}
	if c.Slop == 0 {
		c.Slop = position.DefaultSlop
	}
	if c.HighlightColor == "" {
		c.HighlightColor = highlight.DefaultColor
	}
	if c.Links == nil {
		c.Links = position.DefaultLinkRules
	}
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}
}

// Session is one page with every service wired to it.  Apart from Run and
// Flush, its methods must be called on the session's loop, or while the loop
// is not running.
type Session struct {
	Loop       *eventloop.Loop
	Page       *page.Page
	View       *model.View
	Position   *position.Store
	Highlights *highlight.Model
	Refresh    *refresh.Protocol
	Drag       *drag.Controller
	Ideogram   *drag.Ideogram
	Pan        *pan.Controller
	History    *refresh.Stack

	ctx   context.Context
	cfg   Config
	usage analytics.Buffer
	log   *logrus.Entry
}

// Open fetches the initial rendering for cfg and returns a session showing
// it.
func Open(ctx context.Context, cfg Config, params url.Values) (*Session, error) {
	if cfg.URL == "" {
		return nil, errMissingURL
	}
	cfg.setDefaults()
	query := url.Values{cart.SessionParam: {cfg.SessionID}}
	if cfg.DB != "" {
		query.Set("db", cfg.DB)
	}
	for name, values := range params {
		query[name] = values
	}

	req, err := http.NewRequest(http.MethodGet, cfg.URL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %v", err)
	}
	resp, err := cfg.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching page: %v", err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading page: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching page: unexpected response status: %v", resp.Status)
	}

	frag, err := model.ParseFragment(string(body))
	if err != nil {
		return nil, err
	}
	if frag.State == nil {
		return nil, errNoState
	}
	return New(ctx, cfg, frag), nil
}

// New returns a session showing the rendering frag.
func New(ctx context.Context, cfg Config, frag *model.Fragment) *Session {
	cfg.setDefaults()
	state := frag.State
	if state.PrevHlColor == "" {
		state.PrevHlColor = cfg.HighlightColor
	}

	s := &Session{
		Loop:    eventloop.New(),
		Page:    page.New(),
		View:    model.NewView(state),
		History: refresh.NewStack(),
		ctx:     ctx,
		cfg:     cfg,
		log:     logrus.WithFields(logrus.Fields{"session": cfg.SessionID, "db": state.DB}),
	}
	s.Page.AddInput(position.InputName, "position", true)
	s.Page.AddInput(position.InputName, "positionDisplay", false)
	for _, r := range frag.Rows {
		s.Page.AppendRow(r)
	}
	s.Page.SortRows()
	if frag.Ideogram != nil {
		s.Page.Ideogram = *frag.Ideogram
	}
	s.Page.Background = frag.Background

	s.Position = position.New(s.Page, s.View, position.Options{
		BackSupport: cfg.BackSupport,
		Slop:        cfg.Slop,
		Links:       cfg.Links,
	})

	var cartClient *cart.Client
	if cfg.CartURL != "" {
		cartClient = &cart.Client{HTTP: cfg.HTTP, URL: cfg.CartURL, SessionID: cfg.SessionID}
	}
	s.Refresh = refresh.New(ctx, s.Loop, s.Page, s.View, s.Position, refresh.Options{
		URL:           cfg.URL,
		SessionID:     cfg.SessionID,
		HTTP:          cfg.HTTP,
		Cart:          cartClient,
		InPlaceUpdate: cfg.InPlaceUpdate && state.InPlaceUpdate,
		ManyTracks:    cfg.ManyTracks,
		MaxGetLength:  cfg.MaxGetLength,
	})
	if cfg.BackSupport {
		s.Refresh.SetHistory(s.History)
	}

	s.Highlights = highlight.New(s.View, s.Page, s.Refresh, cfg.LeftMargin)
	s.Drag = drag.NewController(s.Loop, s.Page, s.View, s.Position, s.Highlights, s.Refresh, drag.Options{
		LeftMargin:   cfg.LeftMargin,
		SingleClick:  cfg.SingleClick,
		UnblockDelay: cfg.UnblockDelay,
	})
	s.Ideogram = drag.NewIdeogram(s.Loop, s.Page, s.View, s.Position, s.Refresh, drag.Chromosome{}, cfg.IdeogramHeight, drag.Options{
		UnblockDelay: cfg.UnblockDelay,
	})
	s.Pan = pan.New(s.Loop, s.Page, s.View, s.Position, s.Highlights, s.Refresh, cfg.UnblockDelay)

	s.Refresh.OnApply(s.applied)
	s.Position.SetByCoordinates(state.ChromName, state.WinStart+1, state.WinEnd)
	s.Highlights.Render()
	s.Page.ClearDirty()
	s.Refresh.SetInHistory()
	return s
}

func (s *Session) applied(state *model.State) {
	s.Highlights.Load(state)
	s.Highlights.Render()
	s.Pan.Reset(state)
	s.usage.Track(analytics.Count(analytics.Render, "Rows", len(s.Page.Rows())))
}

// Run processes the session's events until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return s.Loop.Run(ctx)
}

// Flush runs queued events and outstanding requests to completion.  It must
// not be called while Run is active.
func (s *Session) Flush() {
	s.Loop.Flush()
}

// SetChromosome describes the chromosome drawn in the ideogram.
func (s *Session) SetChromosome(c drag.Chromosome) {
	s.Ideogram.SetChromosome(c)
	if state := s.View.State(); state != nil && c.Name == state.ChromName && c.Size > 0 && state.ChromEnd == 0 {
		state.ChromEnd = c.Size
	}
}

// Go navigates to the position or search term typed by the user.
func (s *Session) Go(pos string) error {
	s.usage.Track(analytics.Event(analytics.Navigation, "Go", "", nil))
	return s.Refresh.Navigate(pos)
}

// ZoomTo shows size bases centered on the middle of the displayed position.
func (s *Session) ZoomTo(size int) (genomics.Position, error) {
	p, err := s.Position.Position()
	if err != nil {
		return genomics.Position{}, fmt.Errorf("reading position: %v", err)
	}
	if size <= 0 {
		return genomics.Position{}, fmt.Errorf("zooming to %d bases: size must be positive", size)
	}
	flank := size / 2
	mid := p.Start + (p.End-p.Start)/2
	start := mid - flank
	if start < 1 {
		start = 1
	}
	end := mid + flank - 1
	if end < start {
		end = start
	}
	shown := s.Position.SetByCoordinates(p.Chrom, start, end)
	if state := s.View.State(); state != nil {
		if parsed, err := genomics.ParsePosition(shown); err == nil {
			shown = genomics.Disguise(parsed, state.WindowSet()).String()
		}
	}
	s.usage.Track(analytics.Count(analytics.Navigation, "Zoom", size))
	s.Refresh.NavigateInPlace(url.Values{position.InputName: {shown}})
	return genomics.ParsePosition(shown)
}

// HighlightAction is what HighlightCurrentPosition does.
type HighlightAction int

const (
	// NewHighlight replaces the highlights with the displayed position.
	NewHighlight HighlightAction = iota
	// AddHighlight adds the displayed position to the highlights.
	AddHighlight
	// ClearHighlights removes every highlight.
	ClearHighlights
)

// HighlightCurrentPosition applies action to the displayed position.
func (s *Session) HighlightCurrentPosition(action HighlightAction) error {
	switch action {
	case NewHighlight, AddHighlight:
		p, err := s.Position.Position()
		if err != nil {
			return fmt.Errorf("reading position: %v", err)
		}
		s.Highlights.Add(p, "", action == NewHighlight)
		s.usage.Track(analytics.Event(analytics.Highlight, "Add", "", nil))
	case ClearHighlights:
		s.Highlights.Clear()
		s.usage.Track(analytics.Event(analytics.Highlight, "Clear", "", nil))
	default:
		return fmt.Errorf("%d: %v", action, errUnknownAction)
	}
	return nil
}

// TrackDragOutcome records the outcome of a drag selection.
func (s *Session) TrackDragOutcome(o drag.Outcome) {
	s.usage.Track(analytics.Event(analytics.Drag, fmt.Sprintf("%T", o), "", nil))
}

// TrackPanResult records how a pan ended.
func (s *Session) TrackPanResult(r pan.Result) {
	s.usage.Track(analytics.Event(analytics.Pan, r.String(), "", nil))
}

// SendUsage uploads the usage recorded so far.  It does nothing without an
// analytics client.
func (s *Session) SendUsage() {
	if s.cfg.Analytics == nil || s.usage.Len() == 0 {
		return
	}
	hits := s.usage.Drain()
	client, ctx, log := s.cfg.Analytics, s.ctx, s.log
	s.Loop.Go(func() func() {
		if err := client.Send(ctx, hits); err != nil {
			log.WithError(err).Warnf("Failed to send %d hits to analytics", len(hits))
		}
		return nil
	})
}
