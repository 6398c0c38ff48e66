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

// Package api implements a rendering endpoint and a cart endpoint for the
// track browser.
//
// The rendering endpoint answers whole-image and single-track requests with
// the table rows, the embedded track state and, for whole images, the
// chromosome ideogram.  It emits image URLs but never renders images.
package api

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/googlegenomics/trackview/analytics"
	"github.com/googlegenomics/trackview/cart"
	"github.com/googlegenomics/trackview/chrominfo"
	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/highlight"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
	"github.com/googlegenomics/trackview/position"
	"github.com/googlegenomics/trackview/refresh"
	"github.com/sirupsen/logrus"
)

const (
	// RenderPath is the path of the rendering endpoint.
	RenderPath = "/cgi-bin/hgTracks"
	// CartPath is the path of the cart endpoint.
	CartPath = "/cgi-bin/cart"

	trashPath = "/trash/hgt/"
	// imgOrdSuffix names the cart variable holding a track's row order.
	imgOrdSuffix = "_imgOrd"
)

var (
	errMissingSession = errors.New("no session id specified")
	errNoPosition     = errors.New("no position specified")
)

// Parameters that describe the request rather than the session.
var transientParams = map[string]bool{
	cart.SessionParam:            true,
	refresh.TrackImgOnlyParam:    true,
	refresh.TrackNameFilterParam: true,
	position.InputName:           true,
	"findNearest":                true,
}

// Track is an entry of the track catalog.
type Track struct {
	ID         string
	ShortLabel string
	Type       string
	// Visibility is used until the session selects another.
	Visibility model.Visibility
	// MaxVisibility, when set, caps the visibility the server renders.
	MaxVisibility *model.Visibility
}

// DefaultTracks is a small catalog for servers that configure none.
var DefaultTracks = []Track{
	{ID: "ruler", ShortLabel: "Base Position", Visibility: model.Dense},
	{ID: "knownGene", ShortLabel: "GENCODE Genes", Type: "genePred", Visibility: model.Pack},
	{ID: "refGene", ShortLabel: "RefSeq Genes", Type: "genePred", Visibility: model.Dense},
	{ID: "snp151", ShortLabel: "Common SNPs", Type: "bed", Visibility: model.Hide, MaxVisibility: visibility(model.Dense)},
	{ID: "cons100way", ShortLabel: "Conservation", Type: model.RemoteType, Visibility: model.Full},
}

func visibility(v model.Visibility) *model.Visibility {
	return &v
}

// Options configure a Server.
type Options struct {
	DB              string
	Version         string
	DefaultPosition string
	// ImageWidth is the width of the track image including the label column
	// of InsideX pixels.
	ImageWidth       int
	InsideX          int
	RulerClickHeight int
	// PortalScale, when greater than one, renders an image that many times
	// wider than the visible portal so that it can be panned.
	PortalScale int
	Tracks      []Track
	// Sizes supplies chromosome sizes.  When nil, positions are not clipped.
	Sizes chrominfo.Source
}

func (o *Options) setDefaults() {
	if o.DB == "" {
		o.DB = "hg19"
	}
	if o.Version == "" {
		o.Version = "1"
	}
	if o.DefaultPosition == "" {
		o.DefaultPosition = "chr1:11102837-11267747"
	}
	if o.ImageWidth == 0 {
		o.ImageWidth = 1000
	}
	if o.RulerClickHeight == 0 {
		o.RulerClickHeight = 20
	}
	if o.Tracks == nil {
		o.Tracks = DefaultTracks
	}
}

// NewStoreFunc is the type of function that returns the session store used
// to satisfy the incoming request.
type NewStoreFunc func(*http.Request) (cart.Store, error)

// Server provides the rendering and cart endpoints.  Must be created with
// NewServer.
type Server struct {
	newStore NewStoreFunc
	opts     Options
	log      *logrus.Entry
}

// NewServer returns a new Server that persists sessions in the store
// returned by newStore.
func NewServer(newStore NewStoreFunc, opts Options) *Server {
	opts.setDefaults()
	return &Server{
		newStore: newStore,
		opts:     opts,
		log:      logrus.WithField("component", "api"),
	}
}

// Export registers the endpoints with router.
func (server *Server) Export(router gin.IRoutes) {
	router.GET(RenderPath, forwardOrigin, server.serveRender)
	router.POST(RenderPath, forwardOrigin, server.serveRender)
	router.POST(CartPath, forwardOrigin, server.serveCart)
}

func (server *Server) serveRender(c *gin.Context) {
	req := c.Request
	ctx := req.Context()

	track := analytics.TrackerFromContext(ctx)
	track(analytics.Event(analytics.Render, "Render Request Received", "", nil))

	if err := req.ParseForm(); err != nil {
		writeError(c, newInvalidInputError("parsing form", err))
		return
	}
	form := req.Form
	if db := form.Get("db"); db != "" && !chrominfo.ValidAssembly(db) {
		writeError(c, newInvalidInputError("reading assembly", fmt.Errorf("%q: %w", db, chrominfo.ErrInvalidAssembly)))
		return
	}

	id := form.Get(cart.SessionParam)
	if id == "" {
		id = uuid.New().String()
	}
	store, err := server.newStore(req)
	if err != nil {
		writeError(c, newStorageError("creating store", err))
		return
	}
	vars, err := cart.Update(ctx, store, id, persistent(form))
	if err != nil {
		writeError(c, newStorageError("updating session", err))
		return
	}

	db := vars["db"]
	if db == "" {
		db = server.opts.DB
	}
	if !chrominfo.ValidAssembly(db) {
		writeError(c, newInvalidInputError("reading assembly", fmt.Errorf("%q: %w", db, chrominfo.ErrInvalidAssembly)))
		return
	}
	requested := form.Get(position.InputName)
	pos, size, warnings, err := server.resolvePosition(ctx, db, requested, vars[position.InputName])
	if err != nil {
		writeError(c, err)
		return
	}
	if requested != "" {
		if _, err := cart.Update(ctx, store, id, url.Values{position.InputName: {pos.String()}}); err != nil {
			writeError(c, newStorageError("saving position", err))
			return
		}
	}

	state := server.newState(db, pos, size, vars)
	filter := form.Get(refresh.TrackNameFilterParam)
	rows := server.rows(state, vars, filter)

	body, err := server.render(id, state, rows, warnings, filter == "")
	if err != nil {
		server.log.WithError(err).Error("Failed to render response")
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))

	track(analytics.Count(analytics.Render, "Render Response Rows", len(rows)))
	track(analytics.Event(analytics.Render, "Render Response Sent", "", nil))
}

func (server *Server) serveCart(c *gin.Context) {
	req := c.Request
	ctx := req.Context()

	track := analytics.TrackerFromContext(ctx)
	track(analytics.Event(analytics.Cart, "Cart Update Received", "", nil))

	if err := req.ParseForm(); err != nil {
		writeError(c, newInvalidInputError("parsing form", err))
		return
	}
	id := req.PostForm.Get(cart.SessionParam)
	if id == "" {
		writeError(c, newInvalidInputError("reading session", errMissingSession))
		return
	}
	store, err := server.newStore(req)
	if err != nil {
		writeError(c, newStorageError("creating store", err))
		return
	}
	vars, err := cart.Update(ctx, store, id, req.PostForm)
	if err != nil {
		writeError(c, newStorageError("updating session", err))
		return
	}
	c.JSON(http.StatusOK, vars)
}

// persistent returns the parameters of form that belong in the session.
func persistent(form url.Values) url.Values {
	vars := make(url.Values, len(form))
	for name, values := range form {
		if !transientParams[name] {
			vars[name] = values
		}
	}
	return vars
}

// resolvePosition returns the position to render and the size of its
// chromosome, clipping the position to the chromosome.  The requested
// position wins over the stored one, which wins over the default.
func (server *Server) resolvePosition(ctx context.Context, db, requested, stored string) (genomics.Position, int, []string, error) {
	text := requested
	if text == "" {
		text = stored
	}
	if text == "" {
		text = server.opts.DefaultPosition
	}
	if strings.TrimSpace(text) == "" {
		return genomics.Position{}, 0, nil, newInvalidInputError("resolving position", errNoPosition)
	}
	pos, err := genomics.ParsePosition(text)
	if err != nil {
		return genomics.Position{}, 0, nil, newInvalidInputError("parsing position", err)
	}
	if server.opts.Sizes == nil {
		return pos, 0, nil, nil
	}

	size, err := server.opts.Sizes.Size(ctx, db, pos.Chrom)
	if errors.Is(err, chrominfo.ErrUnknownChrom) {
		return genomics.Position{}, 0, nil, newNotFoundError("looking up chromosome", err)
	}
	if err != nil {
		return genomics.Position{}, 0, nil, fmt.Errorf("looking up chromosome: %v", err)
	}

	clipped := clip(pos, size)
	var warnings []string
	if clipped != pos {
		warnings = append(warnings, fmt.Sprintf("Position %s extends beyond %s; showing %s", pos, pos.Chrom, clipped))
	}
	return clipped, size, warnings, nil
}

// clip moves pos into [1, size], keeping its width where possible.
func clip(pos genomics.Position, size int) genomics.Position {
	if pos.End < pos.Start {
		pos.Start, pos.End = pos.End, pos.Start
	}
	width := pos.End - pos.Start
	if pos.Start < 1 {
		pos.Start = 1
	}
	if pos.End > size {
		pos.End = size
	}
	if pos.End < pos.Start {
		pos.Start = pos.End - width
		if pos.Start < 1 {
			pos.Start = 1
		}
	}
	return pos
}

func (server *Server) newState(db string, pos genomics.Position, size int, vars cart.Vars) *model.State {
	start, end := pos.HalfOpen()
	chromEnd := size
	if chromEnd == 0 {
		chromEnd = end
	}
	state := &model.State{
		CGIVersion:               server.opts.Version,
		DB:                       db,
		ChromName:                pos.Chrom,
		WinStart:                 start,
		WinEnd:                   end,
		ChromStart:               0,
		ChromEnd:                 chromEnd,
		NewWinWidth:              pos.Size(),
		InsideX:                  server.opts.InsideX,
		RulerClickHeight:         server.opts.RulerClickHeight,
		InPlaceUpdate:            true,
		TrackDb:                  make(map[string]*model.TrackRecord),
		Highlight:                vars[highlight.HighlightVar],
		PrevHlColor:              vars[highlight.ColorVar],
		EnableHighlightingDialog: vars[highlight.DialogVar] != "0",
	}

	lastDbPos := url.Values{position.InputName: {pos.String()}}
	for _, t := range server.opts.Tracks {
		rec := &model.TrackRecord{
			Visibility: t.Visibility,
			Type:       t.Type,
			ShortLabel: t.ShortLabel,
		}
		if v, err := model.ParseVisibility(vars[t.ID]); err == nil {
			rec.Visibility = v
		}
		if t.MaxVisibility != nil && rank(rec.Visibility) > rank(*t.MaxVisibility) {
			rec.LimitedVis = visibility(*t.MaxVisibility)
		}
		state.TrackDb[t.ID] = rec
		lastDbPos.Set(t.ID, rec.Visibility.String())
	}
	state.LastDbPos = lastDbPos.Encode()

	if server.opts.PortalScale > 1 {
		server.addPortal(state, start, end, chromEnd)
	}
	return state
}

// addPortal widens the rendered window around the portal [start, end).
func (server *Server) addPortal(state *model.State, start, end, chromEnd int) {
	dataWidth := server.opts.ImageWidth - server.opts.InsideX
	if dataWidth <= 0 {
		dataWidth = server.opts.ImageWidth
	}
	bases := end - start
	extra := bases * (server.opts.PortalScale - 1) / 2
	winStart, winEnd := start-extra, end+extra
	if winStart < 0 {
		winStart = 0
	}
	if winEnd > chromEnd {
		winEnd = chromEnd
	}
	bpp := float64(bases) / float64(dataWidth)

	state.WinStart, state.WinEnd = winStart, winEnd
	state.ImgBoxPortal = true
	state.ImgBoxWidth = int(math.Round(float64(winEnd-winStart) / bpp))
	state.ImgBoxPortalWidth = dataWidth
	state.ImgBoxPortalLeft = server.opts.InsideX
	state.ImgBoxPortalOffsetX = int(math.Round(float64(start-winStart) / bpp))
	state.ImgBoxPortalStart = start
	state.ImgBoxPortalEnd = end
	state.ImgBoxBasesPerPixel = bpp
}

// rank orders visibilities by how much space they take.
func rank(v model.Visibility) int {
	switch v {
	case model.Dense:
		return 1
	case model.Squish:
		return 2
	case model.Pack:
		return 3
	case model.Full:
		return 4
	}
	return 0
}

// rows returns the rows of the visible image tracks, restricted to filter
// when it is not empty.
func (server *Server) rows(state *model.State, vars cart.Vars, filter string) []*page.Row {
	var rows []*page.Row
	for i, t := range server.opts.Tracks {
		if filter != "" && t.ID != filter {
			continue
		}
		rec := state.TrackDb[t.ID]
		if rec.Visibility == model.Hide || rec.Type == model.RemoteType {
			continue
		}
		vis := rec.Visibility
		if rec.LimitedVis != nil {
			vis = *rec.LimitedVis
		}
		order := i + 1
		if n, err := strconv.Atoi(vars[t.ID+imgOrdSuffix]); err == nil {
			order = n
		}
		src := fmt.Sprintf("%s%s_%s_%s_%d_%d_%s.png", trashPath, t.ID, state.DB, state.ChromName, state.WinStart, state.WinEnd, vis)
		rows = append(rows, &page.Row{
			TrackID: t.ID,
			Class:   "imgOrd trDraggable",
			Order:   order,
			Content: fmt.Sprintf(`<td class="tdData"><img class="panImg" src="%s" alt="%s"></td>`, html.EscapeString(src), html.EscapeString(t.ShortLabel)),
		})
	}
	return rows
}

func (server *Server) render(id string, state *model.State, rows []*page.Row, warnings []string, whole bool) (string, error) {
	embedded, err := model.Embed(state)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(embedded)
	if len(warnings) > 0 {
		b.WriteString(`<ul id="warnList">`)
		for _, w := range warnings {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(w))
		}
		b.WriteString("</ul>\n")
	}
	if whole {
		fmt.Fprintf(&b, `<input type="hidden" name="%s" value="%s">`+"\n", cart.SessionParam, html.EscapeString(id))
		fmt.Fprintf(&b, `<img id="chrom" src="%sideo_%s_%s.png" width="%d">`+"\n",
			trashPath, html.EscapeString(state.DB), html.EscapeString(state.ChromName), server.opts.ImageWidth)
	}
	b.WriteString(`<table id="imgTbl">` + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr id="%s" abbr="%d" class="%s">%s</tr>`+"\n", r.ElementID(), r.Order, r.Class, r.Content)
	}
	b.WriteString("</table>\n")
	return b.String(), nil
}

// apiError is used to capture errors that have a name and status code.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func newAPIError(name string, code int, context string, err error) error {
	return &apiError{name, code, fmt.Errorf("%s: %v", context, err)}
}

func newInvalidAuthenticationError(context string, err error) error {
	return newAPIError("InvalidAuthentication", http.StatusUnauthorized, context, err)
}

func newInvalidInputError(context string, err error) error {
	return newAPIError("InvalidInput", http.StatusBadRequest, context, err)
}

func newPermissionDeniedError(context string, err error) error {
	return newAPIError("PermissionDenied", http.StatusForbidden, context, err)
}

func newNotFoundError(context string, err error) error {
	return newAPIError("NotFound", http.StatusNotFound, context, err)
}

// writeError writes either a JSON object or bare HTTP error describing err.
// A JSON object is written only when the error has a name and code.
func writeError(c *gin.Context, err error) {
	if err, ok := err.(*apiError); ok {
		c.JSON(err.code, gin.H{
			"error":   err.name,
			"message": fmt.Sprintf("%s: %v", http.StatusText(err.code), err.cause),
		})
		return
	}
	c.String(http.StatusInternalServerError, "%s: %v", http.StatusText(http.StatusInternalServerError), err)
}

func forwardOrigin(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
	}
	c.Next()
}
