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

package browser

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/googlegenomics/trackview/analytics"
	"github.com/googlegenomics/trackview/drag"
	"github.com/googlegenomics/trackview/highlight"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer renders the requested position of chr1 with two tracks.
type fakeRenderer struct {
	mu       sync.Mutex
	requests []url.Values
	carts    []url.Values
	noState  bool
}

func (f *fakeRenderer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path == "/cart" {
		f.carts = append(f.carts, r.PostForm)
		return
	}
	f.requests = append(f.requests, r.Form)
	if f.noState {
		fmt.Fprint(w, "<html>no state here</html>")
		return
	}

	start, end := 0, 1000
	if p := strings.Replace(r.Form.Get(position.InputName), ",", "", -1); p != "" {
		parts := strings.FieldsFunc(p, func(c rune) bool { return c == ':' || c == '-' })
		if len(parts) == 3 {
			s, _ := strconv.Atoi(parts[1])
			e, _ := strconv.Atoi(parts[2])
			start, end = s-1, e
		}
	}
	state := &model.State{
		CGIVersion:    "v1",
		DB:            "hg19",
		ChromName:     "chr1",
		WinStart:      start,
		WinEnd:        end,
		ChromEnd:      100000,
		InPlaceUpdate: true,
		TrackDb: map[string]*model.TrackRecord{
			"ruler":     {Visibility: model.Dense},
			"knownGene": {Visibility: model.Pack},
		},
		Highlight: r.Form.Get(highlight.HighlightVar),
		LastDbPos: "position=" + url.QueryEscape(fmt.Sprintf("chr1:%d-%d", start+1, end)),
	}
	embedded, err := model.Embed(state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, `%s<table>
<tr id="tr_knownGene" abbr="2" class="imgOrd"><td>genes</td></tr>
<tr id="tr_ruler" abbr="1" class="imgOrd"><td>ruler</td></tr>
</table>`, embedded)
}

func (f *fakeRenderer) lastRequest() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newSession(t *testing.T, cfg Config) (*Session, *fakeRenderer, *httptest.Server) {
	renderer := &fakeRenderer{}
	server := httptest.NewServer(renderer)
	cfg.URL = server.URL + "/cgi-bin/hgTracks"
	cfg.SessionID = "1_abc"
	cfg.InPlaceUpdate = true
	cfg.BackSupport = true
	s, err := Open(context.Background(), cfg, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Open failed: %v", err)
	}
	return s, renderer, server
}

func TestOpen(t *testing.T) {
	s, renderer, server := newSession(t, Config{DB: "hg19"})
	defer server.Close()

	assert.Equal(t, "chr1:1-1000", s.Position.Get())
	assert.Equal(t, "1,000", s.Page.SizeDisplay)
	rows := s.Page.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "ruler", rows[0].TrackID)
	assert.Equal(t, "knownGene", rows[1].TrackID)
	assert.Equal(t, 1, s.History.Len())
	assert.Equal(t, highlight.DefaultColor, s.Highlights.Color())

	req := renderer.lastRequest()
	assert.Equal(t, "1_abc", req.Get("hgsid"))
	assert.Equal(t, "hg19", req.Get("db"))
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(context.Background(), Config{}, nil); err == nil {
		t.Errorf("Open succeeded without an endpoint")
	}

	renderer := &fakeRenderer{noState: true}
	server := httptest.NewServer(renderer)
	defer server.Close()
	if _, err := Open(context.Background(), Config{URL: server.URL}, nil); err == nil {
		t.Errorf("Open succeeded without an embedded state")
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	if _, err := Open(context.Background(), Config{URL: failing.URL}, nil); err == nil {
		t.Errorf("Open succeeded against a failing endpoint")
	}
}

func TestZoomTo(t *testing.T) {
	s, renderer, server := newSession(t, Config{})
	defer server.Close()

	got, err := s.ZoomTo(100)
	require.NoError(t, err)
	assert.Equal(t, "chr1:450-549", got.String())
	s.Flush()

	assert.Equal(t, "chr1:450-549", renderer.lastRequest().Get(position.InputName))
	assert.Equal(t, "chr1:450-549", s.Position.Get())
	assert.Equal(t, 449, s.View.State().WinStart)
	assert.Equal(t, 2, s.History.Len())

	_, err = s.ZoomTo(0)
	assert.Error(t, err)
}

func TestGo(t *testing.T) {
	s, renderer, server := newSession(t, Config{})
	defer server.Close()

	require.NoError(t, s.Go("chr1:2,001-3,000"))
	s.Flush()
	assert.Equal(t, "chr1:2001-3000", s.Position.Get())
	assert.Equal(t, "chr1:2,001-3,000", renderer.lastRequest().Get(position.InputName))
	assert.Empty(t, s.Page.Loads)

	require.NoError(t, s.Go("BRCA1"))
	require.Len(t, s.Page.Loads, 1)
	assert.Contains(t, s.Page.Loads[0], "position=BRCA1")
}

func TestHighlightCurrentPosition(t *testing.T) {
	s, renderer, server := newSession(t, Config{})
	defer server.Close()

	require.NoError(t, s.HighlightCurrentPosition(NewHighlight))
	require.NoError(t, s.HighlightCurrentPosition(AddHighlight))
	require.Len(t, s.Highlights.List(), 2)
	require.NoError(t, s.HighlightCurrentPosition(NewHighlight))
	require.Len(t, s.Highlights.List(), 1)
	assert.Equal(t, 1, s.Highlights.List()[0].Start)
	assert.Equal(t, 1000, s.Highlights.List()[0].End)

	// Without a cart endpoint the highlight travels with the next request.
	s.Refresh.RequestPartialUpdate("", nil, nil)
	s.Flush()
	assert.Equal(t, "hg19.chr1:1-1000"+highlight.DefaultColor, renderer.lastRequest().Get(highlight.HighlightVar))
	assert.Len(t, s.Highlights.List(), 1)

	require.NoError(t, s.HighlightCurrentPosition(ClearHighlights))
	assert.Empty(t, s.Highlights.List())
	assert.Error(t, s.HighlightCurrentPosition(HighlightAction(42)))
}

func TestCartEndpoint(t *testing.T) {
	renderer := &fakeRenderer{}
	server := httptest.NewServer(renderer)
	defer server.Close()

	s, err := Open(context.Background(), Config{
		URL:           server.URL + "/cgi-bin/hgTracks",
		CartURL:       server.URL + "/cart",
		SessionID:     "1_abc",
		InPlaceUpdate: true,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.HighlightCurrentPosition(NewHighlight))
	s.Flush()

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	require.Len(t, renderer.carts, 1)
	assert.Equal(t, "hg19.chr1:1-1000"+highlight.DefaultColor, renderer.carts[0].Get(highlight.HighlightVar))
	assert.Equal(t, "1_abc", renderer.carts[0].Get("hgsid"))
}

func TestSetChromosome(t *testing.T) {
	s, _, server := newSession(t, Config{IdeogramHeight: 20})
	defer server.Close()
	s.View.State().ChromEnd = 0

	s.SetChromosome(drag.Chromosome{Name: "chr1", Size: 5000, Left: 0, Width: 100})
	assert.Equal(t, 5000, s.View.State().ChromEnd)
}

type recordingTransport struct {
	mu     sync.Mutex
	bodies []string
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.bodies = append(r.bodies, string(body))
	r.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       ioutil.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

func TestSendUsage(t *testing.T) {
	transport := &recordingTransport{}
	client := analytics.NewClient("UA-TEST", "client", &http.Client{Transport: transport})
	s, _, server := newSession(t, Config{Analytics: client})
	defer server.Close()

	s.TrackDragOutcome(drag.Canceled{})
	require.NoError(t, s.HighlightCurrentPosition(ClearHighlights))
	s.SendUsage()
	s.Flush()

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.bodies, 1)
	lines := strings.Split(strings.TrimSpace(transport.bodies[0]), "\n")
	require.Len(t, lines, 2)
	first, err := url.ParseQuery(lines[0])
	require.NoError(t, err)
	assert.Equal(t, analytics.Drag, first.Get("ec"))
	assert.Equal(t, "drag.Canceled", first.Get("ea"))
}
