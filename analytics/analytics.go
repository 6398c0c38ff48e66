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

// Package analytics records anonymous usage of the track browser and sends
// it to Google Analytics.
package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultEndpoint  = "https://www.google-analytics.com/"
	defaultBatchSize = 20 // The maximum number supported by batch endpoint.
)

// Event categories.
const (
	Navigation = "Navigation"
	Drag       = "Drag"
	Pan        = "Pan"
	Highlight  = "Highlight"
	Render     = "Render"
	Cart       = "Cart"
)

// Hit is a single analytics event.
type Hit map[string]string

// Event returns an event hit.  The label may be empty and the value may be
// nil but category and action are required.
func Event(category, action, label string, value *int64) Hit {
	hit := Hit{
		"t":  "event",
		"ec": category,
		"ea": action,
	}
	if label != "" {
		hit["el"] = label
	}
	if value != nil {
		hit["ev"] = strconv.FormatInt(*value, 10)
	}
	return hit
}

// Count returns an event hit carrying n as its value.
func Count(category, action string, n int) Hit {
	v := int64(n)
	return Event(category, action, "", &v)
}

// Client uploads hits.  Use NewClient to create one.
type Client struct {
	propertyID string
	clientID   string
	endpoint   string
	batchSize  int
	http       *http.Client
}

// NewClient returns a client reporting hits for propertyID on behalf of
// clientID.  A nil httpClient means http.DefaultClient.
func NewClient(propertyID, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{propertyID, clientID, defaultEndpoint, defaultBatchSize, httpClient}
}

// Send uploads hits in batches.
func (c *Client) Send(ctx context.Context, hits []Hit) error {
	for i := 0; i < len(hits); i += c.batchSize {
		end := i + c.batchSize
		if end > len(hits) {
			end = len(hits)
		}
		if err := c.upload(ctx, hits[i:end]); err != nil {
			return fmt.Errorf("uploading hits %d-%d: %v", i, end, err)
		}
	}
	return nil
}

func (c *Client) upload(ctx context.Context, hits []Hit) error {
	var body bytes.Buffer
	for _, hit := range hits {
		payload := url.Values{
			"v":   []string{"1"},
			"tid": []string{c.propertyID},
			"cid": []string{c.clientID},
		}
		for key, value := range hit {
			payload.Add(key, value)
		}
		body.WriteString(payload.Encode())
		body.WriteByte('\n')
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint+"/batch", &body)
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending request: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(ioutil.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status: %v", resp.Status)
	}
	return nil
}

// Buffer collects the hits of one browser session until they are drained.
// It is not safe for concurrent use.
type Buffer struct {
	hits []Hit
}

// Track appends hit.
func (b *Buffer) Track(hit Hit) {
	b.hits = append(b.hits, hit)
}

// Len returns the number of buffered hits.
func (b *Buffer) Len() int {
	return len(b.hits)
}

// Drain returns the buffered hits and empties the buffer.
func (b *Buffer) Drain() []Hit {
	hits := b.hits
	b.hits = nil
	return hits
}

type contextKey int

var (
	hitsKey = contextKey(1)
)

// Middleware returns a gin handler that prepares each request's context for
// TrackerFromContext.  Once the rest of the chain completes, track receives
// the hits accumulated during the request.
func Middleware(track func([]Hit)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var hits []Hit
		ctx := context.WithValue(c.Request.Context(), hitsKey, &hits)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if len(hits) > 0 {
			track(hits)
		}
	}
}

// TrackerFromContext returns a function buffering hits for the track
// function given to Middleware.  Outside such a request the hits are
// dropped.
func TrackerFromContext(ctx context.Context) func(Hit) {
	if hits, ok := ctx.Value(hitsKey).(*[]Hit); ok {
		return func(hit Hit) { *hits = append(*hits, hit) }
	}
	return func(Hit) {}
}
