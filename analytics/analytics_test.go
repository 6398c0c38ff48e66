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

package analytics

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClient_Send_Batches(t *testing.T) {
	var requests int
	client, server := fakeBackend(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	var hits []Hit
	for i := 0; i < client.batchSize*4+1; i++ {
		hits = append(hits, Event(Drag, "Zoom", "", nil))
	}
	if err := client.Send(context.Background(), hits); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got, want := requests, 5; got != want {
		t.Errorf("Wrong number of requests: got %d, want %d", got, want)
	}
}

func TestClient_Send_VerifyPayloads(t *testing.T) {
	var payloads []string
	client, server := fakeBackend(func(w http.ResponseWriter, req *http.Request) {
		scanner := bufio.NewScanner(req.Body)
		for scanner.Scan() {
			payloads = append(payloads, scanner.Text())
		}
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	var hits []Hit
	for i := int64(0); i < 10; i++ {
		hits = append(hits, Event(Pan, "Scroll", fmt.Sprintf("%d", i), &i))
	}
	if err := client.Send(context.Background(), hits); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got, want := len(payloads), len(hits); got != want {
		t.Fatalf("Wrong number of payloads: got %d, want %d", got, want)
	}
	for i, payload := range payloads {
		got, err := url.ParseQuery(payload)
		if err != nil {
			t.Errorf("Failed to parse payload: %q: %v", payload, err)
		}

		want := url.Values{
			"v":   []string{"1"},
			"cid": []string{client.clientID},
			"tid": []string{client.propertyID},
		}
		for key, value := range hits[i] {
			want.Add(key, value)
		}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Wrong payload for hit %d: got %v, want %v", i, got, want)
		}
	}
}

func TestClient_Send_Status(t *testing.T) {
	client, server := fakeBackend(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	if err := client.Send(context.Background(), []Hit{Event(Cart, "Update", "", nil)}); err == nil {
		t.Errorf("Send succeeded against a failing backend")
	}
	if err := client.Send(context.Background(), nil); err != nil {
		t.Errorf("Sending no hits failed: %v", err)
	}
}

func TestEvent_OptionalParameters(t *testing.T) {
	hit := Event(Navigation, "Go", "", nil)
	if got, want := hit["t"], "event"; got != want {
		t.Errorf("Wrong hit type: got %q, want %q", got, want)
	}
	if _, ok := hit["el"]; ok {
		t.Error("Label parameter was added for empty label")
	}
	if _, ok := hit["ev"]; ok {
		t.Error("Value parameter was added for nil value")
	}
}

func TestEvent_Values(t *testing.T) {
	testcases := []struct {
		name  string
		value int64
		want  string
	}{
		{"zero", 0, "0"},
		{"maximum", math.MaxInt64, strconv.Itoa(math.MaxInt64)},
		{"minimum", math.MinInt64, strconv.Itoa(math.MinInt64)},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Event(Render, "Rows", "", &tc.value)["ev"]; got != tc.want {
				t.Fatalf("Wrong value: got %q, want %q", got, tc.want)
			}
		})
	}
	if got, want := Count(Render, "Rows", 12)["ev"], "12"; got != want {
		t.Errorf("Wrong count: got %q, want %q", got, want)
	}
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Track(Event(Highlight, "Add", "", nil))
	b.Track(Event(Highlight, "Clear", "", nil))
	if got, want := b.Len(), 2; got != want {
		t.Fatalf("Wrong length: got %d, want %d", got, want)
	}
	if got := b.Drain(); len(got) != 2 || got[1]["ea"] != "Clear" {
		t.Errorf("Wrong drained hits: got %v", got)
	}
	if got := b.Len(); got != 0 {
		t.Errorf("Buffer not empty after drain: got %d hits", got)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	want := []Hit{
		Event(Render, "Request", "a", nil),
		Event(Render, "Request", "b", nil),
	}

	var got []Hit
	router := gin.New()
	router.Use(Middleware(func(hits []Hit) { got = hits }))
	router.GET("/test", func(c *gin.Context) {
		track := TrackerFromContext(c.Request.Context())
		for i := range want {
			track(want[i])
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Wrong hits: got %v, want %v", got, want)
	}
}

func TestTrackerFromContext_WithEmptyContextIsNotNil(t *testing.T) {
	if track := TrackerFromContext(context.Background()); track == nil {
		t.Error("TrackerFromContext returned nil")
	}
}

func fakeBackend(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("UA-TEST123", "0001-0002-0003-0004", server.Client())
	client.endpoint = server.URL
	return client, server
}
