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

package cart

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
)

// SessionParam is the request parameter carrying the session id.
const SessionParam = "hgsid"

// Client sends cart updates to the cart endpoint.
type Client struct {
	HTTP      *http.Client
	URL       string
	SessionID string
}

// Send posts vars to the cart endpoint.
func (c *Client) Send(ctx context.Context, vars url.Values) error {
	form := make(url.Values, len(vars)+1)
	for name, values := range vars {
		form[name] = values
	}
	form.Set(SessionParam, c.SessionID)

	req, err := http.NewRequest(http.MethodPost, c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending cart update: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(ioutil.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cart update: unexpected status %s", resp.Status)
	}
	return nil
}
