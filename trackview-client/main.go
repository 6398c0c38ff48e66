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

// This binary drives a track browser session against a rendering server from
// the command line.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/googlegenomics/trackview/analytics"
	"github.com/googlegenomics/trackview/api"
	"github.com/googlegenomics/trackview/browser"
	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/position"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	scope = "https://www.googleapis.com/auth/devstorage.read_write"
)

var errUsage = errors.New("wrong number of arguments")

func main() {
	app := cli.NewApp()
	app.Name = "trackview-client"
	app.Usage = "navigate a track browser session"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "server",
			Value: "http://localhost:8080",
			Usage: "base URL of the rendering server",
		},
		cli.StringFlag{
			Name:  "session",
			Usage: "session id; a new session is started when empty",
		},
		cli.StringFlag{
			Name:  "db",
			Usage: "assembly to open",
		},
		cli.BoolFlag{
			Name:  "auth",
			Usage: "send Google application default credentials",
		},
		cli.BoolFlag{
			Name:  "track_usage",
			Usage: "anonymous usage tracking",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "log debug messages",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "open",
			Usage:     "open the session and print what it shows",
			ArgsUsage: "[position]",
			Action: func(c *cli.Context) error {
				return run(c, func(*browser.Session) error { return nil })
			},
		},
		{
			Name:      "go",
			Usage:     "navigate to a position",
			ArgsUsage: "<position>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errUsage
				}
				return run(c, func(s *browser.Session) error {
					return s.Go(c.Args().First())
				})
			},
		},
		{
			Name:      "zoom",
			Usage:     "show this many bases around the center of the position",
			ArgsUsage: "<bases>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errUsage
				}
				size, err := strconv.Atoi(genomics.StripCommas(c.Args().First()))
				if err != nil {
					return fmt.Errorf("parsing size: %v", err)
				}
				return run(c, func(s *browser.Session) error {
					_, err := s.ZoomTo(size)
					return err
				})
			},
		},
		{
			Name:      "highlight",
			Usage:     "highlight the position",
			ArgsUsage: "new|add|clear",
			Action: func(c *cli.Context) error {
				actions := map[string]browser.HighlightAction{
					"new":   browser.NewHighlight,
					"add":   browser.AddHighlight,
					"clear": browser.ClearHighlights,
				}
				action, ok := actions[c.Args().First()]
				if c.NArg() != 1 || !ok {
					return errUsage
				}
				return run(c, func(s *browser.Session) error {
					return s.HighlightCurrentPosition(action)
				})
			},
		},
		{
			Name:      "vis",
			Usage:     "change the visibility of a track",
			ArgsUsage: "<track> hide|dense|full|pack|squish",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errUsage
				}
				vis, err := model.ParseVisibility(c.Args().Get(1))
				if err != nil {
					return err
				}
				return run(c, func(s *browser.Session) error {
					s.Refresh.ChangeVisibility(c.Args().First(), vis)
					return nil
				})
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatalf("Command failed: %v", err)
	}
}

// run opens the session, applies action and prints the result.
func run(c *cli.Context, action func(*browser.Session) error) error {
	if c.GlobalBool("v") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	ctx := context.Background()

	cfg := browser.Config{
		URL:           strings.TrimSuffix(c.GlobalString("server"), "/") + api.RenderPath,
		CartURL:       strings.TrimSuffix(c.GlobalString("server"), "/") + api.CartPath,
		DB:            c.GlobalString("db"),
		SessionID:     c.GlobalString("session"),
		InPlaceUpdate: true,
		BackSupport:   true,
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	if c.GlobalBool("auth") {
		client, err := authenticatedClient(ctx)
		if err != nil {
			return err
		}
		cfg.HTTP = client
	}
	if c.GlobalBool("track_usage") {
		cfg.Analytics = analytics.NewClient("UA-103022118-1", uuid.New().String(), nil)
	}

	var params url.Values
	if c.Command.Name == "open" && c.NArg() > 0 {
		params = url.Values{position.InputName: {c.Args().First()}}
	}
	s, err := browser.Open(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("opening session: %v", err)
	}
	if err := action(s); err != nil {
		return err
	}
	s.SendUsage()
	s.Flush()

	printSession(cfg.SessionID, s)
	return nil
}

func printSession(id string, s *browser.Session) {
	fmt.Printf("session\t%s\n", id)
	fmt.Printf("position\t%s\n", s.Position.Get())
	fmt.Printf("size\t%s\n", s.Page.SizeDisplay)
	state := s.View.State()
	for _, row := range s.Page.Rows() {
		vis := "?"
		if rec := state.TrackDb[row.TrackID]; rec != nil {
			vis = rec.EffectiveVisibility().String()
		}
		fmt.Printf("track\t%s\t%s\n", row.TrackID, vis)
	}
	for _, h := range s.Highlights.List() {
		fmt.Printf("highlight\t%s\n", h)
	}
	for _, notice := range s.Page.Notices {
		fmt.Printf("notice\t%s\n", notice)
	}
	for _, target := range s.Page.Loads {
		fmt.Printf("load\t%s\n", target)
	}
}

func authenticatedClient(ctx context.Context) (*http.Client, error) {
	// For compatibility with other tools, read the standard cURL certificate
	// authority override from the environment.
	if bundle := os.Getenv("CURL_CA_BUNDLE"); bundle != "" {
		pem, err := ioutil.ReadFile(bundle)
		if err != nil {
			return nil, fmt.Errorf("reading CA override file %q: %v", bundle, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("initializing system certificate pool: %v", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("adding certificates from bundle %q", bundle)
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: pool,
				}},
		})
		logrus.Infof("Using CA override bundle from %q", bundle)
	}

	client, err := google.DefaultClient(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("creating client: %v", err)
	}
	return client, nil
}
