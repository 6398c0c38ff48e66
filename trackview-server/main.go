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

// This binary provides a track browser rendering server that keeps sessions
// in memory or in GCS.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/googlegenomics/trackview/analytics"
	"github.com/googlegenomics/trackview/api"
	"github.com/googlegenomics/trackview/cart"
	"github.com/googlegenomics/trackview/chrominfo"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
)

var (
	port = flag.Int("port", 8080, "HTTP service port")

	secure    = flag.Bool("secure", false, "serve in HTTPS-only mode and use client bearer tokens for session storage")
	httpsCert = flag.String("https_cert", "", "HTTPS certificate file")
	httpsKey  = flag.String("https_key", "", "HTTPS key file")

	bucket        = flag.String("bucket", "", "if set, sessions are kept in this GCS bucket instead of in memory")
	sessionPrefix = flag.String("session_prefix", "sessions", "object name prefix of stored sessions")

	db              = flag.String("db", "hg19", "default assembly")
	defaultPosition = flag.String("position", "chr1:11102837-11267747", "position shown to new sessions")
	imageWidth      = flag.Int("image_width", 1000, "track image width in pixels, labels included")
	insideX         = flag.Int("inside_x", 0, "width of the side label column in pixels")
	portalScale     = flag.Int("portal_scale", 1, "render images this many times wider than the visible portal")
	chromInfoDSN    = flag.String("chrominfo_dsn", "", "if set, MySQL DSN pattern for chromInfo lookups, with %s naming the assembly; use 'ucsc' for the public UCSC server")

	profileMode = flag.String("profile", "", "write a 'cpu' or 'mem' profile to the working directory")
	verbose     = flag.Bool("v", false, "log debug messages")

	// Enable or disable anonymous usage tracking.
	//
	// If enabled, anonymous information about requests handled by the server is
	// logged to Google via Google Analytics.
	//
	// This information helps Google determine how well the software is
	// performing and where improvements should be made.  No user identifying
	// information is ever sent to Google.
	trackUsage = flag.Bool("track_usage", false, "anonymous usage tracking")
)

func main() {
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *secure && (*httpsCert == "" || *httpsKey == "") {
		logrus.Fatalf("You must specify both -https_cert and -https_key in secure mode.")
	}
	if *secure && *bucket == "" {
		logrus.Fatalf("You must specify -bucket in secure mode.")
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		logrus.Fatalf("Unknown -profile mode %q", *profileMode)
	}

	ctx := context.Background()
	newStore, err := storeFunc(ctx)
	if err != nil {
		logrus.Fatalf("Failed to set up session storage: %v", err)
	}

	opts := api.Options{
		DB:              *db,
		DefaultPosition: *defaultPosition,
		ImageWidth:      *imageWidth,
		InsideX:         *insideX,
		PortalScale:     *portalScale,
	}
	switch *chromInfoDSN {
	case "":
	case "ucsc":
		sizes := chrominfo.NewMySQL(chrominfo.UCSCPublicDSN)
		defer sizes.Close()
		opts.Sizes = sizes
	default:
		sizes := chrominfo.NewMySQL(*chromInfoDSN)
		defer sizes.Close()
		opts.Sizes = sizes
	}

	router := gin.Default()
	if *trackUsage {
		logrus.Info("Enabling anonymous usage tracking")

		client := analytics.NewClient("UA-103022118-1", uuid.New().String(), nil)
		router.Use(analytics.Middleware(func(hits []analytics.Hit) {
			if err := client.Send(ctx, hits); err != nil {
				logrus.WithError(err).Warnf("Failed to send %d hits to analytics", len(hits))
			}
		}))
	}
	api.NewServer(newStore, opts).Export(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
	}
	logrus.WithFields(logrus.Fields{"address": server.Addr, "secure": *secure}).Info("Serving")
	if *secure {
		if err := server.ListenAndServeTLS(*httpsCert, *httpsKey); err != nil {
			logrus.Fatalf("HTTPS server returned an error: %v", err)
		}
	} else {
		if err := server.ListenAndServe(); err != nil {
			logrus.Fatalf("HTTP server returned an error: %v", err)
		}
	}
}

func storeFunc(ctx context.Context) (api.NewStoreFunc, error) {
	switch {
	case *bucket == "":
		return api.SharedStore(cart.NewMemoryStore()), nil
	case *secure:
		return api.BearerTokenStore(*bucket, *sessionPrefix), nil
	}
	client, err := cart.NewDefaultClient(ctx)
	if err != nil {
		return nil, err
	}
	return api.SharedStore(cart.NewGCSStore(client, *bucket, *sessionPrefix)), nil
}
