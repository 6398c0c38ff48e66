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

// This binary converts between the coordinate systems of the track browser
// offline: pixel selections to bases, and real positions to and from the
// virtual chromosome.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/googlegenomics/trackview/genomics"
	"github.com/pborman/getopt"
	"github.com/sirupsen/logrus"
)

type config struct {
	geometry genomics.Geometry
	window   genomics.Position
	halfBase bool
	windows  []genomics.Window
}

// pixels prints the bases covered by the pixel selection [from, to].
func pixels(w io.Writer, cfg config, from, to int) {
	winStart, winEnd := cfg.window.HalfOpen()
	start, end := genomics.PixelsToBases(cfg.geometry, from, to, winStart, winEnd, cfg.halfBase)
	fmt.Fprintln(w, genomics.FromHalfOpen(cfg.window.Chrom, start, end))
}

// convert prints p in the other coordinate system of cfg.windows.
func convert(w io.Writer, cfg config, p genomics.Position) error {
	start, end := p.HalfOpen()
	if p.IsVirtual() {
		chrom, realStart, realEnd, ok := genomics.VirtualToReal(start, end, cfg.windows)
		if !ok {
			return fmt.Errorf("%s lies outside the windows", p)
		}
		fmt.Fprintln(w, genomics.FromHalfOpen(chrom, realStart, realEnd))
		return nil
	}
	virtStart, virtEnd, ok := genomics.RealToVirtual(p.Chrom, start, end, cfg.windows)
	if !ok {
		return fmt.Errorf("%s lies outside the windows", p)
	}
	fmt.Fprintln(w, genomics.FromHalfOpen(genomics.VirtualChrom, virtStart, virtEnd))
	return nil
}

func readWindows(filename string) ([]genomics.Window, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var windows []genomics.Window
	if err := json.NewDecoder(f).Decode(&windows); err != nil {
		return nil, fmt.Errorf("decoding %s: %v", filename, err)
	}
	if err := (genomics.Windows{Current: windows}).Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", filename, err)
	}
	return windows, nil
}

func main() {
	options := getopt.New()
	options.SetProgram(os.Args[0])

	optWindow := options.StringLong("window", 'w', "", "displayed position, e.g. chr1:1-1000 (pixel mode)")
	optImageWidth := options.IntLong("image-width", 0, 1000, "image width in pixels, labels included")
	optInsideX := options.IntLong("inside-x", 0, 0, "width of the side label column")
	optLeftMargin := options.IntLong("left-margin", 0, genomics.DefaultLeftMargin, "pixels subtracted before scaling")
	optReverse := options.BoolLong("reverse", 'r', "reverse-complement display")
	optHalfBase := options.BoolLong("half-base", 0, "include bases at least half covered, as drag selections do")
	optWindows := options.StringLong("windows", 0, "", "JSON file of virtual windows (conversion mode)")
	optHelp := options.BoolLong("help", 'h', "print help")

	options.SetParameters("<pixel-start> <pixel-end> | <position>")
	options.Parse(os.Args)

	if *optHelp {
		options.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	cfg := config{
		geometry: genomics.Geometry{
			ImageWidth:  *optImageWidth,
			InsideX:     *optInsideX,
			LeftMargin:  *optLeftMargin,
			RevCmplDisp: *optReverse,
		},
		halfBase: *optHalfBase,
	}

	args := options.Args()
	switch {
	case *optWindows != "" && len(args) == 1:
		windows, err := readWindows(*optWindows)
		if err != nil {
			logrus.Fatalf("Failed to read windows: %v", err)
		}
		cfg.windows = windows
		p, err := genomics.ParsePosition(args[0])
		if err != nil {
			logrus.Fatalf("Failed to parse position: %v", err)
		}
		if err := convert(os.Stdout, cfg, p); err != nil {
			logrus.Fatalf("Failed to convert position: %v", err)
		}

	case *optWindow != "" && len(args) == 2:
		window, err := genomics.ParsePosition(*optWindow)
		if err != nil {
			logrus.Fatalf("Failed to parse window: %v", err)
		}
		cfg.window = window
		from, err := strconv.Atoi(args[0])
		if err != nil {
			logrus.Fatalf("Failed to parse pixel start: %v", err)
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			logrus.Fatalf("Failed to parse pixel end: %v", err)
		}
		pixels(os.Stdout, cfg, from, to)

	default:
		options.PrintUsage(os.Stderr)
		os.Exit(1)
	}
}
