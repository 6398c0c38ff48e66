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

// Package pan scrolls a track image rendered wider than its portal.
package pan

import (
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/googlegenomics/trackview/genomics"
	"github.com/googlegenomics/trackview/highlight"
	"github.com/googlegenomics/trackview/internal/eventloop"
	"github.com/googlegenomics/trackview/model"
	"github.com/googlegenomics/trackview/page"
	"github.com/googlegenomics/trackview/position"
	"github.com/googlegenomics/trackview/refresh"
	"github.com/sirupsen/logrus"
)

// DefaultUnblockDelay is how long image map clicks stay blocked after a
// pan.
const DefaultUnblockDelay = 50 * time.Millisecond

// Navigator shows a new view.
type Navigator interface {
	NavigateInPlace(params url.Values) *refresh.Request
}

// Result is how a pan ended.
type Result int

const (
	// Unmoved means the image was not dragged.
	Unmoved Result = iota
	// Scrolled means the new offset lies within the rendered image and was
	// kept without a request.
	Scrolled
	// Fetched means the pan went past the rendered image and the new range
	// was requested.
	Fetched
	// Abandoned means the pan ended off the image and was undone.
	Abandoned
)

func (r Result) String() string {
	switch r {
	case Unmoved:
		return "unmoved"
	case Scrolled:
		return "scrolled"
	case Fetched:
		return "fetched"
	case Abandoned:
		return "abandoned"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Controller holds the horizontal offset of the track image.  Offsets are
// negative as the image scrolls left under the portal.
type Controller struct {
	loop  *eventloop.Loop
	page  *page.Page
	view  *model.View
	pos   *position.Store
	hl    *highlight.Model
	nav   Navigator
	delay time.Duration
	log   *logrus.Entry

	// origin is the offset the state's portal was rendered at.
	origin int
	// prevX is the committed offset and newX the offset during a drag.
	prevX, newX           int
	leftLimit, rightLimit int

	pressed     bool
	downX       int
	atEdge      bool
	beyondImage bool
	saved       *string
}

// New returns a controller for the image described by v's state.
func New(loop *eventloop.Loop, p *page.Page, v *model.View, pos *position.Store, hl *highlight.Model, nav Navigator, delay time.Duration) *Controller {
	if delay == 0 {
		delay = DefaultUnblockDelay
	}
	c := &Controller{
		loop:  loop,
		page:  p,
		view:  v,
		pos:   pos,
		hl:    hl,
		nav:   nav,
		delay: delay,
		log:   logrus.WithField("component", "pan"),
	}
	c.Reset(v.State())
	return c
}

// Reset takes the offsets and limits of a newly rendered image.
func (c *Controller) Reset(s *model.State) {
	c.pressed = false
	c.atEdge = false
	c.beyondImage = false
	c.saved = nil
	if s == nil {
		c.origin, c.prevX, c.newX, c.leftLimit, c.rightLimit = 0, 0, 0, 0, 0
		return
	}
	c.leftLimit = -s.ImgBoxLeftLabel
	c.rightLimit = s.ImgBoxPortalWidth - s.ImgBoxWidth + c.leftLimit
	c.origin = -(s.ImgBoxPortalOffsetX + s.ImgBoxLeftLabel)
	c.prevX = c.origin
	c.newX = c.origin
}

// Offset returns the current image offset.
func (c *Controller) Offset() int {
	if c.pressed {
		return c.newX
	}
	return c.prevX
}

// Down starts a pan at clientX.  Presses with a modifier key belong to
// other gestures and are ignored.
func (c *Controller) Down(clientX int, modified bool) bool {
	if modified || c.pressed {
		return false
	}
	c.pressed = true
	c.downX = clientX
	c.newX = c.prevX
	c.atEdge = !c.beyondImage && (c.prevX >= c.leftLimit || c.prevX <= c.rightLimit)
	return true
}

// Move drags the image to clientX and shows the position now in the
// portal.  A drag stops at the rendered edge unless it began there, in
// which case it continues past the image.
func (c *Controller) Move(clientX int) {
	if !c.pressed {
		return
	}
	dx := clientX - c.downX
	if dx == 0 {
		return
	}
	if c.page.ClicksAllowed() {
		saved := c.pos.Get()
		c.saved = &saved
		c.page.BlockClicks()
	}

	newX := c.prevX + dx
	switch {
	case newX >= c.leftLimit:
		if c.atEdge {
			c.beyondImage = true
		} else {
			newX = c.leftLimit
		}
	case newX < c.rightLimit:
		if c.atEdge {
			c.beyondImage = true
		} else {
			newX = c.rightLimit
		}
	default:
		c.beyondImage = false
	}

	newX, outside := c.updatePosition(newX)
	c.newX = newX
	if !outside {
		c.hl.Translate(newX - c.origin)
	}
	c.scrollRows(newX)
}

// Up ends the pan at pageY.
func (c *Controller) Up(pageY int) Result {
	if !c.pressed {
		return Unmoved
	}
	c.pressed = false
	c.loop.After(c.delay, c.page.AllowClicks)

	img := c.page.Image
	if pageY < img.Top || pageY > img.Top+img.Height {
		c.atEdge = false
		c.beyondImage = false
		if c.saved != nil {
			c.pos.Set(*c.saved, 0)
			c.saved = nil
		}
		c.newX = c.prevX
		c.scrollRows(c.prevX)
		c.hl.Translate(c.prevX - c.origin)
		return Abandoned
	}
	c.saved = nil

	if c.beyondImage {
		p, err := genomics.ParsePosition(c.pos.Get())
		if err != nil {
			c.log.WithError(err).Warn("Cannot read position after panning")
			return Abandoned
		}
		c.nav.NavigateInPlace(url.Values{position.InputName: {p.String()}})
		return Fetched
	}

	if c.newX == c.prevX {
		return Unmoved
	}
	c.prevX = c.newX
	return Scrolled
}

func (c *Controller) scrollRows(x int) {
	for _, r := range c.page.Rows() {
		r.PanLeft = x
	}
}

// updatePosition shows the position in the portal at offset x, keeping it
// inside the chromosome.  When the position had to be clipped it returns
// the offset matching the clipped position and true.
func (c *Controller) updatePosition(x int) (int, bool) {
	s := c.view.State()
	if s == nil || s.ImgBoxBasesPerPixel <= 0 {
		return x, false
	}
	portalStart, portalEnd := s.PortalBounds()
	closedStart := portalStart + 1
	widthBases := portalEnd - closedStart
	scrolled := float64(x - c.origin)

	shift := int(math.Round(scrolled * s.ImgBoxBasesPerPixel))
	newStart := closedStart - shift
	if s.RevCmplDisp {
		newStart = closedStart + shift
	}

	clipped := false
	if newStart < s.ChromStart+1 {
		newStart = s.ChromStart + 1
		clipped = true
	}
	newEnd := newStart + widthBases
	if s.ChromEnd > 0 && newEnd > s.ChromEnd {
		newEnd = s.ChromEnd
		newStart = newEnd - widthBases
		clipped = true
	}
	if newStart > 0 {
		c.pos.Set(genomics.Position{Chrom: s.ChromName, Start: newStart, End: newEnd}.String(), 0)
	}
	if !clipped {
		return x, false
	}

	bases := float64(closedStart - newStart)
	if s.RevCmplDisp {
		bases = -bases
	}
	return c.origin + int(math.Round(bases/s.ImgBoxBasesPerPixel)), true
}
