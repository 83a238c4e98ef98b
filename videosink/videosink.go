// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package videosink provides a display driver implementing an HTTP request
// handler, standing in for the e-paper panel on a host without one.
//
// Clients get the current image and a new one on every Draw, as a
// "multipart/x-mixed-replace" stream of PNG images (MJPEG style, understood
// by browsers). A request for a path ending in ".png" gets a single snapshot.
package videosink

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
)

// Sink is an in-memory display served over HTTP.
type Sink struct {
	log logrus.FieldLogger
	enc png.Encoder

	mu      sync.Mutex
	img     *image.RGBA
	frame   []byte
	changed chan struct{}
	halted  bool
}

// New returns a white w by h Sink.
func New(w, h int, log logrus.FieldLogger) *Sink {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{
		log:     log,
		enc:     png.Encoder{CompressionLevel: png.BestSpeed},
		img:     img,
		changed: make(chan struct{}),
	}
}

func (s *Sink) String() string {
	return "VideoSink"
}

// Halt implements conn.Resource. It ends every running stream; the Sink can
// still be drawn on and snapshots still work.
func (s *Sink) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.halted {
		s.halted = true
		close(s.changed)
	}
	return nil
}

// ColorModel implements display.Drawer.
func (s *Sink) ColorModel() color.Model {
	return s.img.ColorModel()
}

// Bounds implements display.Drawer.
func (s *Sink) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Draw implements display.Drawer.
func (s *Sink) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, r, src, sp, draw.Src)
	s.frame = nil
	if !s.halted {
		close(s.changed)
		s.changed = make(chan struct{})
	}
	return nil
}

// Frame returns the current image encoded as PNG, and a channel closed on
// the next Draw or on Halt. The returned bytes must not be modified.
func (s *Sink) Frame() ([]byte, <-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		var buf bytes.Buffer
		if err := s.enc.Encode(&buf, s.img); err != nil {
			return nil, nil, fmt.Errorf("videosink: %w", err)
		}
		s.frame = buf.Bytes()
	}
	return s.frame, s.changed, nil
}

func (s *Sink) isHalted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// ServeHTTP implements http.Handler.
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".png") {
		s.serveSnapshot(w)
		return
	}
	s.serveStream(w, r)
}

func (s *Sink) serveSnapshot(w http.ResponseWriter) {
	frame, _, err := s.Frame()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	if _, err := w.Write(frame); err != nil {
		s.log.WithError(err).Debug("snapshot write failed")
	}
}

func (s *Sink) serveStream(w http.ResponseWriter, r *http.Request) {
	boundary := newBoundary()
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	flusher, _ := w.(http.Flusher)
	if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
		return
	}
	for {
		frame, changed, err := s.Frame()
		if err != nil {
			s.log.WithError(err).Warn("encoding frame failed")
			return
		}
		if err := writePart(w, boundary, frame); err != nil {
			// The client went away.
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-changed:
			if s.isHalted() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// writePart writes one image followed by the boundary so clients can show it
// without waiting for the next one.
func writePart(w io.Writer, boundary string, body []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Type: image/png\r\nContent-Length: %d\r\n\r\n", len(body))
	buf.Write(body)
	fmt.Fprintf(&buf, "\r\n--%s\r\n", boundary)
	_, err := buf.WriteTo(w)
	return err
}

// newBoundary returns a random MIME boundary (RFC 2046 section 5.1.1).
func newBoundary() string {
	var b [30]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

var _ display.Drawer = &Sink{}
var _ http.Handler = &Sink{}
