package record

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"log"
	"os"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/env"
)

// ErrClosed is returned when capturing into a closed recorder.
var ErrClosed = errors.New("recorder closed")

// #region recorder
// Recorder captures evaluation frames into one video artifact.
type Recorder interface {
	CaptureFrame() error
	Close() error
}

// #endregion recorder

// #region gif
// GIFRecorder renders frames from the environment and writes an animated GIF
// when closed.
type GIFRecorder struct {
	path     string
	renderer env.Renderer
	delay    int // hundredths of a second per frame
	anim     gif.GIF
	closed   bool
}

// NewGIFRecorder records frames from r into path.
func NewGIFRecorder(r env.Renderer, path string, delay int) *GIFRecorder {
	if delay <= 0 {
		delay = 5
	}
	return &GIFRecorder{path: path, renderer: r, delay: delay}
}

// CaptureFrame renders the current environment state and appends it.
func (g *GIFRecorder) CaptureFrame() error {
	if g.closed {
		return ErrClosed
	}
	img, err := g.renderer.Render()
	if err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	bounds := img.Bounds()
	frame := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(frame, bounds, img, bounds.Min, draw.Src)
	g.anim.Image = append(g.anim.Image, frame)
	g.anim.Delay = append(g.anim.Delay, g.delay)
	return nil
}

// Frames is the number of captured frames.
func (g *GIFRecorder) Frames() int { return len(g.anim.Image) }

// Closed reports whether Close has run.
func (g *GIFRecorder) Closed() bool { return g.closed }

// Close writes the animation. Only the first call does any work.
func (g *GIFRecorder) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if len(g.anim.Image) == 0 {
		log.Printf("[EVAL] no frames captured, skipping %s", g.path)
		return nil
	}
	f, err := os.Create(g.path)
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	if err := gif.EncodeAll(f, &g.anim); err != nil {
		f.Close()
		return fmt.Errorf("encode video: %w", err)
	}
	log.Printf("[EVAL] wrote %d frames to %s", len(g.anim.Image), g.path)
	return f.Close()
}

// #endregion gif

// #region discard
// Discard counts captures and drops the frames. Used when the environment
// cannot render.
type Discard struct {
	Captures int
	Closes   int
}

func (d *Discard) CaptureFrame() error {
	d.Captures++
	return nil
}

func (d *Discard) Close() error {
	d.Closes++
	return nil
}

// #endregion discard
