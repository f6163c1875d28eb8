package record

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
)

type solid struct {
	calls int
}

func (s *solid) Render() (image.Image, error) {
	s.calls++
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(40 * s.calls), A: 255})
		}
	}
	return img, nil
}

type broken struct{}

func (broken) Render() (image.Image, error) { return nil, errors.New("no display") }

func TestGIFRecorderWritesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.gif")
	r := NewGIFRecorder(&solid{}, path, 0)
	for i := 0; i < 3; i++ {
		if err := r.CaptureFrame(); err != nil {
			t.Fatalf("CaptureFrame: %v", err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open gif: %v", err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(anim.Image))
	}
}

func TestGIFRecorderCloseIsSafeTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.gif")
	r := NewGIFRecorder(&solid{}, path, 5)
	if err := r.CaptureFrame(); err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := r.CaptureFrame(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}

func TestGIFRecorderRenderError(t *testing.T) {
	r := NewGIFRecorder(broken{}, filepath.Join(t.TempDir(), "x.gif"), 5)
	if err := r.CaptureFrame(); err == nil {
		t.Fatal("expected render failure to surface")
	}
}

func TestEmptyRecorderWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.gif")
	if err := NewGIFRecorder(&solid{}, path, 5).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file for an empty recording, got %v", err)
	}
}
