package video

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// noiseFrame encodes a reproducible noise image as JPEG.
func noiseFrame(t *testing.T, seed int64, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

func TestFrameHash(t *testing.T) {
	frame := noiseFrame(t, 1, 64, 32)

	a, err := FrameHash(frame)
	if err != nil {
		t.Fatalf("FrameHash() error = %v", err)
	}
	b, err := FrameHash(frame)
	if err != nil {
		t.Fatalf("FrameHash() error = %v", err)
	}

	distance, err := a.Distance(b)
	if err != nil {
		t.Fatalf("Distance() error = %v", err)
	}
	if distance != 0 {
		t.Errorf("Expected identical frames to have distance 0, got %d", distance)
	}
}

func TestFrameHash_InvalidImage(t *testing.T) {
	if _, err := FrameHash([]byte("not an image")); err == nil {
		t.Error("FrameHash() expected error for invalid image data, got nil")
	}
}

func TestDedupeFrames(t *testing.T) {
	first := noiseFrame(t, 1, 64, 32)
	second := noiseFrame(t, 2, 64, 32)
	frames := [][]byte{first, first, second, second, first}

	kept, indexes, err := DedupeFrames(frames, 10)
	if err != nil {
		t.Fatalf("DedupeFrames() error = %v", err)
	}

	expected := []int{0, 2, 4}
	if len(indexes) != len(expected) {
		t.Fatalf("Expected indexes %v, got %v", expected, indexes)
	}
	for i := range expected {
		if indexes[i] != expected[i] {
			t.Errorf("Expected indexes %v, got %v", expected, indexes)
			break
		}
	}
	if len(kept) != len(indexes) {
		t.Errorf("Expected %d kept frames, got %d", len(indexes), len(kept))
	}
}

func TestDedupeFrames_NegativeThresholdKeepsAll(t *testing.T) {
	frame := noiseFrame(t, 3, 64, 32)
	kept, _, err := DedupeFrames([][]byte{frame, frame, frame}, -1)
	if err != nil {
		t.Fatalf("DedupeFrames() error = %v", err)
	}
	if len(kept) != 3 {
		t.Errorf("Expected all 3 frames kept, got %d", len(kept))
	}
}

func TestContactSheet(t *testing.T) {
	frames := [][]byte{
		noiseFrame(t, 1, 64, 32),
		noiseFrame(t, 2, 64, 32),
		noiseFrame(t, 3, 64, 32),
	}

	data, err := ContactSheet(frames, 2, 32)
	if err != nil {
		t.Fatalf("ContactSheet() error = %v", err)
	}

	sheet, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode contact sheet: %v", err)
	}

	// 2 columns of 32x16 tiles, 2 rows
	if got := sheet.Bounds(); got.Dx() != 64 || got.Dy() != 32 {
		t.Errorf("Expected 64x32 sheet, got %dx%d", got.Dx(), got.Dy())
	}
}

func TestContactSheet_Errors(t *testing.T) {
	tests := []struct {
		name      string
		frames    [][]byte
		columns   int
		tileWidth int
	}{
		{"No frames", nil, 2, 32},
		{"Zero columns", [][]byte{noiseFrame(t, 1, 8, 8)}, 0, 32},
		{"Undecodable frame", [][]byte{[]byte("junk")}, 1, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ContactSheet(tt.frames, tt.columns, tt.tileWidth); err == nil {
				t.Errorf("ContactSheet() expected error, got nil")
			}
		})
	}
}
