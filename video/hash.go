package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"github.com/corona10/goimagehash"
	"golang.org/x/image/draw"
)

// FrameHash calculates the perceptual hash of an encoded frame
func FrameHash(frame []byte) (*goimagehash.ImageHash, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate perceptual hash: %w", err)
	}

	return hash, nil
}

// DedupeFrames drops frames whose perceptual hash is within threshold of the
// last kept frame. It returns the kept frames and their original indexes.
func DedupeFrames(frames [][]byte, threshold int) ([][]byte, []int, error) {
	var kept [][]byte
	var indexes []int
	var last *goimagehash.ImageHash

	for i, frame := range frames {
		hash, err := FrameHash(frame)
		if err != nil {
			return nil, nil, fmt.Errorf("frame %d: %w", i, err)
		}

		if last != nil {
			distance, err := last.Distance(hash)
			if err != nil {
				return nil, nil, fmt.Errorf("frame %d: %w", i, err)
			}
			if distance <= threshold {
				continue
			}
		}

		kept = append(kept, frame)
		indexes = append(indexes, i)
		last = hash
	}

	return kept, indexes, nil
}

// ContactSheet lays frames out in a grid of tileWidth-wide cells and returns
// the sheet as PNG. Tiles keep each frame's aspect ratio.
func ContactSheet(frames [][]byte, columns, tileWidth int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames for contact sheet")
	}
	if columns < 1 || tileWidth < 1 {
		return nil, fmt.Errorf("invalid contact sheet layout %d columns of %dpx", columns, tileWidth)
	}

	images := make([]image.Image, len(frames))
	tileHeight := 0
	for i, frame := range frames {
		img, _, err := image.Decode(bytes.NewReader(frame))
		if err != nil {
			return nil, fmt.Errorf("frame %d: failed to decode image: %w", i, err)
		}
		images[i] = img

		b := img.Bounds()
		if h := b.Dy() * tileWidth / max(1, b.Dx()); h > tileHeight {
			tileHeight = h
		}
	}

	if columns > len(images) {
		columns = len(images)
	}
	rows := (len(images) + columns - 1) / columns
	sheet := image.NewRGBA(image.Rect(0, 0, columns*tileWidth, rows*tileHeight))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for i, img := range images {
		b := img.Bounds()
		h := b.Dy() * tileWidth / max(1, b.Dx())
		x := (i % columns) * tileWidth
		y := (i/columns)*tileHeight + (tileHeight-h)/2
		draw.CatmullRom.Scale(sheet, image.Rect(x, y, x+tileWidth, y+h), img, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sheet); err != nil {
		return nil, fmt.Errorf("failed to encode contact sheet: %w", err)
	}
	return buf.Bytes(), nil
}
