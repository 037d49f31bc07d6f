// SPDX-License-Identifier: MIT

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Quality is the JPEG re-encode quality for watermarked output.
const Quality = 98

// Watermark is one overlay applied to the downloaded image. PosX and PosY
// are divisors of the image dimensions: the anchor point is
// (width/PosX, height/PosY).
type Watermark struct {
	Type    string // "image" or "text"
	Path    string // image watermark: file relative to the asset dir
	Content string // text watermark: the rendered string
	PosX    float64
	PosY    float64
	Opacity int // 0..100
}

// ApplyWatermarks decodes the image at path, draws each watermark and
// atomically replaces the file with the re-encoded result. Unknown
// watermark types are skipped with a log entry, not an error.
func ApplyWatermarks(path string, marks []Watermark, assetDir string, logger zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	src, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for i, wm := range marks {
		switch wm.Type {
		case "text":
			drawText(canvas, wm)
		case "image":
			if err := drawOverlay(canvas, wm, assetDir); err != nil {
				logger.Warn().
					Str("event", "watermark.overlay_failed").
					Int("index", i+1).
					Str("path", wm.Path).
					Err(err).
					Msg("skipping image watermark")
			}
		default:
			logger.Warn().
				Str("event", "watermark.unknown_type").
				Int("index", i+1).
				Str("type", wm.Type).
				Msg("skipping watermark of unknown type")
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: Quality}); err != nil {
		return fmt.Errorf("encode watermarked image: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("replace image: %w", err)
	}
	return nil
}

// anchor resolves the fractional position to pixel coordinates, guarding
// against zero divisors.
func anchor(bounds image.Rectangle, wm Watermark) (int, int) {
	px, py := wm.PosX, wm.PosY
	if px <= 0 {
		px = 2
	}
	if py <= 0 {
		py = 2
	}
	x := bounds.Min.X + int(float64(bounds.Dx())/px)
	y := bounds.Min.Y + int(float64(bounds.Dy())/py)
	return x, y
}

func drawText(canvas *image.RGBA, wm Watermark) {
	x, y := anchor(canvas.Bounds(), wm)
	alpha := clampOpacity(wm.Opacity)

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{R: 128, G: 128, B: 128, A: alpha}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(wm.Content)
}

func drawOverlay(canvas *image.RGBA, wm Watermark, assetDir string) error {
	f, err := os.Open(filepath.Join(assetDir, filepath.Base(wm.Path)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	overlay, err := png.Decode(f)
	if err != nil {
		return fmt.Errorf("decode overlay: %w", err)
	}

	x, y := anchor(canvas.Bounds(), wm)
	alpha := clampOpacity(wm.Opacity)
	mask := image.NewUniform(color.Alpha{A: alpha})

	target := overlay.Bounds().Add(image.Pt(x, y)).Sub(overlay.Bounds().Min)
	draw.DrawMask(canvas, target, overlay, overlay.Bounds().Min, mask, image.Point{}, draw.Over)
	return nil
}

func clampOpacity(opacity int) uint8 {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 100 {
		opacity = 100
	}
	return uint8(opacity * 255 / 100)
}
