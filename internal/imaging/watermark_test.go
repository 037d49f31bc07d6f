// SPDX-License-Identifier: MIT

package imaging

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyWatermarks_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.jpg")
	original := writeTestJPEG(t, path)

	marks := []Watermark{{
		Type:    "text",
		Content: "Sample Text Watermark",
		PosX:    2,
		PosY:    1.5,
		Opacity: 75,
	}}
	require.NoError(t, ApplyWatermarks(path, marks, dir, zerolog.Nop()))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, original, got, "watermarking must change the file")
	assert.NoError(t, VerifyFile(path), "watermarked output must still verify")
}

func TestApplyWatermarks_ImageOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.jpg")
	writeTestJPEG(t, path)

	overlay := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for i := range overlay.Pix {
		overlay.Pix[i] = 200
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, overlay))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mark.png"), buf.Bytes(), 0o644))

	marks := []Watermark{{Type: "image", Path: "mark.png", PosX: 2, PosY: 1.2, Opacity: 50}}
	require.NoError(t, ApplyWatermarks(path, marks, dir, zerolog.Nop()))
	assert.NoError(t, VerifyFile(path))
}

func TestApplyWatermarks_UnknownTypeSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.jpg")
	writeTestJPEG(t, path)

	marks := []Watermark{{Type: "hologram", Content: "x"}}
	assert.NoError(t, ApplyWatermarks(path, marks, dir, zerolog.Nop()))
}

func TestApplyWatermarks_MissingOverlayNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.jpg")
	writeTestJPEG(t, path)

	marks := []Watermark{{Type: "image", Path: "does-not-exist.png", PosX: 2, PosY: 2, Opacity: 50}}
	assert.NoError(t, ApplyWatermarks(path, marks, dir, zerolog.Nop()))
}

func TestClampOpacity(t *testing.T) {
	assert.Equal(t, uint8(0), clampOpacity(-5))
	assert.Equal(t, uint8(255), clampOpacity(150))
	assert.Equal(t, uint8(127), clampOpacity(50))
}

func TestAnchor_GuardsZeroDivisors(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	x, y := anchor(bounds, Watermark{PosX: 0, PosY: 0})
	assert.Equal(t, 50, x)
	assert.Equal(t, 50, y)
}
