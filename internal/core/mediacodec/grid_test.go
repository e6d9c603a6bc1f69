// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mediacodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeGrid(t *testing.T, b64 string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestComposeGridZeroImages(t *testing.T) {
	out, err := NewGridComposer().ComposeGrid(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestComposeGridCanvasSize(t *testing.T) {
	composer := NewGridComposer()
	for _, count := range []int{1, 5, 9} {
		images := make([]string, count)
		for i := range images {
			images[i] = testImage(t, 90, 160, color.White)
		}
		out, err := composer.ComposeGrid(context.Background(), images)
		require.NoError(t, err)

		grid := decodeGrid(t, out)
		assert.Equal(t, GridCanvasWidth, grid.Bounds().Dx())
		assert.Equal(t, GridCanvasHeight, grid.Bounds().Dy())
	}
}

func TestComposeGridFillsCellsInReadingOrder(t *testing.T) {
	// Five white images leave the last four cells as black background.
	images := make([]string, 5)
	for i := range images {
		images[i] = testImage(t, 90, 160, color.White)
	}
	out, err := NewGridComposer().ComposeGrid(context.Background(), images)
	require.NoError(t, err)
	grid := decodeGrid(t, out)

	cellW := GridCanvasWidth / GridCols
	cellH := GridCanvasHeight / GridRows
	for idx := 0; idx < GridCells; idx++ {
		col := idx % GridCols
		row := idx / GridCols
		r, g, b, _ := grid.At(col*cellW+cellW/2, row*cellH+cellH/2).RGBA()
		luma := (r + g + b) / 3
		if idx < 5 {
			assert.Greater(t, luma, uint32(0xc000), "cell %d should be filled", idx)
		} else {
			assert.Less(t, luma, uint32(0x2000), "cell %d should be background", idx)
		}
	}
}

func TestComposeGridToleratesCorruptImage(t *testing.T) {
	images := make([]string, 9)
	for i := range images {
		images[i] = testImage(t, 90, 160, color.White)
	}
	images[4] = base64.StdEncoding.EncodeToString([]byte("not an image"))

	out, err := NewGridComposer().ComposeGrid(context.Background(), images)
	require.NoError(t, err)
	grid := decodeGrid(t, out)

	cellW := GridCanvasWidth / GridCols
	cellH := GridCanvasHeight / GridRows
	// The corrupt middle cell stays black, its neighbors are filled.
	r, g, b, _ := grid.At(1*cellW+cellW/2, 1*cellH+cellH/2).RGBA()
	assert.Less(t, (r+g+b)/3, uint32(0x2000))
	r, g, b, _ = grid.At(cellW/2, cellH/2).RGBA()
	assert.Greater(t, (r+g+b)/3, uint32(0xc000))
}

func TestComposeGridAcceptsDataURLs(t *testing.T) {
	img := "data:image/jpeg;base64," + testImage(t, 90, 160, color.White)
	out, err := NewGridComposer().ComposeGrid(context.Background(), []string{img})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestCoverCropWideSource(t *testing.T) {
	// A 320x160 source covering a 90x160 cell crops the width down to
	// 160*90/160 = 90 pixels, centered.
	crop := coverCrop(image.Rect(0, 0, 320, 160), 90, 160)
	assert.Equal(t, 90, crop.Dx())
	assert.Equal(t, 160, crop.Dy())
	assert.Equal(t, 115, crop.Min.X)
}

func TestCoverCropTallSource(t *testing.T) {
	// A 90x400 source covering a 90x160 cell crops the height to 160.
	crop := coverCrop(image.Rect(0, 0, 90, 400), 90, 160)
	assert.Equal(t, 90, crop.Dx())
	assert.Equal(t, 160, crop.Dy())
	assert.Equal(t, 120, crop.Min.Y)
}

func TestCoverCropExactAspect(t *testing.T) {
	src := image.Rect(0, 0, 180, 320)
	assert.Equal(t, src, coverCrop(src, 90, 160))
}
