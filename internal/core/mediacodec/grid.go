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

// 3x3 storyboard grid composition. The canvas is a fixed 9:16 frame whose
// cells are themselves exactly 9:16, so covering a cell never distorts a
// 9:16 source image.
package mediacodec

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Canvas geometry. 1080/3 = 360 and 1920/3 = 640, so every cell is 9:16.
const (
	GridCanvasWidth  = 1080
	GridCanvasHeight = 1920
	GridCols         = 3
	GridRows         = 3
	GridCells        = GridCols * GridRows
)

// GridComposer tiles up to nine base64 images onto the canonical canvas.
type GridComposer struct {
	JPEGQuality int
}

// NewGridComposer returns a composer with the default JPEG quality.
func NewGridComposer() *GridComposer {
	return &GridComposer{JPEGQuality: 90}
}

// ComposeGrid lays images onto the 3x3 grid in reading order (row-major)
// and returns the canvas as base64 JPEG.
//
// Missing cells (fewer than nine inputs) stay opaque black. A corrupt
// image is logged and its cell left empty; it never aborts the
// composition. Zero inputs yield an empty result and no error. Inputs are
// decoded in parallel but placement is strictly by input index, never by
// decode completion order.
func (g *GridComposer) ComposeGrid(ctx context.Context, base64Images []string) (string, error) {
	if len(base64Images) == 0 {
		return "", nil
	}
	images := base64Images
	if len(images) > GridCells {
		images = images[:GridCells]
	}

	decoded := make([]image.Image, len(images))
	var wg sync.WaitGroup
	for idx, src := range images {
		if src == "" {
			continue
		}
		wg.Add(1)
		go func(idx int, src string) {
			defer wg.Done()
			img, err := decodeBase64Image(src)
			if err != nil {
				slog.Warn("failed to decode grid image, leaving cell empty", "cell", idx, "error", err)
				return
			}
			decoded[idx] = img
		}(idx, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, GridCanvasWidth, GridCanvasHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	cellW := GridCanvasWidth / GridCols
	cellH := GridCanvasHeight / GridRows
	for idx, img := range decoded {
		if img == nil {
			continue
		}
		col := idx % GridCols
		row := idx / GridCols
		cell := image.Rect(col*cellW, row*cellH, (col+1)*cellW, (row+1)*cellH)
		xdraw.CatmullRom.Scale(canvas, cell, img, coverCrop(img.Bounds(), cellW, cellH), xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: g.JPEGQuality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// coverCrop returns the largest centered sub-rectangle of src that has the
// cell's aspect ratio. Scaling that crop to the cell is equivalent to
// scale = max(cellW/srcW, cellH/srcH) with a centered clip.
func coverCrop(src image.Rectangle, cellW, cellH int) image.Rectangle {
	srcW := src.Dx()
	srcH := src.Dy()
	if srcW == 0 || srcH == 0 {
		return src
	}
	// Compare aspect ratios without division: srcW/srcH vs cellW/cellH.
	if srcW*cellH > srcH*cellW {
		// Source is wider than the cell; crop the width.
		cropW := srcH * cellW / cellH
		x0 := src.Min.X + (srcW-cropW)/2
		return image.Rect(x0, src.Min.Y, x0+cropW, src.Max.Y)
	}
	// Source is taller than the cell; crop the height.
	cropH := srcW * cellH / cellW
	y0 := src.Min.Y + (srcH-cropH)/2
	return image.Rect(src.Min.X, y0, src.Max.X, y0+cropH)
}

// decodeBase64Image accepts a raw base64 payload or a full data URL.
func decodeBase64Image(src string) (image.Image, error) {
	if idx := strings.Index(src, ";base64,"); idx >= 0 {
		src = src[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return img, nil
}
