// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// MaxTextureDim bounds accepted image dimensions. Anything larger
// exceeds what common devices guarantee for 2D textures.
const MaxTextureDim = 8192

// RGBA8 converts any image into a tightly-packed RGBA8 pixel buffer
// suitable for texture upload, plus its dimensions.
func RGBA8(img image.Image) ([]byte, uint32, uint32, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("asset: empty image %dx%d", w, h)
	}
	if w > MaxTextureDim || h > MaxTextureDim {
		return nil, 0, 0, fmt.Errorf("asset: image %dx%d exceeds %d", w, h, MaxTextureDim)
	}

	// A *image.RGBA with tight stride can be handed over as-is.
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*w {
		return rgba.Pix, uint32(w), uint32(h), nil
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out.Pix, uint32(w), uint32(h), nil
}

// Resize scales an image to the given dimensions with Catmull-Rom
// filtering. Use before RGBA8 when the source exceeds the texture
// budget or a power-of-two size is wanted.
func Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("asset: invalid resize %dx%d", width, height)
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return out, nil
}
