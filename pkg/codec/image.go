package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // decoder registration; backends return PNG inline data

	"storybook-server/internal/model"
)

// MaxImageDimension bounds the longer edge of any uploaded illustration.
const MaxImageDimension = 1024

// DefaultJPEGQuality matches the upload quality used for all story assets.
const DefaultJPEGQuality = 70

// CompressImage decodes an illustration, scales it so the longer edge does
// not exceed MaxImageDimension (aspect ratio preserved, integer rounding) and
// re-encodes it as JPEG at the given quality over a white background, which
// flattens any transparency. The transform is deterministic for identical
// input and quality.
func CompressImage(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAssetDecode, err)
	}

	width, height := boundedSize(img.Bounds().Dx(), img.Bounds().Dy())

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	drawScaled(canvas, img)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return out.Bytes(), nil
}

// boundedSize scales (w, h) so the longer edge is at most MaxImageDimension.
func boundedSize(w, h int) (int, int) {
	if w >= h {
		if w > MaxImageDimension {
			h = int(float64(h)*float64(MaxImageDimension)/float64(w) + 0.5)
			w = MaxImageDimension
		}
	} else {
		if h > MaxImageDimension {
			w = int(float64(w)*float64(MaxImageDimension)/float64(h) + 0.5)
			h = MaxImageDimension
		}
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// drawScaled paints src onto dst using nearest-neighbour sampling. Assets are
// only ever downscaled here, where nearest-neighbour is visually fine for
// illustration content and keeps the transform dependency-free.
func drawScaled(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return
	}
	dstW := dst.Bounds().Dx()
	dstH := dst.Bounds().Dy()
	for y := 0; y < dstH; y++ {
		srcY := b.Min.Y + (y*srcH)/dstH
		for x := 0; x < dstW; x++ {
			srcX := b.Min.X + (x*srcW)/dstW
			c := src.At(srcX, srcY)
			_, _, _, a := c.RGBA()
			if a == 0 {
				continue // keep the white background under transparent pixels
			}
			dst.Set(x, y, c)
		}
	}
}
