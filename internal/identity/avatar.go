package identity

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

const gridSize = 5

// avatar renders a horizontally symmetric 5x5 identicon for the digest and
// encodes it as PNG.
func avatar(digest []byte, size int) ([]byte, error) {
	fg := hslToRGB(float64(int(digest[28])<<8|int(digest[29]))/65536, 0.45+float64(digest[30])/1020, 0.50)
	bg := color.NRGBA{R: 240, G: 240, B: 240, A: 255}

	margin := size / 10
	cell := (size - 2*margin) / gridSize
	// centre the grid when size is not a multiple of the cell size
	margin = (size - cell*gridSize) / 2

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	half := (gridSize + 1) / 2
	for row := 0; row < gridSize; row++ {
		for col := 0; col < half; col++ {
			if digest[row*half+col]&1 == 0 {
				continue
			}
			fill(img, margin, cell, row, col, fg)
			fill(img, margin, cell, row, gridSize-1-col, fg)
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(img *image.NRGBA, margin, cell, row, col int, c color.NRGBA) {
	r := image.Rect(
		margin+col*cell, margin+row*cell,
		margin+(col+1)*cell, margin+(row+1)*cell,
	)
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// hslToRGB converts h, s, l in [0,1) to an opaque colour.
func hslToRGB(h, s, l float64) color.NRGBA {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return color.NRGBA{
		R: uint8(255 * hueToChannel(p, q, h+1.0/3)),
		G: uint8(255 * hueToChannel(p, q, h)),
		B: uint8(255 * hueToChannel(p, q, h-1.0/3)),
		A: 255,
	}
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
