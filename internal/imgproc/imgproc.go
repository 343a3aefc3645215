package imgproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/imageproxy/internal/ratio"
)

// whiteThreshold is the per-channel floor above which a pixel counts as
// white background.
const whiteThreshold = 240

// Dimensions returns the pixel width and height of an encoded image.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Crop cuts the image down to box and re-encodes it as PNG.
func Crop(data []byte, box ratio.CropBox) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	rect := image.Rect(box.Left, box.Top, box.Right, box.Bottom)
	if !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("crop box %v outside image bounds %v", rect, img.Bounds())
	}

	cropped := imaging.Crop(img, rect)
	return encodePNG(cropped)
}

// CropToRatio computes the anchored crop box for the target ratio and
// applies it.
func CropToRatio(data []byte, target ratio.Ratio, anchor ratio.Anchor) ([]byte, error) {
	width, height, err := Dimensions(data)
	if err != nil {
		return nil, err
	}

	box, err := ratio.ComputeCropBox(width, height, target, anchor)
	if err != nil {
		return nil, err
	}

	return Crop(data, box)
}

// Thumbnail scales the image to fit within maxSize on its longer edge,
// keeping aspect ratio. Images already small enough are re-encoded
// unchanged.
func Thumbnail(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return encodePNG(img)
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	return encodePNG(resized)
}

// RemoveWhiteBackground turns near-white pixels transparent. Generated
// icons and illustrations often arrive on a flat white canvas.
func RemoveWhiteBackground(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R >= whiteThreshold && c.G >= whiteThreshold && c.B >= whiteThreshold {
				c.A = 0
			}
			out.SetNRGBA(x, y, c)
		}
	}

	return encodePNG(out)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
