// Package imaging decodes and preprocesses query images.
package imaging

import (
	"bytes"
	"image"

	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/charpstar/visearch/internal/models"
)

// supportedFormats are the decodable image formats, matching what the index
// builder accepts.
var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// Decode validates and decodes image bytes. Images larger than maxBytes or in
// an unsupported format are rejected with a validation error.
func Decode(data []byte, maxBytes int64) (image.Image, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("image data is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, models.NewValidationError("image exceeds maximum size of %d bytes", maxBytes)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.WrapError(models.KindValidation, err,
			"image could not be decoded (supported formats: JPEG, PNG, WebP)")
	}
	if !supportedFormats[format] {
		return nil, models.NewValidationError("unsupported image format %q", format)
	}
	return img, nil
}

// clip normalization constants (per channel mean and std on [0,1] values).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// ToTensor resizes the shorter side to size, center-crops a size x size patch,
// and returns normalized CHW float32 data ready for a CLIP visual model.
func ToTensor(img image.Image, size int) []float32 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Scale so the shorter side equals size.
	var scaledW, scaledH int
	if w < h {
		scaledW = size
		scaledH = h * size / w
	} else {
		scaledH = size
		scaledW = w * size / h
	}
	if scaledW < size {
		scaledW = size
	}
	if scaledH < size {
		scaledH = size
	}
	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	offX := (scaledW - size) / 2
	offY := (scaledH - size) / 2

	tensor := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := scaled.At(offX+x, offY+y).RGBA()
			i := y*size + x
			tensor[i] = (float32(r)/65535 - clipMean[0]) / clipStd[0]
			tensor[plane+i] = (float32(g)/65535 - clipMean[1]) / clipStd[1]
			tensor[2*plane+i] = (float32(b)/65535 - clipMean[2]) / clipStd[2]
		}
	}
	return tensor
}
