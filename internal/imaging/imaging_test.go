package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/charpstar/visearch/internal/models"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode_PNG(t *testing.T) {
	data := encodePNG(t, 8, 6)
	img, err := Decode(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("bounds: got %v", img.Bounds())
	}
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("not an image"), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("kind: got %s", models.KindOf(err))
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil, 0)
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("kind: got %v", err)
	}
}

func TestDecode_TooLarge(t *testing.T) {
	data := encodePNG(t, 64, 64)
	_, err := Decode(data, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("kind: got %s", models.KindOf(err))
	}
}

func TestToTensor_Shape(t *testing.T) {
	data := encodePNG(t, 100, 60)
	img, err := Decode(data, 0)
	if err != nil {
		t.Fatal(err)
	}
	tensor := ToTensor(img, 32)
	if len(tensor) != 3*32*32 {
		t.Errorf("tensor length: got %d, want %d", len(tensor), 3*32*32)
	}
}
