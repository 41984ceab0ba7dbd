package imageprep

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestSniffFormat(t *testing.T) {
	if got, err := SniffFormat(encodeJPEG(t, 4, 4)); err != nil || got != FormatJPEG {
		t.Errorf("jpeg sniff = %q, %v", got, err)
	}
	if got, err := SniffFormat(encodePNG(t, 4, 4)); err != nil || got != FormatPNG {
		t.Errorf("png sniff = %q, %v", got, err)
	}

	webpHeader := append([]byte("RIFF"), 0, 0, 0, 0)
	webpHeader = append(webpHeader, []byte("WEBP")...)
	if got, err := SniffFormat(webpHeader); err != nil || got != FormatWebP {
		t.Errorf("webp sniff = %q, %v", got, err)
	}

	if _, err := SniffFormat([]byte("GIF89a....")); err != ErrUnsupportedFormat {
		t.Errorf("gif should be unsupported, got %v", err)
	}
	if _, err := SniffFormat(nil); err != ErrUnsupportedFormat {
		t.Errorf("empty input should be unsupported, got %v", err)
	}
}

func TestPrepareJPEGPassthrough(t *testing.T) {
	out, err := Prepare(encodeJPEG(t, 640, 480))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if out.ContentType != "image/jpeg" || out.Ext != ".jpg" {
		t.Errorf("content type/ext = %q/%q", out.ContentType, out.Ext)
	}
	if out.Width != 640 || out.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", out.Width, out.Height)
	}
	if got, err := SniffFormat(out.Data); err != nil || got != FormatJPEG {
		t.Errorf("output sniff = %q, %v", got, err)
	}
}

func TestPrepareConvertsPNG(t *testing.T) {
	out, err := Prepare(encodePNG(t, 100, 50))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got, _ := SniffFormat(out.Data); got != FormatJPEG {
		t.Errorf("png output should be re-encoded as jpeg, got %q", got)
	}
}

func TestPrepareDownscalesLargeImages(t *testing.T) {
	out, err := Prepare(encodeJPEG(t, 4096, 1024))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if out.Width != 2048 {
		t.Errorf("width = %d, want 2048", out.Width)
	}
	if out.Height != 512 {
		t.Errorf("height = %d, want 512 to keep the aspect ratio", out.Height)
	}
}

func TestPrepareRejectsOversizedInput(t *testing.T) {
	big := make([]byte, MaxUploadBytes+1)
	big[0], big[1], big[2] = 0xFF, 0xD8, 0xFF
	if _, err := Prepare(big); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestPrepareRejectsGarbage(t *testing.T) {
	if _, err := Prepare([]byte("not an image at all")); err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
