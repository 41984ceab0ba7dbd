package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	// MaxUploadBytes caps a single swap input image.
	MaxUploadBytes = 15 << 20

	// maxDimension bounds the longer edge before the image is sent to the
	// inference provider. Larger inputs slow runs without quality gain.
	maxDimension = 2048

	jpegQuality = 90
)

var (
	ErrTooLarge          = errors.New("image exceeds the size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Format names returned by SniffFormat.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Prepared is a normalized swap input: oriented, bounded and re-encoded
// as JPEG regardless of the uploaded format.
type Prepared struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// SniffFormat detects the image format from magic bytes. Extensions are
// not trusted.
func SniffFormat(data []byte) (string, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG, nil
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return FormatPNG, nil
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Prepare validates and normalizes one uploaded image.
func Prepare(data []byte) (*Prepared, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedFormat
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	format, err := SniffFormat(data)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch format {
	case FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data), &decoder.Options{})
	default:
		img, err = imaging.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	if format == FormatJPEG {
		img = applyOrientation(img, data)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := img.Bounds()
	return &Prepared{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Ext:         ".jpg",
		Width:       out.Dx(),
		Height:      out.Dy(),
	}, nil
}

// applyOrientation rotates the pixels so the EXIF orientation tag can be
// dropped. Images without EXIF data pass through unchanged.
func applyOrientation(img image.Image, data []byte) image.Image {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
