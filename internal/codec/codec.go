// Package codec decodes and encodes image files to and from pixel buffers.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"defect-synth/internal/pixbuf"
)

var (
	// ErrDecode is returned for unreadable or unrecognised image data.
	ErrDecode = errors.New("cannot decode image")

	// ErrUnsupportedFormat is returned when encoding to a format with no
	// writer.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Format identifies an image container.
type Format string

const (
	FormatUnknown Format = ""
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatGIF     Format = "gif"
)

// DefaultJPEGQuality is used when Options.JPEGQuality is zero.
const DefaultJPEGQuality = 95

// Options control encoding.
type Options struct {
	JPEGQuality int // 1-100
}

// Ext returns the usual file extension, with the leading dot.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatTIFF:
		return ".tiff"
	case FormatUnknown:
		return ""
	default:
		return "." + string(f)
	}
}

// Sniff identifies the container format of data from its magic bytes.
func Sniff(data []byte) Format {
	kind, err := filetype.Match(data)
	if err != nil {
		return FormatUnknown
	}
	switch kind.Extension {
	case "png":
		return FormatPNG
	case "jpg":
		return FormatJPEG
	case "bmp":
		return FormatBMP
	case "tif":
		return FormatTIFF
	case "gif":
		return FormatGIF
	default:
		return FormatUnknown
	}
}

// Decode reads an image into a 3-channel buffer. Alpha in the file is
// dropped, the way colour-mode readers load images.
func Decode(data []byte) (*pixbuf.Buffer, Format, error) {
	if len(data) == 0 {
		return nil, FormatUnknown, fmt.Errorf("%w: empty data", ErrDecode)
	}
	format := Sniff(data)

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch format {
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatTIFF:
		img, err = tiff.Decode(r)
	case FormatGIF:
		img, err = gif.Decode(r)
	default:
		return nil, FormatUnknown, fmt.Errorf("%w: unrecognised format", ErrDecode)
	}
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
	}

	buf, err := pixbuf.FromImage(img, pixbuf.RGB)
	if err != nil {
		return nil, format, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return buf, format, nil
}

// Encode writes buf in the given format.
func Encode(buf *pixbuf.Buffer, format Format, opts Options) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	img := buf.Image()

	var out bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&out, img)
	case FormatJPEG:
		q := opts.JPEGQuality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		err = jpeg.Encode(&out, img, &jpeg.Options{Quality: min(q, 100)})
	case FormatBMP:
		err = bmp.Encode(&out, img)
	case FormatTIFF:
		err = tiff.Encode(&out, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return out.Bytes(), nil
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".bmp":
		return FormatBMP
	case ".tif", ".tiff":
		return FormatTIFF
	case ".gif":
		return FormatGIF
	default:
		return FormatUnknown
	}
}

// SupportedFormats returns the extensions that can be opened.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".gif"}
}

// ExportFormats returns the formats Encode can write.
func ExportFormats() []Format {
	return []Format{FormatPNG, FormatJPEG, FormatBMP, FormatTIFF}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// FileFilter returns a file filter string for use in file dialogs.
func FileFilter() string {
	return "Images (*.png *.jpg *.jpeg *.bmp *.tif *.tiff *.gif)"
}
