package cvbridge

import (
	"fmt"

	"gocv.io/x/gocv"

	"defect-synth/internal/app"
	"defect-synth/internal/codec"
	"defect-synth/internal/pixbuf"
)

// StateOptions routes rasterizing, warping and image I/O of a State through
// OpenCV.
func StateOptions() []app.Option {
	return []app.Option{
		app.WithRasterizer(Rasterizer{}),
		app.WithWarper(Warper{}),
		app.WithDecoder(DecodeSniffed),
		app.WithEncoder(EncodeFormat),
	}
}

// DecodeSniffed decodes with OpenCV and reports the container format found
// in the data's magic bytes.
func DecodeSniffed(data []byte) (*pixbuf.Buffer, codec.Format, error) {
	format := codec.Sniff(data)
	if format == codec.FormatUnknown {
		return nil, format, fmt.Errorf("%w: unrecognised image data", codec.ErrDecode)
	}
	buf, err := Decode(data)
	if err != nil {
		return nil, format, fmt.Errorf("%w: %v", codec.ErrDecode, err)
	}
	return buf, format, nil
}

// EncodeFormat encodes buf in one of codec.ExportFormats, honouring the
// JPEG quality.
func EncodeFormat(buf *pixbuf.Buffer, format codec.Format, opts codec.Options) ([]byte, error) {
	switch format {
	case codec.FormatPNG, codec.FormatBMP, codec.FormatTIFF:
		return Encode(buf, format.Ext())
	case codec.FormatJPEG:
	default:
		return nil, fmt.Errorf("%w: %s", codec.ErrUnsupportedFormat, format)
	}

	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = codec.DefaultJPEGQuality
	}
	m, err := ToMat(buf)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	out, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer out.Close()

	data := make([]byte, out.Len())
	copy(data, out.GetBytes())
	return data, nil
}
