// Package cvbridge implements the mask, codec and warp operations on top of
// OpenCV, for use when the "opencv" engine is configured.
package cvbridge

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	dsimage "defect-synth/internal/image"
	"defect-synth/internal/mask"
	"defect-synth/internal/pixbuf"
	"defect-synth/internal/region"
	"defect-synth/pkg/geometry"
)

// ToMat copies buf into a BGR or BGRA Mat. The caller closes it.
func ToMat(buf *pixbuf.Buffer) (gocv.Mat, error) {
	if err := buf.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	mt, code := gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR
	if buf.Channels == pixbuf.RGBA {
		mt, code = gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGRA
	}
	wrapped, err := gocv.NewMatFromBytes(buf.Height, buf.Width, mt, buf.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create mat: %w", err)
	}
	defer wrapped.Close()

	out := gocv.NewMat()
	gocv.CvtColor(wrapped, &out, code)
	return out, nil
}

// FromMat copies a BGR, BGRA or grayscale Mat into a new buffer.
func FromMat(m gocv.Mat) (*pixbuf.Buffer, error) {
	if m.Empty() {
		return nil, errors.New("empty mat")
	}

	channels := pixbuf.RGB
	var code gocv.ColorConversionCode
	switch m.Channels() {
	case 1:
		code = gocv.ColorGrayToBGR
	case 3:
		code = gocv.ColorBGRToRGB
	case 4:
		code, channels = gocv.ColorBGRAToRGBA, pixbuf.RGBA
	default:
		return nil, fmt.Errorf("unsupported channel count %d", m.Channels())
	}

	conv := gocv.NewMat()
	defer conv.Close()
	gocv.CvtColor(m, &conv, code)

	buf := &pixbuf.Buffer{
		Width:    conv.Cols(),
		Height:   conv.Rows(),
		Channels: channels,
		Pix:      conv.ToBytes(),
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return buf, nil
}

// Rasterizer fills polygons with cv::fillPoly.
type Rasterizer struct{}

// Rasterize implements mask.Rasterizer. cv::fillPoly works on integer
// vertices, so coordinates are floored; the clip box still comes from the
// float polygon.
func (Rasterizer) Rasterize(poly []geometry.Point2D, width, height int, clip geometry.RectInt) (*mask.Mask, error) {
	m := mask.NewMask(width, height)
	clip = clip.Clip(width, height)
	if clip.Empty() {
		return m, nil
	}

	pts := make([]image.Point, len(poly))
	for i, p := range poly {
		q := p.Truncate()
		pts[i] = image.Point{X: q.X, Y: q.Y}
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()

	canvas := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC1)
	defer canvas.Close()
	canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.FillPoly(&canvas, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	data := canvas.ToBytes()
	for y := clip.Y; y < clip.Y+clip.Height; y++ {
		row := y * width
		for x := clip.X; x < clip.X+clip.Width; x++ {
			if data[row+x] != 0 {
				m.Bits[row+x] = mask.Inside
			}
		}
	}
	return m, nil
}

// Decode reads an image with cv::imdecode in colour mode.
func Decode(data []byte) (*pixbuf.Buffer, error) {
	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer m.Close()
	if m.Empty() {
		return nil, errors.New("failed to decode image: unrecognised data")
	}
	return FromMat(m)
}

// Encode writes buf with cv::imencode. ext selects the format, e.g. ".png".
func Encode(buf *pixbuf.Buffer, ext string) ([]byte, error) {
	m, err := ToMat(buf)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	out, err := gocv.IMEncode(gocv.FileExt(ext), m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ext, err)
	}
	defer out.Close()

	data := make([]byte, out.Len())
	copy(data, out.GetBytes())
	return data, nil
}

// Warper resamples regions with cv::warpAffine.
type Warper struct{}

// Warp implements image.Warper.
func (Warper) Warp(r *region.Region, canvas image.Rectangle, interp dsimage.Interpolation) (*image.NRGBA, error) {
	bounds := r.Footprint().Bounds.Pixels().Intersect(canvas)
	out := image.NewNRGBA(bounds)
	if bounds.Empty() {
		return out, nil
	}

	src, err := ToMat(r.Seed())
	if err != nil {
		return nil, err
	}
	defer src.Close()

	t := geometry.Translation(-float64(bounds.Min.X), -float64(bounds.Min.Y)).Compose(r.EffectiveTransform())
	// cv::warpAffine puts pixel centres on integer coordinates.
	t = geometry.Translation(-0.5, -0.5).Compose(t).Compose(geometry.Translation(0.5, 0.5))

	tm := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer tm.Close()
	tm.SetDoubleAt(0, 0, t.A)
	tm.SetDoubleAt(0, 1, t.B)
	tm.SetDoubleAt(0, 2, t.TX)
	tm.SetDoubleAt(1, 0, t.C)
	tm.SetDoubleAt(1, 1, t.D)
	tm.SetDoubleAt(1, 2, t.TY)

	flags := gocv.InterpolationNearestNeighbor
	if interp == dsimage.InterpBilinear {
		flags = gocv.InterpolationLinear
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(src, &dst, tm, image.Point{X: bounds.Dx(), Y: bounds.Dy()},
		flags, gocv.BorderConstant, color.RGBA{})

	warped, err := FromMat(dst)
	if err != nil {
		return nil, err
	}
	copy(out.Pix, warped.Pix)
	return out, nil
}
