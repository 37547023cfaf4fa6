package frames

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"

	"framelabel/internal/record"
)

// Channel orders understood by the decoder.
const (
	ChannelOrderBGR = "BGR"
	ChannelOrderRGB = "RGB"
)

// Resize filters understood by the decoder.
const (
	FilterNearest    = "nearest"
	FilterBilinear   = "bilinear"
	FilterCatmullRom = "catmullrom"
)

// DecodeOptions controls how a frame file becomes an Image. A resize is
// applied only when both dimensions are positive.
type DecodeOptions struct {
	ResizeHeight int
	ResizeWidth  int
	Filter       string
	ChannelOrder string
}

func (o DecodeOptions) validate() error {
	if o.ResizeHeight < 0 || o.ResizeWidth < 0 {
		return fmt.Errorf("%w: resize dimensions must not be negative", ErrConfiguration)
	}
	if (o.ResizeHeight > 0) != (o.ResizeWidth > 0) {
		return fmt.Errorf("%w: resize height and width must be set together", ErrConfiguration)
	}
	if _, err := interpolator(o.Filter); err != nil {
		return err
	}
	switch normalizeOrder(o.ChannelOrder) {
	case ChannelOrderBGR, ChannelOrderRGB:
	default:
		return fmt.Errorf("%w: unsupported channel order %q", ErrConfiguration, o.ChannelOrder)
	}
	return nil
}

func normalizeOrder(order string) string {
	order = strings.ToUpper(strings.TrimSpace(order))
	if order == "" {
		return ChannelOrderBGR
	}
	return order
}

func interpolator(name string) (draw.Interpolator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FilterBilinear:
		return draw.BiLinear, nil
	case FilterNearest:
		return draw.NearestNeighbor, nil
	case FilterCatmullRom:
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("%w: unsupported resize filter %q", ErrConfiguration, name)
	}
}

// DecodeFile reads and converts one frame file.
func DecodeFile(path string, opts DecodeOptions) (record.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return record.Image{}, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return record.Image{}, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return Convert(img, opts)
}

// Convert resizes img when requested and lays it out as a 3-channel CHW
// buffer in the requested channel order. Resizing happens before channel
// reordering.
func Convert(img image.Image, opts DecodeOptions) (record.Image, error) {
	if err := opts.validate(); err != nil {
		return record.Image{}, err
	}
	if opts.ResizeHeight > 0 && opts.ResizeWidth > 0 {
		scaler, _ := interpolator(opts.Filter)
		dst := image.NewNRGBA(image.Rect(0, 0, opts.ResizeWidth, opts.ResizeHeight))
		scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return record.Image{}, fmt.Errorf("frame has empty bounds %v", b)
	}
	order := normalizeOrder(opts.ChannelOrder)
	plane := width * height
	data := make([]byte, 3*plane)
	first, third := 0, 2*plane
	if order == ChannelOrderBGR {
		first, third = 2*plane, 0
	}
	set := func(i int, r, g, bl uint8) {
		data[first+i] = r
		data[plane+i] = g
		data[third+i] = bl
	}
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < width; x++ {
				p := row[x*4 : x*4+3]
				set(y*width+x, p[0], p[1], p[2])
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]
				set(y*width+x, v, v, v)
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				set(y*width+x, c.R, c.G, c.B)
			}
		}
	}
	return record.Image{
		Channels:     3,
		Height:       height,
		Width:        width,
		ChannelOrder: order,
		Data:         data,
	}, nil
}
