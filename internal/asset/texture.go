package asset

import (
	"image"

	"github.com/l1jgo/stage/internal/geom"
)

// Texture is a shared, reference-counted texture entry. Holders get the same
// *Texture for the same key.
type Texture struct {
	key     string
	id      uint32
	img     *Image
	sum     [32]byte
	avg     geom.Color
	width   int
	height  int
	holders int
	version int
	isError bool
}

func (t *Texture) Key() string       { return t.key }
func (t *Texture) ID() uint32        { return t.id }
func (t *Texture) Size() (int, int)  { return t.width, t.height }
func (t *Texture) Color() geom.Color { return t.avg }
func (t *Texture) Holders() int      { return t.holders }
func (t *Texture) Loaded() bool      { return t.img != nil }
func (t *Texture) IsError() bool     { return t.isError }

// Version increases every time the pixels are replaced by a reload.
func (t *Texture) Version() int { return t.version }

func (t *Texture) set(img *Image) {
	t.img = img
	t.sum = img.Sum
	t.width, t.height = img.Width(), img.Height()
	t.avg = average(img.Pix)
	t.version++
}

// unload drops the pixels; size and color stay so sprites keep drawing.
func (t *Texture) unload() { t.img = nil }

// average returns the mean color of the opaque-ish pixels of img, sampling
// at most 64x64 points.
func average(img *image.RGBA) geom.Color {
	b := img.Bounds()
	if b.Empty() {
		return geom.Black
	}
	stepX, stepY := max(1, b.Dx()/64), max(1, b.Dy()/64)
	var r, g, bl, n float32
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			c := img.RGBAAt(x, y)
			if c.A < 128 {
				continue
			}
			r += float32(c.R)
			g += float32(c.G)
			bl += float32(c.B)
			n++
		}
	}
	if n == 0 {
		return geom.Black
	}
	return geom.RGB(r/n/255, g/n/255, bl/n/255)
}

func newErrorTexture() *Texture {
	pix := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pix.Pix[0], pix.Pix[1], pix.Pix[2], pix.Pix[3] = 255, 0, 255, 255
	t := &Texture{isError: true}
	t.set(&Image{Pix: pix, Format: "builtin"})
	return t
}
