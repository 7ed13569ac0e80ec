package vision

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/markdave123-py/damage-detector/internal/core"
)

var palette = []color.NRGBA{
	{R: 230, G: 25, B: 75, A: 255},
	{R: 60, G: 180, B: 75, A: 255},
	{R: 0, G: 130, B: 200, A: 255},
	{R: 245, G: 130, B: 48, A: 255},
	{R: 145, G: 30, B: 180, A: 255},
	{R: 240, G: 50, B: 230, A: 255},
	{R: 0, G: 128, B: 128, A: 255},
	{R: 170, G: 110, B: 40, A: 255},
}

var (
	fontOnce  sync.Once
	labelFont *truetype.Font
)

func labelFace(imgWidth int) font.Face {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err == nil {
			labelFont = f
		}
	})
	if labelFont == nil {
		return basicfont.Face7x13
	}
	size := float64(imgWidth) / 50
	if size < 12 {
		size = 12
	}
	return truetype.NewFace(labelFont, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

func classColor(class string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(class))
	return palette[h.Sum32()%uint32(len(palette))]
}

// Annotate draws the detections onto a copy of img. img itself is not modified.
func Annotate(img image.Image, dets []core.Detection) *image.NRGBA {
	dst := imaging.Clone(img)
	if len(dets) == 0 {
		return dst
	}

	b := dst.Bounds()
	thickness := b.Dx() / 250
	if thickness < 2 {
		thickness = 2
	}

	face := labelFace(b.Dx())
	defer face.Close()

	for _, d := range dets {
		c := classColor(d.Class)
		box := image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height).Intersect(b)
		if box.Empty() {
			continue
		}
		strokeRect(dst, box, thickness, c)
		drawLabel(dst, face, box, fmt.Sprintf("%s %.2f", d.Class, d.Confidence), c)
	}
	return dst
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, t int, c color.NRGBA) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.NRGBA, face font.Face, box image.Rectangle, text string, c color.NRGBA) {
	d := &font.Drawer{Dst: dst, Src: image.White, Face: face}
	m := face.Metrics()
	textW := d.MeasureString(text).Ceil()
	textH := (m.Ascent + m.Descent).Ceil()
	pad := 3

	// label sits above the box, or inside it when the box touches the top edge
	top := box.Min.Y - textH - 2*pad
	if top < dst.Bounds().Min.Y {
		top = box.Min.Y
	}
	bg := image.Rect(box.Min.X, top, box.Min.X+textW+2*pad, top+textH+2*pad).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(c), image.Point{}, draw.Src)

	d.Dot = fixed.Point26_6{
		X: fixed.I(box.Min.X + pad),
		Y: fixed.I(top+pad) + m.Ascent,
	}
	d.DrawString(text)
}

// EncodeJPEG writes img as a JPEG at the quality used for every stored upload.
func EncodeJPEG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}
