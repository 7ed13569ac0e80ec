package vision

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

// Tensor is an HxWx3 RGB image scaled to [0,1], the layout both classifiers were trained on.
// Changing the size or scaling here silently breaks inference, so it moves with the model files.
type Tensor [][][3]float32

// Decode reads an uploaded image and applies its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Preprocess resizes img to size x size and scales every channel to [0,1].
func Preprocess(img image.Image, size int) Tensor {
	g := gift.New(gift.Resize(size, size, gift.LinearResampling))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)

	b := dst.Bounds()
	out := make(Tensor, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([][3]float32, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			i := dst.PixOffset(b.Min.X+x, b.Min.Y+y)
			px := dst.Pix[i : i+4 : i+4]
			row[x] = [3]float32{
				float32(px[0]) / 255,
				float32(px[1]) / 255,
				float32(px[2]) / 255,
			}
		}
		out[y] = row
	}
	return out
}
