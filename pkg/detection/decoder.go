package detection

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Decoder decodes /capture bodies with OpenCV and turns them upright.
// The turret camera is mounted upside down, so every frame is rotated 180°.
// It implements device.FrameDecoder.
type Decoder struct{}

// NewDecoder returns a frame decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes any raster format OpenCV understands and rotates it 180°.
func (Decoder) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode image: empty body")
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("decode image: empty image")
	}

	upright := gocv.NewMat()
	defer upright.Close()
	gocv.Rotate(img, &upright, gocv.Rotate180Clockwise)

	out, err := upright.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	return out, nil
}

// WriteImage saves img to path. The format follows the file extension.
func WriteImage(path string, img image.Image) error {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert image: %w", err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	if !gocv.IMWrite(path, bgr) {
		return fmt.Errorf("write image %s: unsupported format or path", path)
	}
	return nil
}
