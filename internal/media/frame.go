package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // screen frames may arrive as PNG

	"golang.org/x/image/draw"
)

// Screen snapshot encoding parameters.
const (
	SnapshotWidth   = 320
	SnapshotQuality = 60
)

// DecodeFrame decodes a PNG or JPEG video frame.
func DecodeFrame(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// ScaleToWidth resizes img to the given width preserving aspect ratio.
func ScaleToWidth(img image.Image, width int) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("frame has no pixels")
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst, nil
}

// EncodeSnapshot downscales a frame to SnapshotWidth and JPEG-encodes it.
func EncodeSnapshot(img image.Image) (Blob, error) {
	scaled, err := ScaleToWidth(img, SnapshotWidth)
	if err != nil {
		return Blob{}, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: SnapshotQuality}); err != nil {
		return Blob{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return Blob{MIMEType: MIMEImageJPEG, Data: buf.Bytes()}, nil
}
