package yolo

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Preprocess resizes img to size x size and writes it into dst as planar RGB
// scaled to [0,1]. dst must hold 3*size*size values.
func Preprocess(img image.Image, size int, dst []float32) error {
	channelSize := size * size
	if len(dst) != 3*channelSize {
		return fmt.Errorf("input buffer holds %d values, want %d", len(dst), 3*channelSize)
	}

	resized := imaging.Resize(img, size, size, imaging.Linear)
	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		offset := y * size
		for x := 0; x < size; x++ {
			i := offset + x
			dst[i] = float32(row[x*4]) / 255.0
			dst[channelSize+i] = float32(row[x*4+1]) / 255.0
			dst[channelSize*2+i] = float32(row[x*4+2]) / 255.0
		}
	}
	return nil
}

// Anchors is the number of predictions YOLOv8 makes for a square input of
// the given size (strides 8, 16 and 32).
func Anchors(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}
