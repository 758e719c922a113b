package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/jpeg"
	_ "image/png"
)

// XRayDataset serves labeled chest X-ray images from a folder as flat
// grayscale feature vectors. Images are decoded on demand: resized to a
// square edge with nearest-neighbor sampling, converted to luminance, and
// scaled to [0,1].
type XRayDataset struct {
	folder    string
	samples   []Sample
	imageSize int
}

// NewXRayDataset creates a dataset over samples whose images live in folder.
func NewXRayDataset(folder string, samples []Sample, imageSize int) *XRayDataset {
	return &XRayDataset{
		folder:    folder,
		samples:   samples,
		imageSize: imageSize,
	}
}

// Len returns the number of samples.
func (ds *XRayDataset) Len() int {
	return len(ds.samples)
}

// Get decodes sample idx into a feature vector of length imageSize*imageSize.
func (ds *XRayDataset) Get(idx int) ([]float32, int32, error) {
	if idx < 0 || idx >= len(ds.samples) {
		return nil, 0, fmt.Errorf("sample index %d out of range [0, %d)", idx, len(ds.samples))
	}
	sample := ds.samples[idx]

	path := filepath.Join(ds.folder, sample.ImageID)
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open image %s: %v", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode image %s: %v", path, err)
	}

	return flattenGray(img, ds.imageSize), sample.Label, nil
}

// flattenGray resizes img to size×size and returns its luminance channel in
// row-major order, scaled to [0,1].
func flattenGray(img image.Image, size int) []float32 {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	features := make([]float32, size*size)
	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*srcH/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*srcW/size
			r, g, b, _ := img.At(srcX, srcY).RGBA()

			// ITU-R BT.601 luma, on 16-bit channel values.
			gray := 0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)
			features[y*size+x] = gray / 65535.0
		}
	}
	return features
}
