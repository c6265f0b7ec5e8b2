package media

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"media-compressor/internal/logging"
	"media-compressor/internal/quality"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// pngLevel maps a zlib effort 0..9 onto the levels image/png offers.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// compressWithImaging is the pure-Go path used when libvips is unavailable.
// It can write JPEG and PNG only.
func compressWithImaging(input, output, ext string, p quality.StillParameters) (*ImageResult, error) {
	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	var opts []imaging.EncodeOption
	switch ext {
	case ".jpg", ".jpeg":
		opts = append(opts, imaging.JPEGQuality(p.JPEGQuality))
	case ".png":
		opts = append(opts, imaging.PNGCompressionLevel(pngLevel(p.PNGCompression)))
	default:
		return nil, fmt.Errorf("imaging cannot encode %s", ext)
	}

	if err := imaging.Save(img, output, opts...); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	b := img.Bounds()
	return &ImageResult{Width: b.Dx(), Height: b.Dy(), Encoder: EncoderImaging}, nil
}
