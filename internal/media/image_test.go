package media

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"media-compressor/internal/mediatypes"
	"media-compressor/internal/quality"
)

// createTestImage writes a gradient image so lossy re-encodes have detail to drop.
func createTestImage(t *testing.T, path string, width, height int, format string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: uint8((x ^ y) & 0xff),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	case "png":
		err = (&png.Encoder{CompressionLevel: png.NoCompression}).Encode(f, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}

	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}

func TestGetImageDimensions(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name   string
		width  int
		height int
		format string
	}{
		{name: "Small JPEG", width: 100, height: 100, format: "jpeg"},
		{name: "Small PNG", width: 200, height: 150, format: "png"},
		{name: "Wide image", width: 640, height: 360, format: "jpeg"},
		{name: "Tall image", width: 360, height: 640, format: "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename := filepath.Join(tmpDir, tt.name+"."+tt.format)
			createTestImage(t, filename, tt.width, tt.height, tt.format)

			dims, err := GetImageDimensions(filename)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if dims.Width != tt.width || dims.Height != tt.height {
				t.Errorf("dimensions = %dx%d, want %dx%d", dims.Width, dims.Height, tt.width, tt.height)
			}
		})
	}
}

func TestGetImageDimensionsErrors(t *testing.T) {
	tmpDir := t.TempDir()
	notImage := filepath.Join(tmpDir, "not-image.jpg")
	if err := os.WriteFile(notImage, []byte("This is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/nonexistent/path/to/image.jpg", notImage} {
		if _, err := GetImageDimensions(path); err == nil {
			t.Errorf("GetImageDimensions(%q) expected error", path)
		}
	}
}

func TestPngLevel(t *testing.T) {
	tests := []struct {
		level int
		want  png.CompressionLevel
	}{
		{0, png.NoCompression},
		{1, png.BestSpeed},
		{3, png.BestSpeed},
		{5, png.DefaultCompression},
		{7, png.BestCompression},
		{9, png.BestCompression},
	}
	for _, tt := range tests {
		if got := pngLevel(tt.level); got != tt.want {
			t.Errorf("pngLevel(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestCompressWithImagingJPEG(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "photo.jpg")
	createTestImage(t, input, 400, 300, "jpeg")

	low := filepath.Join(tmpDir, "low.jpg")
	high := filepath.Join(tmpDir, "high.jpg")

	res, err := compressWithImaging(input, low, ".jpg", quality.DeriveStill(10))
	if err != nil {
		t.Fatalf("compress q=10: %v", err)
	}
	if res.Width != 400 || res.Height != 300 {
		t.Errorf("dimensions = %dx%d, want 400x300", res.Width, res.Height)
	}
	if res.Encoder != EncoderImaging {
		t.Errorf("Encoder = %q, want %q", res.Encoder, EncoderImaging)
	}
	if _, err := compressWithImaging(input, high, ".jpg", quality.DeriveStill(90)); err != nil {
		t.Fatalf("compress q=90: %v", err)
	}

	if fileSize(t, low) >= fileSize(t, high) {
		t.Errorf("q=10 output (%d bytes) should be smaller than q=90 output (%d bytes)",
			fileSize(t, low), fileSize(t, high))
	}
	if fileSize(t, low) >= fileSize(t, input) {
		t.Error("q=10 output should be smaller than the q=95 source")
	}
}

func TestCompressWithImagingPNG(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "shot.png")
	createTestImage(t, input, 300, 200, "png")

	output := filepath.Join(tmpDir, "shot_compressed.png")
	if _, err := compressWithImaging(input, output, ".png", quality.DeriveStill(1)); err != nil {
		t.Fatalf("compress: %v", err)
	}

	dims, err := GetImageDimensions(output)
	if err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("dimensions = %dx%d, want 300x200", dims.Width, dims.Height)
	}
	if fileSize(t, output) >= fileSize(t, input) {
		t.Error("best-compression output should be smaller than the uncompressed source")
	}
}

func TestCompressWithImagingRejectsWebP(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "a.png")
	createTestImage(t, input, 32, 32, "png")

	if _, err := compressWithImaging(input, filepath.Join(tmpDir, "a.webp"), ".webp", quality.DeriveStill(50)); err == nil {
		t.Error("expected imaging to refuse webp output")
	}
}

func TestCompressImageErrors(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "a.png")
	createTestImage(t, input, 32, 32, "png")

	_, err := CompressImage(input, filepath.Join(tmpDir, "a.mp4"), 50)
	if kind := mediatypes.KindOf(err); kind != mediatypes.ErrUnsupportedMedia {
		t.Errorf("non-image output: kind = %v, want %v", kind, mediatypes.ErrUnsupportedMedia)
	}

	if IsVipsAvailable() {
		return
	}

	_, err = CompressImage(input, filepath.Join(tmpDir, "a.webp"), 50)
	if kind := mediatypes.KindOf(err); kind != mediatypes.ErrCodecUnavailable {
		t.Errorf("webp without libvips: kind = %v, want %v", kind, mediatypes.ErrCodecUnavailable)
	}

	_, err = CompressImage(filepath.Join(tmpDir, "missing.png"), filepath.Join(tmpDir, "out.png"), 50)
	var mediaErr *mediatypes.Error
	if !errors.As(err, &mediaErr) || mediaErr.Kind != mediatypes.ErrOpenFailure {
		t.Errorf("missing input: err = %v, want %v", err, mediatypes.ErrOpenFailure)
	}
}
