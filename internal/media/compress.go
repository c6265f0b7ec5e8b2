package media

import (
	"media-compressor/internal/logging"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/quality"
)

// Encoder names reported in ImageResult.
const (
	EncoderVips    = "libvips"
	EncoderImaging = "imaging"
)

// ImageResult describes a compressed still image.
type ImageResult struct {
	Width   int
	Height  int
	Encoder string
}

// CompressImage re-encodes a still image at quality q into output, keeping the
// format implied by output's extension. libvips is used when initialized;
// otherwise JPEG and PNG go through the imaging fallback and WebP fails with
// ErrCodecUnavailable.
func CompressImage(input, output string, q int) (*ImageResult, error) {
	ext := mediatypes.Ext(output)
	if mediatypes.GetKind(ext) != mediatypes.KindStillImage {
		return nil, mediatypes.Errorf(mediatypes.ErrUnsupportedMedia, "compress image", output,
			"%q is not a still image format", ext)
	}
	if _, err := GetImageDimensions(input); err != nil && !IsVipsAvailable() {
		return nil, mediatypes.NewError(mediatypes.ErrOpenFailure, "decode image", input, err)
	}

	p := quality.DeriveStill(q)

	if IsVipsAvailable() {
		res, err := compressWithVips(input, output, ext, p)
		if err != nil {
			return nil, mediatypes.NewError(mediatypes.ErrTranscodeFailure, "compress image", input, err)
		}
		return res, nil
	}

	if ext == ".webp" {
		return nil, mediatypes.Errorf(mediatypes.ErrCodecUnavailable, "compress image", output,
			"webp encoding needs libvips")
	}

	logging.Debug("libvips not available, using imaging for %s", input)
	res, err := compressWithImaging(input, output, ext, p)
	if err != nil {
		return nil, mediatypes.NewError(mediatypes.ErrTranscodeFailure, "compress image", input, err)
	}
	return res, nil
}
