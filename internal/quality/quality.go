package quality

import (
	"math"

	"media-compressor/internal/mediatypes"
)

const (
	// Min and Max bound the caller-facing quality scale.
	Min = 1
	Max = 100

	// DefaultVideoBitRate is used when neither the stream nor the container
	// reports a bit rate.
	DefaultVideoBitRate int64 = 2_000_000

	// DefaultFrameRate is assumed when the container gives no usable rate.
	DefaultFrameRate = 25

	// AnimatedTicksPerSecond is the native timestamp unit of the animated-image
	// container (1/100 s).
	AnimatedTicksPerSecond = 100

	// MinAnimatedDimension is the smallest width or height of an animated-image output.
	MinAnimatedDimension = 16

	// AudioBitRate is the fixed bit rate of re-encoded audio.
	AudioBitRate int64 = 128_000

	lowQualityThreshold = 30
	lowQualityFpsCap    = 10
	midQualityThreshold = 60
	midQualityFpsCap    = 15
)

// Source describes the decoded input the parameters are derived from.
type Source struct {
	Width  int
	Height int
	// BitRate is the video stream bit rate, 0 when unknown.
	BitRate int64
	// ContainerBitRate is the overall bit rate, used when BitRate is unknown.
	ContainerBitRate int64
	// FrameRate is the estimated frame rate, 0 when unknown.
	FrameRate float64
}

// Parameters are the concrete encode settings for one job.
type Parameters struct {
	Kind    mediatypes.Kind
	Quality int

	Width  int
	Height int

	// BitRate is the target video bit rate (video only).
	BitRate int64
	// FrameRate is the output frame rate in frames per second.
	FrameRate float64

	// SourceFps is the integral source rate used for decimation (animated only).
	SourceFps int
	// TargetFps is the capped output rate (animated only).
	TargetFps int
	// Stride keeps every Stride-th decoded frame (animated only, >= 1).
	Stride int
	// PtsIncrement is the per-frame timestamp step in 1/100 s ticks (animated only, >= 1).
	PtsIncrement int64
}

// Clamp forces q into [Min, Max].
func Clamp(q int) int {
	if q < Min {
		return Min
	}
	if q > Max {
		return Max
	}
	return q
}

// Valid reports whether q is on the caller-facing scale.
func Valid(q int) bool {
	return q >= Min && q <= Max
}

// Derive maps a quality level to encode parameters for the given media kind.
// It is pure: the same inputs always produce the same parameters.
func Derive(q int, kind mediatypes.Kind, src Source) Parameters {
	q = Clamp(q)
	switch kind {
	case mediatypes.KindAnimatedImage:
		return deriveAnimated(q, src)
	default:
		return deriveVideo(q, kind, src)
	}
}

func deriveVideo(q int, kind mediatypes.Kind, src Source) Parameters {
	fps := src.FrameRate
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return Parameters{
		Kind:      kind,
		Quality:   q,
		Width:     src.Width,
		Height:    src.Height,
		BitRate:   VideoBitRate(q, src),
		FrameRate: fps,
	}
}

// VideoBitRate scales the known source bit rate by q/100, falling back to
// DefaultVideoBitRate.
func VideoBitRate(q int, src Source) int64 {
	base := src.BitRate
	if base <= 0 {
		base = src.ContainerBitRate
	}
	if base <= 0 {
		return DefaultVideoBitRate
	}
	rate := int64(float64(base) * (float64(Clamp(q)) / 100.0))
	if rate < 1 {
		rate = 1
	}
	return rate
}

func deriveAnimated(q int, src Source) Parameters {
	w, h := AnimatedDimensions(q, src.Width, src.Height)
	srcFps := SourceFps(src.FrameRate)
	target := TargetFps(q, srcFps)

	return Parameters{
		Kind:         mediatypes.KindAnimatedImage,
		Quality:      q,
		Width:        w,
		Height:       h,
		FrameRate:    float64(target),
		SourceFps:    srcFps,
		TargetFps:    target,
		Stride:       Stride(srcFps, target),
		PtsIncrement: PtsIncrement(target),
	}
}

// ScaleFactor returns 0.25 + 0.75*(q/100), in [0.25, 1.0].
func ScaleFactor(q int) float64 {
	return 0.25 + (float64(Clamp(q))/100.0)*0.75
}

// AnimatedDimensions scales width and height by ScaleFactor, rounds each down
// to an even number and floors it at MinAnimatedDimension.
func AnimatedDimensions(q, width, height int) (int, int) {
	f := ScaleFactor(q)
	return evenFloor(int(float64(width) * f)), evenFloor(int(float64(height) * f))
}

func evenFloor(v int) int {
	v = (v / 2) * 2
	if v < MinAnimatedDimension {
		return MinAnimatedDimension
	}
	return v
}

// SourceFps truncates an estimated rate to whole frames, defaulting to
// DefaultFrameRate below 1 fps.
func SourceFps(rate float64) int {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return DefaultFrameRate
	}
	fps := int(rate)
	if fps < 1 {
		return DefaultFrameRate
	}
	return fps
}

// TargetFps caps the source rate at 10 fps below quality 30 and at 15 fps
// below quality 60. The result is at least 1.
func TargetFps(q, srcFps int) int {
	target := srcFps
	switch {
	case q < lowQualityThreshold && target > lowQualityFpsCap:
		target = lowQualityFpsCap
	case q < midQualityThreshold && target > midQualityFpsCap:
		target = midQualityFpsCap
	}
	if target < 1 {
		target = 1
	}
	return target
}

// Stride is floor(srcFps/targetFps), at least 1.
func Stride(srcFps, targetFps int) int {
	if targetFps < 1 || srcFps <= targetFps {
		return 1
	}
	return srcFps / targetFps
}

// PtsIncrement is floor(100/targetFps), at least 1.
func PtsIncrement(targetFps int) int64 {
	if targetFps < 1 {
		targetFps = 1
	}
	inc := int64(AnimatedTicksPerSecond / targetFps)
	if inc < 1 {
		inc = 1
	}
	return inc
}

// Keep reports whether the n-th decoded frame (1-based) survives decimation.
func Keep(n int64, stride int) bool {
	if stride <= 1 {
		return true
	}
	return (n-1)%int64(stride) == 0
}
