package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind classifies an input file by how it gets compressed.
type Kind string

const (
	// KindVideo is a generic video container re-encoded with video and optional audio.
	KindVideo Kind = "video"
	// KindAnimatedImage is an animated-image container (GIF) re-encoded frame by frame.
	KindAnimatedImage Kind = "animated_image"
	// KindStillImage is a single picture re-encoded by the image library.
	KindStillImage Kind = "still_image"
	// KindUnsupported is any extension the compressor does not recognize.
	KindUnsupported Kind = "unsupported"
)

// AllKinds lists every kind, in display order.
var AllKinds = []Kind{KindVideo, KindAnimatedImage, KindStillImage, KindUnsupported}

// AnimatedImageExtension is the extension forced onto animated-image outputs.
const AnimatedImageExtension = ".gif"

// StillImageExtensions maps file extensions to whether they are still image formats.
var StillImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// AnimatedImageExtensions maps file extensions to whether they are animated image formats.
var AnimatedImageExtensions = map[string]bool{
	".gif": true,
}

// VideoExtensions maps file extensions to whether they are video container formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".flv":  true,
	".m4v":  true,
}

// GetKind returns the Kind for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".gif").
// Returns KindUnsupported if the extension is not recognized.
func GetKind(ext string) Kind {
	switch {
	case AnimatedImageExtensions[ext]:
		return KindAnimatedImage
	case StillImageExtensions[ext]:
		return KindStillImage
	case VideoExtensions[ext]:
		return KindVideo
	}
	return KindUnsupported
}

// Classify returns the Kind of the file at path based on its extension.
func Classify(path string) Kind {
	return GetKind(Ext(path))
}

// Ext returns the lowercased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsMediaFile returns true if the extension represents a compressible media file.
func IsMediaFile(ext string) bool {
	return GetKind(ext) != KindUnsupported
}

// UsesPipeline reports whether the kind goes through the transcoding pipeline
// rather than the still-image encoder.
func (k Kind) UsesPipeline() bool {
	return k == KindVideo || k == KindAnimatedImage
}

func (k Kind) String() string {
	return string(k)
}
