// Package mediatypes provides shared type definitions for media classification,
// output naming and job failure categories across media-compressor.
//
// This package exists as a dependency-free foundation that can be imported by
// every other package without creating import cycles.
//
// # Kinds
//
// Input files are classified by extension:
//
//	mediatypes.KindVideo         // .mp4, .webm, .mkv, .avi, .mov, .flv, .m4v
//	mediatypes.KindAnimatedImage // .gif
//	mediatypes.KindStillImage    // .jpg, .jpeg, .png, .webp
//	mediatypes.KindUnsupported   // anything else
//
// Use Classify on a path, or GetKind on a lowercase extension:
//
//	switch mediatypes.Classify(path) {
//	case mediatypes.KindVideo, mediatypes.KindAnimatedImage:
//	    // transcoding pipeline
//	case mediatypes.KindStillImage:
//	    // image library re-encode
//	}
//
// # Output Names
//
// OutputPath derives "<stem>_compressed<ext>" next to the input (or inside an
// output directory). Animated images always end in ".gif".
//
// # Errors
//
// Every job failure is an *Error carrying an ErrorKind. KindOf recovers the
// kind from any wrapped error so callers can report structured results.
package mediatypes
