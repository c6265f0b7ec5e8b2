package mediatypes

import (
	"path/filepath"
	"strings"
)

// DefaultSuffix is inserted before the extension of derived output names.
const DefaultSuffix = "_compressed"

// OutputPath derives the output file for input when the caller gave none.
//
// The suffix goes between the stem and the extension; animated images always
// get AnimatedImageExtension. A non-empty dir relocates the result, otherwise
// the output sits next to the input. Inputs without an extension get the
// suffix appended.
func OutputPath(input string, kind Kind, suffix, dir string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if kind == KindAnimatedImage {
		ext = AnimatedImageExtension
	}

	out := stem + suffix + ext
	if dir != "" {
		out = filepath.Join(dir, filepath.Base(out))
	}
	return out
}

// HasSuffix reports whether path looks like an output produced with suffix.
// The watcher uses it to avoid compressing its own results.
func HasSuffix(path, suffix string) bool {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), suffix)
}
