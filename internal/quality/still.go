package quality

// StillParameters are the lossy re-encode settings for a still image.
type StillParameters struct {
	// JPEGQuality and WebPQuality are on the library's 1..100 scale.
	JPEGQuality int
	WebPQuality int
	// PNGCompression is zlib effort 0..9; lower quality compresses harder.
	PNGCompression int
}

// DeriveStill maps q to still-image encoder settings.
func DeriveStill(q int) StillParameters {
	q = Clamp(q)
	level := (Max - q) / 11
	if level > 9 {
		level = 9
	}
	if level < 0 {
		level = 0
	}
	return StillParameters{
		JPEGQuality:    q,
		WebPQuality:    q,
		PNGCompression: level,
	}
}
