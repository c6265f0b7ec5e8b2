// Package media compresses still images (JPEG, PNG, WebP).
//
// Compression is a single lossy re-encode through libvips (govips), with
// disintegration/imaging as a pure-Go fallback for JPEG and PNG when libvips
// has not been initialized. Quality maps to JPEG and WebP quality directly
// and to PNG zlib effort inversely.
//
// InitVips and ShutdownVips bracket the process lifetime; libvips log output
// is forwarded to the application logger at the matching level.
package media
