// Command media-compressor shrinks videos, animated GIFs and still images.
//
// Usage:
//
//	media-compressor [flags] FILE...
//	media-compressor [flags] -watch DIR
//
// Each file is classified by extension. Videos are re-encoded at a bit rate
// proportional to the quality setting, GIFs are scaled and have frames
// dropped, and JPEG, PNG and WebP images are re-encoded lossily. Outputs are
// written next to their inputs as NAME_compressed.EXT unless -o is given.
//
// Files are processed in batches of at most -max-files, one job at a time
// unless -workers says otherwise. A failed file never stops the batch; the
// exit status is 1 if any file failed.
package main
