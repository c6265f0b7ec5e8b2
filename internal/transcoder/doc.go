// Package transcoder re-encodes video and animated-image files in process
// using the FFmpeg libraries (libavformat, libavcodec, libswscale,
// libswresample) through go-astiav.
//
// A job runs through four stages:
//   - Decode: packets are read in container order, routed to the decoder of
//     their stream and drained frame by frame; decoders are flushed at the end
//   - Resample: pictures are scaled to the encoder's size and pixel format
//     (identity when they already match); animated-image jobs drop frames by
//     a fixed stride first; audio is converted to the encoder's sample format
//     and regrouped into encoder-sized frames
//   - Encode: each frame gets the next timestamp of its stream, packets are
//     rescaled to the stream time base and written through the interleaving
//     muxer; encoders are flushed before the trailer
//   - Release: every native handle of the job is registered with a
//     resource.Scope and released in reverse order when Transcode returns
//
// Encoder choice follows the output container: GIF for animated images, VP9
// or VP8 with Opus or Vorbis for WebM, H.264 (MPEG-4 Part 2 as a fallback)
// with AAC for everything else.
//
// Inspect reads a finished file back and reports its streams, packet counts
// and whether decode timestamps stayed monotonic.
package transcoder
