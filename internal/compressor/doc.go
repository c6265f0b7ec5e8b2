// Package compressor connects the job runner to the encoders. Video and
// animated-image jobs go through the transcoder pipeline, still images
// through the media package; anything else fails as unsupported.
package compressor
