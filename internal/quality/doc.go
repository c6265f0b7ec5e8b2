// Package quality converts the 1..100 quality scale into concrete encode
// parameters.
//
// Everything here is a pure function of its inputs, so the mapping can be
// tested without any codec libraries present.
//
// # Video
//
// The target bit rate is the source bit rate scaled by q/100 (stream rate
// first, then container rate, else 2 Mb/s). Resolution and frame rate are
// kept.
//
// # Animated Images
//
// Both sides are scaled by 0.25 + 0.75*(q/100), rounded down to even and
// floored at 16 pixels. The frame rate is capped at 10 fps below q=30 and
// 15 fps below q=60; frames are decimated with a fixed stride and stamped in
// 1/100 s ticks.
//
//	p := quality.Derive(20, mediatypes.KindAnimatedImage, quality.Source{
//	    Width: 640, Height: 480, FrameRate: 24,
//	})
//	// p.Width=256 p.Height=192 p.TargetFps=10 p.Stride=2 p.PtsIncrement=10
package quality
