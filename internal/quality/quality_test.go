package quality

import (
	"testing"

	"media-compressor/internal/mediatypes"
)

func TestScaleFactorRangeAndMonotonic(t *testing.T) {
	prev := 0.0
	for q := Min; q <= Max; q++ {
		f := ScaleFactor(q)
		if f < 0.25 || f > 1.0 {
			t.Fatalf("ScaleFactor(%d) = %v, outside [0.25, 1.0]", q, f)
		}
		if f <= prev {
			t.Fatalf("ScaleFactor(%d) = %v, not increasing from %v", q, f, prev)
		}
		prev = f
	}
	if ScaleFactor(100) != 1.0 {
		t.Errorf("ScaleFactor(100) = %v, want 1.0", ScaleFactor(100))
	}
}

func TestAnimatedDimensionsEvenAndBounded(t *testing.T) {
	sizes := [][2]int{{1, 1}, {15, 33}, {17, 17}, {99, 101}, {640, 480}, {1921, 1081}, {4000, 3}}
	for q := Min; q <= Max; q++ {
		for _, s := range sizes {
			w, h := AnimatedDimensions(q, s[0], s[1])
			if w%2 != 0 || h%2 != 0 {
				t.Fatalf("q=%d src=%v: %dx%d not even", q, s, w, h)
			}
			if w < MinAnimatedDimension || h < MinAnimatedDimension {
				t.Fatalf("q=%d src=%v: %dx%d below minimum", q, s, w, h)
			}
		}
	}
}

func TestTargetFpsCaps(t *testing.T) {
	for q := Min; q <= Max; q++ {
		for _, src := range []int{1, 5, 10, 12, 15, 24, 25, 30, 60} {
			got := TargetFps(q, src)
			switch {
			case q < 30 && got > 10:
				t.Errorf("TargetFps(%d, %d) = %d, want <= 10", q, src, got)
			case q >= 30 && q < 60 && got > 15:
				t.Errorf("TargetFps(%d, %d) = %d, want <= 15", q, src, got)
			case q >= 60 && got != src:
				t.Errorf("TargetFps(%d, %d) = %d, want source rate", q, src, got)
			}
			if got < 1 {
				t.Errorf("TargetFps(%d, %d) = %d, want >= 1", q, src, got)
			}
		}
	}
}

func TestSourceFps(t *testing.T) {
	tests := []struct {
		rate float64
		want int
	}{
		{0, DefaultFrameRate},
		{-3, DefaultFrameRate},
		{0.5, DefaultFrameRate},
		{23.976, 23},
		{30, 30},
	}
	for _, tt := range tests {
		if got := SourceFps(tt.rate); got != tt.want {
			t.Errorf("SourceFps(%v) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestStrideAndIncrement(t *testing.T) {
	tests := []struct {
		src, target int
		stride      int
		inc         int64
	}{
		{24, 10, 2, 10},
		{30, 10, 3, 10},
		{25, 15, 1, 6},
		{10, 10, 1, 10},
		{5, 10, 1, 10},
		{60, 60, 1, 1},
		{200, 150, 1, 1},
	}
	for _, tt := range tests {
		if got := Stride(tt.src, tt.target); got != tt.stride {
			t.Errorf("Stride(%d, %d) = %d, want %d", tt.src, tt.target, got, tt.stride)
		}
		if got := PtsIncrement(tt.target); got != tt.inc {
			t.Errorf("PtsIncrement(%d) = %d, want %d", tt.target, got, tt.inc)
		}
	}
}

func TestKeep(t *testing.T) {
	var kept []int64
	for n := int64(1); n <= 7; n++ {
		if Keep(n, 3) {
			kept = append(kept, n)
		}
	}
	want := []int64{1, 4, 7}
	if len(kept) != len(want) {
		t.Fatalf("kept %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("kept %v, want %v", kept, want)
		}
	}
	if !Keep(5, 1) || !Keep(5, 0) {
		t.Error("stride <= 1 must keep every frame")
	}
}

func TestDeriveAnimatedScenario(t *testing.T) {
	p := Derive(20, mediatypes.KindAnimatedImage, Source{Width: 640, Height: 480, FrameRate: 24})

	if p.Width != 256 || p.Height != 192 {
		t.Errorf("dimensions = %dx%d, want 256x192", p.Width, p.Height)
	}
	if p.TargetFps != 10 || p.SourceFps != 24 {
		t.Errorf("fps = %d from %d, want 10 from 24", p.TargetFps, p.SourceFps)
	}
	if p.Stride != 2 {
		t.Errorf("Stride = %d, want 2", p.Stride)
	}
	if p.PtsIncrement != 10 {
		t.Errorf("PtsIncrement = %d, want 10", p.PtsIncrement)
	}
}

func TestDeriveVideo(t *testing.T) {
	tests := []struct {
		name string
		q    int
		src  Source
		want int64
	}{
		{
			name: "half of stream bit rate",
			q:    50,
			src:  Source{Width: 1920, Height: 1080, BitRate: 8_000_000, FrameRate: 30},
			want: 4_000_000,
		},
		{
			name: "container bit rate fallback",
			q:    25,
			src:  Source{Width: 1280, Height: 720, ContainerBitRate: 4_000_000},
			want: 1_000_000,
		},
		{
			name: "unknown bit rate",
			q:    80,
			src:  Source{Width: 640, Height: 360},
			want: DefaultVideoBitRate,
		},
		{
			name: "quality clamped above 100",
			q:    250,
			src:  Source{BitRate: 1_000_000},
			want: 1_000_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Derive(tt.q, mediatypes.KindVideo, tt.src)
			if p.BitRate != tt.want {
				t.Errorf("BitRate = %d, want %d", p.BitRate, tt.want)
			}
			if p.Width != tt.src.Width || p.Height != tt.src.Height {
				t.Errorf("resolution changed to %dx%d", p.Width, p.Height)
			}
			if tt.src.FrameRate > 0 && p.FrameRate != tt.src.FrameRate {
				t.Errorf("FrameRate = %v, want %v", p.FrameRate, tt.src.FrameRate)
			}
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	src := Source{Width: 333, Height: 777, BitRate: 1234567, FrameRate: 29.97}
	for _, kind := range []mediatypes.Kind{mediatypes.KindVideo, mediatypes.KindAnimatedImage} {
		for q := Min; q <= Max; q++ {
			if Derive(q, kind, src) != Derive(q, kind, src) {
				t.Fatalf("Derive(%d, %v) not deterministic", q, kind)
			}
		}
	}
}

func TestClampAndValid(t *testing.T) {
	if Clamp(0) != 1 || Clamp(101) != 100 || Clamp(42) != 42 {
		t.Error("Clamp out of range")
	}
	if Valid(0) || Valid(101) || !Valid(1) || !Valid(100) {
		t.Error("Valid boundaries wrong")
	}
}

func TestDeriveStill(t *testing.T) {
	tests := []struct {
		q       int
		png     int
		quality int
	}{
		{100, 0, 100},
		{90, 0, 90},
		{50, 4, 50},
		{1, 9, 1},
		{0, 9, 1},
	}
	for _, tt := range tests {
		p := DeriveStill(tt.q)
		if p.PNGCompression != tt.png {
			t.Errorf("DeriveStill(%d).PNGCompression = %d, want %d", tt.q, p.PNGCompression, tt.png)
		}
		if p.JPEGQuality != tt.quality || p.WebPQuality != tt.quality {
			t.Errorf("DeriveStill(%d) quality = %d/%d, want %d", tt.q, p.JPEGQuality, p.WebPQuality, tt.quality)
		}
	}
}
