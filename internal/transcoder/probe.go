package transcoder

import (
	"context"
	"fmt"
	"time"

	"media-compressor/internal/mediatypes"
	"media-compressor/internal/resource"

	"github.com/asticode/go-astiav"
)

// StreamKind is the media type of a selected stream.
type StreamKind string

const (
	StreamVideo StreamKind = "video"
	StreamAudio StreamKind = "audio"
	StreamOther StreamKind = "other"
)

// StreamDescriptor describes one input stream. It is derived once when the
// input is opened and never changes afterwards.
type StreamDescriptor struct {
	Index         int
	Kind          StreamKind
	Codec         string
	Width         int
	Height        int
	PixelFormat   string
	SampleFormat  string
	FrameRate     float64
	SampleRate    int
	ChannelLayout string
	Channels      int
	BitRate       int64
}

func describe(fc *astiav.FormatContext, s *astiav.Stream) StreamDescriptor {
	p := s.CodecParameters()
	d := StreamDescriptor{
		Index:   s.Index(),
		Codec:   p.CodecID().Name(),
		BitRate: p.BitRate(),
	}
	switch p.MediaType() {
	case astiav.MediaTypeVideo:
		d.Kind = StreamVideo
		d.Width = p.Width()
		d.Height = p.Height()
		d.PixelFormat = p.PixelFormat().String()
		if r := fc.GuessFrameRate(s, nil); r.Num() > 0 && r.Den() > 0 {
			d.FrameRate = r.Float64()
		}
	case astiav.MediaTypeAudio:
		d.Kind = StreamAudio
		d.SampleFormat = p.SampleFormat().String()
		d.SampleRate = p.SampleRate()
		d.ChannelLayout = p.ChannelLayout().String()
		d.Channels = p.ChannelLayout().Channels()
	default:
		d.Kind = StreamOther
	}
	return d
}

// Report is what Inspect learned about a media file.
type Report struct {
	Path     string
	Format   string
	Duration time.Duration
	BitRate  int64
	Streams  []StreamDescriptor
	// Packets counts packets per stream index.
	Packets map[int]int
	// Monotonic is false if any stream's decode timestamps went backwards.
	Monotonic bool
	// Violations describes each backwards step found, capped at a few entries.
	Violations []string
}

// Video returns the first video stream, if any.
func (r *Report) Video() (StreamDescriptor, bool) {
	return r.first(StreamVideo)
}

// Audio returns the first audio stream, if any.
func (r *Report) Audio() (StreamDescriptor, bool) {
	return r.first(StreamAudio)
}

func (r *Report) first(kind StreamKind) (StreamDescriptor, bool) {
	for _, s := range r.Streams {
		if s.Kind == kind {
			return s, true
		}
	}
	return StreamDescriptor{}, false
}

const maxViolations = 5

// Inspect opens path, describes its streams and reads every packet to check
// that decode timestamps never decrease within a stream. It is used to verify
// outputs after a job.
func Inspect(ctx context.Context, path string) (*Report, error) {
	scope := resource.NewScope("inspect " + path)
	defer func() {
		_ = scope.Close()
	}()

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, stepError(StepOpenInput, path, errNoHandle)
	}
	scope.Track("input format", fc.CloseInput)

	if err := fc.OpenInput(path, nil, nil); err != nil {
		return nil, stepError(StepOpenInput, path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		return nil, stepError(StepFindStreamInfo, path, err)
	}

	r := &Report{
		Path:      path,
		BitRate:   fc.BitRate(),
		Packets:   make(map[int]int),
		Monotonic: true,
	}
	if ifmt := fc.InputFormat(); ifmt != nil {
		r.Format = ifmt.Name()
	}
	if d := fc.Duration(); d > 0 {
		r.Duration = time.Duration(d) * time.Microsecond
	}
	for _, s := range fc.Streams() {
		r.Streams = append(r.Streams, describe(fc, s))
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, stepError(StepOpenInput, path, errNoHandle)
	}
	scope.Track("packet", pkt.Free)

	last := make(map[int]int64)
	for {
		if err := ctx.Err(); err != nil {
			return nil, mediatypes.NewError(mediatypes.ErrCanceled, "inspect", path, err)
		}
		if err := fc.ReadFrame(pkt); err != nil {
			if endOfInput(err) {
				break
			}
			return nil, mediatypes.NewError(mediatypes.ErrIOFailure, "read packet", path, err)
		}

		idx := pkt.StreamIndex()
		r.Packets[idx]++
		if dts := pkt.Dts(); dts != astiav.NoPtsValue {
			if prev, ok := last[idx]; ok && dts < prev {
				r.Monotonic = false
				if len(r.Violations) < maxViolations {
					r.Violations = append(r.Violations,
						fmt.Sprintf("stream %d: dts %d after %d", idx, dts, prev))
				}
			}
			last[idx] = dts
		}
		pkt.Unref()
	}

	return r, nil
}
