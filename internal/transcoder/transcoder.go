package transcoder

import (
	"context"
	"time"

	"media-compressor/internal/mediatypes"
	"media-compressor/internal/resource"

	"github.com/asticode/go-astiav"
)

// Request is one job handed to the pipeline.
type Request struct {
	Input   string
	Output  string
	Kind    mediatypes.Kind
	Quality int
	// JobID tags log lines; optional.
	JobID string
}

// Stats summarizes a finished transcode.
type Stats struct {
	Input StreamDescriptor

	Width   int
	Height  int
	BitRate int64

	VideoEncoder string
	AudioEncoder string
	// AudioDropped is set when the input had audio that could not be carried over.
	AudioDropped bool
	// Scaled is set when pictures went through the scaler.
	Scaled bool

	FramesDecoded int64
	FramesDropped int64
	FramesEncoded int64
	VideoPackets  int64
	AudioFrames   int64
	AudioPackets  int64

	Elapsed time.Duration
}

// Transcoder runs the decode, resample, encode and mux pipeline for video and
// animated-image jobs. It holds no per-job state and may be shared.
type Transcoder struct {
	// beforeStep, when set, runs before each open step; a non-nil error
	// makes that step fail.
	beforeStep func(step string) error
	// released, when set, receives the job's scope after it was closed.
	released func(*resource.Scope)
}

// New creates a Transcoder and routes libav logging into the application log.
func New() *Transcoder {
	InitLogging()
	return &Transcoder{}
}

// Transcode compresses req.Input into req.Output. Every native handle opened
// for the job is released before it returns, whatever the outcome. Errors are
// *mediatypes.Error values.
func (t *Transcoder) Transcode(ctx context.Context, req Request) (stats *Stats, err error) {
	if !req.Kind.UsesPipeline() {
		return nil, mediatypes.Errorf(mediatypes.ErrUnsupportedMedia, "transcode", req.Input,
			"%s is not handled by the pipeline", req.Kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, mediatypes.NewError(mediatypes.ErrCanceled, "transcode", req.Input, err)
	}

	start := time.Now()
	s := newSession(req, t.beforeStep)
	defer func() {
		if cerr := s.scope.Close(); cerr != nil {
			if err == nil {
				stats = nil
				err = mediatypes.NewError(mediatypes.ErrIOFailure, "release", req.Output, cerr)
			} else {
				s.log.Debug("Release after failure: %v", cerr)
			}
		}
		if t.released != nil {
			t.released(s.scope)
		}
	}()

	if err := s.open(); err != nil {
		return nil, err
	}
	s.log.Debug("Opened %s: %dx%d -> %dx%d with %s, %d handles",
		req.Input, s.video.codec.Width(), s.video.codec.Height(),
		s.params.Width, s.params.Height, s.videoOut.name, s.scope.Live())

	if err := s.run(ctx); err != nil {
		return nil, err
	}

	s.stats.Elapsed = time.Since(start)
	result := s.stats
	return &result, nil
}

// run drives the decode loop and then finalizes the output.
func (s *session) run(ctx context.Context) error {
	d := newDemuxer(s.input, s.readPacket, s.req.Input, s.log)
	d.route(s.video, s.onVideoFrame)
	if s.audioOut != nil {
		d.route(s.audio, s.onAudioFrame)
	}
	if err := d.run(ctx); err != nil {
		return err
	}
	return s.finish()
}

func (s *session) onVideoFrame(f *astiav.Frame) error {
	s.stats.FramesDecoded++
	if !s.decimate.keep() {
		s.stats.FramesDropped++
		return nil
	}
	out, err := s.picture.transform(f)
	if err != nil {
		return mediatypes.NewError(mediatypes.ErrTranscodeFailure, "resample", s.req.Input, err)
	}
	if err := s.videoOut.encode(out); err != nil {
		return err
	}
	s.stats.FramesEncoded++
	return nil
}

// onAudioFrame encodes audio until the first failure; after that the job
// carries on without further audio.
func (s *session) onAudioFrame(f *astiav.Frame) error {
	if s.audioFailed {
		return nil
	}
	return s.audioErr(s.audioIn.push(f, s.encodeAudio))
}

func (s *session) encodeAudio(f *astiav.Frame) error {
	if err := s.audioOut.encode(f); err != nil {
		return err
	}
	s.stats.AudioFrames++
	return nil
}

// audioErr fails the job on write errors and otherwise stops the audio path.
func (s *session) audioErr(err error) error {
	if err == nil {
		return nil
	}
	if mediatypes.KindOf(err) == mediatypes.ErrIOFailure {
		return err
	}
	s.log.Warn("Audio dropped mid-stream for %s: %v", s.req.Input, err)
	s.audioFailed = true
	s.stats.AudioDropped = true
	return nil
}

// finish flushes buffered audio and every encoder, then writes the trailer and
// closes the sink. No decoding happens after this point.
func (s *session) finish() error {
	if s.audioOut != nil && !s.audioFailed {
		if err := s.audioErr(s.audioIn.flush(s.encodeAudio)); err != nil {
			return err
		}
	}

	s.stats.Scaled = s.picture.Active()
	if err := s.videoOut.flush(); err != nil {
		return err
	}
	if s.audioOut != nil {
		if err := s.audioErr(s.audioOut.flush()); err != nil {
			return err
		}
		s.stats.AudioPackets = s.audioOut.packets
	}
	s.stats.VideoPackets = s.videoOut.packets

	if err := s.output.WriteTrailer(); err != nil {
		return mediatypes.NewError(mediatypes.ErrIOFailure, "write trailer", s.req.Output, err)
	}
	if s.out != nil {
		if err := s.out.Close(); err != nil {
			return mediatypes.NewError(mediatypes.ErrIOFailure, "close output", s.req.Output, err)
		}
	}
	return nil
}
