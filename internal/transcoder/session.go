package transcoder

import (
	"errors"
	"fmt"
	"strings"

	"media-compressor/internal/logging"
	"media-compressor/internal/mediatypes"
	"media-compressor/internal/quality"
	"media-compressor/internal/resource"

	"github.com/asticode/go-astiav"
)

// inputStream is one selected input stream with its decoder.
type inputStream struct {
	stream *astiav.Stream
	codec  *astiav.CodecContext
	frame  *astiav.Frame
	desc   StreamDescriptor
}

// sink wraps the output IO context so it can be closed explicitly after the
// trailer and again, harmlessly, when the scope unwinds.
type sink struct {
	pb     *astiav.IOContext
	closed bool
}

func (s *sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.pb.Close()
}

// session holds every native handle of one job. All of them are registered
// with scope as they are acquired.
type session struct {
	req   Request
	scope *resource.Scope
	log   logging.Scoped
	hook  func(step string) error

	input  *astiav.FormatContext
	video  *inputStream
	audio  *inputStream
	params quality.Parameters

	output      *astiav.FormatContext
	videoStream *astiav.Stream
	out         *sink

	videoOut *encoder
	audioOut *encoder
	audioIn  *audioResampler
	picture  *videoResampler
	decimate decimator

	readPacket   *astiav.Packet
	encodePacket *astiav.Packet

	audioFailed bool
	stats       Stats
}

func newSession(req Request, hook func(string) error) *session {
	tag := req.JobID
	if tag == "" {
		tag = "transcode"
	}
	return &session{
		req:   req,
		scope: resource.NewScope(req.Input),
		log:   logging.For(tag),
		hook:  hook,
	}
}

func (s *session) pathFor(step string) string {
	switch step {
	case StepAllocOutput, StepCreateStream, StepOpenEncoder, StepOpenSink, StepWriteHeader:
		return s.req.Output
	}
	return s.req.Input
}

// step runs one named open step. Typed errors pass through; anything else is
// classified by the step that produced it.
func (s *session) step(name string, fn func() error) error {
	if s.hook != nil {
		if err := s.hook(name); err != nil {
			return stepError(name, s.pathFor(name), err)
		}
	}
	if err := fn(); err != nil {
		var typed *mediatypes.Error
		if errors.As(err, &typed) {
			return err
		}
		return stepError(name, s.pathFor(name), err)
	}
	return nil
}

func (s *session) open() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{StepOpenInput, s.openInput},
		{StepFindStreamInfo, func() error { return s.input.FindStreamInfo(nil) }},
		{StepFindVideo, s.selectStreams},
		{StepOpenDecoder, s.openDecoders},
		{StepAllocOutput, s.allocOutput},
		{StepCreateStream, s.createVideoStream},
		{StepOpenEncoder, s.openEncoders},
		{StepOpenSink, s.openSink},
		{StepWriteHeader, func() error { return s.output.WriteHeader(nil) }},
		{StepAllocScaler, s.allocPipeline},
	}
	for _, st := range steps {
		if err := s.step(st.name, st.fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) openInput() error {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return errNoHandle
	}
	s.scope.Track("input format", fc.CloseInput)
	s.input = fc
	return fc.OpenInput(s.req.Input, nil, nil)
}

func (s *session) selectStreams() error {
	var video, audio *astiav.Stream
	for _, st := range s.input.Streams() {
		switch st.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if video == nil {
				video = st
			}
		case astiav.MediaTypeAudio:
			if audio == nil && s.req.Kind == mediatypes.KindVideo {
				audio = st
			}
		}
	}
	if video == nil {
		return mediatypes.Errorf(mediatypes.ErrStreamNotFound, StepFindVideo, s.req.Input, "no video stream")
	}
	s.video = &inputStream{stream: video}
	if audio != nil {
		s.audio = &inputStream{stream: audio}
	}
	return nil
}

func (s *session) openDecoders() error {
	if err := s.openDecoder(s.video, "video"); err != nil {
		return err
	}
	s.stats.Input = s.video.desc

	if s.audio != nil {
		if err := s.openDecoder(s.audio, "audio"); err != nil {
			s.log.Warn("Audio disabled for %s: %v", s.req.Input, err)
			s.audio = nil
			s.stats.AudioDropped = true
		}
	}

	src := quality.Source{
		Width:            s.video.codec.Width(),
		Height:           s.video.codec.Height(),
		BitRate:          s.video.codec.BitRate(),
		ContainerBitRate: s.input.BitRate(),
		FrameRate:        s.video.desc.FrameRate,
	}
	s.params = quality.Derive(s.req.Quality, s.req.Kind, src)
	return nil
}

func (s *session) openDecoder(in *inputStream, label string) error {
	params := in.stream.CodecParameters()
	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return mediatypes.Errorf(mediatypes.ErrCodecUnavailable, StepOpenDecoder, s.req.Input,
			"no %s decoder for %s", label, params.CodecID().Name())
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return errNoHandle
	}
	s.scope.Track(label+" decoder", ctx.Free)

	if err := params.ToCodecContext(ctx); err != nil {
		return fmt.Errorf("copy %s codec parameters: %w", label, err)
	}
	if err := ctx.Open(codec, nil); err != nil {
		return fmt.Errorf("open %s decoder %s: %w", label, codec.Name(), err)
	}

	frame := astiav.AllocFrame()
	if frame == nil {
		return errNoHandle
	}
	s.scope.Track(label+" frame", frame.Free)

	in.codec = ctx
	in.frame = frame
	in.desc = describe(s.input, in.stream)
	return nil
}

func (s *session) allocOutput() error {
	formatName := ""
	if s.req.Kind == mediatypes.KindAnimatedImage {
		formatName = "gif"
	}
	out, err := astiav.AllocOutputFormatContext(nil, formatName, s.req.Output)
	if err != nil {
		return err
	}
	if out == nil {
		return errNoHandle
	}
	s.scope.Track("output format", out.Free)
	s.output = out
	return nil
}

func (s *session) createVideoStream() error {
	st := s.output.NewStream(nil)
	if st == nil {
		return errNoHandle
	}
	s.videoStream = st
	return nil
}

func (s *session) containerName() string {
	if of := s.output.OutputFormat(); of != nil {
		return of.Name()
	}
	return ""
}

func (s *session) globalHeader() bool {
	of := s.output.OutputFormat()
	return of != nil && of.Flags().Has(astiav.IOFormatFlagGlobalheader)
}

// videoEncoders returns the encoder preference list for the output container.
func videoEncoders(kind mediatypes.Kind, container string) []astiav.CodecID {
	switch {
	case kind == mediatypes.KindAnimatedImage:
		return []astiav.CodecID{astiav.CodecIDGif}
	case strings.Contains(container, "webm"):
		return []astiav.CodecID{astiav.CodecIDVp9, astiav.CodecIDVp8}
	default:
		return []astiav.CodecID{astiav.CodecIDH264, astiav.CodecIDMpeg4}
	}
}

// audioEncoders returns the encoder preference list for the output container.
func audioEncoders(container string) []astiav.CodecID {
	if strings.Contains(container, "webm") {
		return []astiav.CodecID{astiav.CodecIDOpus, astiav.CodecIDVorbis}
	}
	return []astiav.CodecID{astiav.CodecIDAac}
}

// openEncoder tries each candidate in order and keeps the first one that
// opens. Contexts that fail to open are freed before the next attempt.
func (s *session) openEncoder(label string, ids []astiav.CodecID, configure func(*astiav.Codec, *astiav.CodecContext)) (*astiav.CodecContext, string, error) {
	var lastErr error
	for _, id := range ids {
		codec := astiav.FindEncoder(id)
		if codec == nil {
			continue
		}
		ctx := astiav.AllocCodecContext(codec)
		if ctx == nil {
			return nil, "", errNoHandle
		}

		configure(codec, ctx)
		if s.globalHeader() {
			ctx.SetFlags(ctx.Flags().Add(astiav.CodecContextFlagGlobalHeader))
		}
		if err := ctx.Open(codec, nil); err != nil {
			s.log.Debug("%s encoder %s rejected settings: %v", label, codec.Name(), err)
			ctx.Free()
			lastErr = fmt.Errorf("open %s encoder %s: %w", label, codec.Name(), err)
			continue
		}

		s.scope.Track(label+" encoder", ctx.Free)
		return ctx, codec.Name(), nil
	}

	if lastErr != nil {
		return nil, "", mediatypes.NewError(mediatypes.ErrOpenFailure, StepOpenEncoder, s.req.Output, lastErr)
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name()
	}
	return nil, "", mediatypes.Errorf(mediatypes.ErrCodecUnavailable, StepOpenEncoder, s.req.Output,
		"no %s encoder available (tried %s)", label, strings.Join(names, ", "))
}

func (s *session) openEncoders() error {
	p := s.params
	ids := videoEncoders(s.req.Kind, s.containerName())

	ctx, name, err := s.openEncoder("video", ids, func(_ *astiav.Codec, c *astiav.CodecContext) {
		c.SetWidth(p.Width)
		c.SetHeight(p.Height)
		if p.Kind == mediatypes.KindAnimatedImage {
			c.SetPixelFormat(astiav.PixelFormatRgb8)
			c.SetTimeBase(astiav.NewRational(1, quality.AnimatedTicksPerSecond))
			c.SetFramerate(astiav.NewRational(p.TargetFps, 1))
			return
		}
		rate := s.input.GuessFrameRate(s.video.stream, nil)
		if rate.Num() <= 0 || rate.Den() <= 0 {
			rate = astiav.NewRational(quality.DefaultFrameRate, 1)
		}
		c.SetPixelFormat(astiav.PixelFormatYuv420P)
		c.SetTimeBase(astiav.NewRational(rate.Den(), rate.Num()))
		c.SetFramerate(rate)
		c.SetBitRate(p.BitRate)
	})
	if err != nil {
		return err
	}
	if err := ctx.ToCodecParameters(s.videoStream.CodecParameters()); err != nil {
		return fmt.Errorf("copy video encoder parameters: %w", err)
	}
	s.videoStream.SetTimeBase(ctx.TimeBase())

	var step ptsStep = unitStep
	if p.Kind == mediatypes.KindAnimatedImage {
		step = fixedStep(p.PtsIncrement)
	}
	s.videoOut = &encoder{
		label:  "video",
		name:   name,
		codec:  ctx,
		stream: s.videoStream,
		output: s.output,
		path:   s.req.Output,
		step:   step,
		video:  true,
	}
	s.stats.VideoEncoder = s.videoOut.name
	s.stats.Width = p.Width
	s.stats.Height = p.Height
	s.stats.BitRate = p.BitRate

	if s.audio != nil {
		if err := s.openAudioEncoder(); err != nil {
			s.log.Warn("Audio disabled for %s: %v", s.req.Input, err)
			s.audio = nil
			s.audioOut = nil
			s.audioIn = nil
			s.stats.AudioDropped = true
		}
	}
	return nil
}

// pickSampleFormat keeps the decoder's sample format when the encoder accepts
// it and otherwise falls back to the encoder's first advertised format.
func pickSampleFormat(codec *astiav.Codec, want astiav.SampleFormat) astiav.SampleFormat {
	formats := codec.SampleFormats()
	for _, f := range formats {
		if f == want {
			return want
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	return want
}

func (s *session) openAudioEncoder() error {
	dec := s.audio.codec
	rate := dec.SampleRate()
	if rate <= 0 {
		return fmt.Errorf("audio stream has no sample rate")
	}

	ctx, name, err := s.openEncoder("audio", audioEncoders(s.containerName()), func(codec *astiav.Codec, c *astiav.CodecContext) {
		c.SetSampleRate(rate)
		c.SetChannelLayout(dec.ChannelLayout())
		c.SetSampleFormat(pickSampleFormat(codec, dec.SampleFormat()))
		c.SetTimeBase(astiav.NewRational(1, rate))
		c.SetBitRate(quality.AudioBitRate)
		c.SetStrictStdCompliance(astiav.StrictStdComplianceExperimental)
	})
	if err != nil {
		return err
	}

	st := s.output.NewStream(nil)
	if st == nil {
		return errNoHandle
	}
	if err := ctx.ToCodecParameters(st.CodecParameters()); err != nil {
		return fmt.Errorf("copy audio encoder parameters: %w", err)
	}
	st.SetTimeBase(ctx.TimeBase())

	conv, err := newAudioResampler(s.scope, ctx)
	if err != nil {
		return err
	}

	s.audioIn = conv
	s.audioOut = &encoder{
		label:  "audio",
		name:   name,
		codec:  ctx,
		stream: st,
		output: s.output,
		path:   s.req.Output,
		step:   sampleStep,
	}
	s.stats.AudioEncoder = s.audioOut.name
	return nil
}

func (s *session) openSink() error {
	of := s.output.OutputFormat()
	if of != nil && of.Flags().Has(astiav.IOFormatFlagNofile) {
		return nil
	}
	pb, err := astiav.OpenIOContext(s.req.Output, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return err
	}
	s.out = &sink{pb: pb}
	s.scope.TrackErr("output sink", s.out.Close)
	s.output.SetPb(pb)
	return nil
}

// allocPipeline allocates the per-frame working set: packets, the scaler
// when the encoder wants a different picture, and the decimation state.
func (s *session) allocPipeline() error {
	read := astiav.AllocPacket()
	if read == nil {
		return errNoHandle
	}
	s.scope.Track("read packet", read.Free)
	s.readPacket = read

	enc := astiav.AllocPacket()
	if enc == nil {
		return errNoHandle
	}
	s.scope.Track("encode packet", enc.Free)
	s.encodePacket = enc
	s.videoOut.packet = enc
	if s.audioOut != nil {
		s.audioOut.packet = enc
	}

	vc := s.videoOut.codec
	s.picture = newVideoResampler(vc.Width(), vc.Height(), vc.PixelFormat())
	s.scope.Track("scaler", s.picture.Free)
	dec := s.video.codec
	if err := s.picture.prepare(dec.Width(), dec.Height(), dec.PixelFormat()); err != nil {
		return err
	}

	stride := 1
	if s.params.Kind == mediatypes.KindAnimatedImage {
		stride = s.params.Stride
	}
	s.decimate = decimator{stride: stride}
	return nil
}
