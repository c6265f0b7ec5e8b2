package transcoder

import (
	"fmt"

	"media-compressor/internal/quality"
	"media-compressor/internal/resource"

	"github.com/asticode/go-astiav"
)

// videoResampler converts decoded pictures to the encoder's size and pixel
// format. When the source already matches it returns the frame unchanged.
type videoResampler struct {
	dstW, dstH int
	dstFmt     astiav.PixelFormat

	srcW, srcH int
	srcFmt     astiav.PixelFormat

	ssc *astiav.SoftwareScaleContext
	dst *astiav.Frame
}

func newVideoResampler(w, h int, pf astiav.PixelFormat) *videoResampler {
	return &videoResampler{dstW: w, dstH: h, dstFmt: pf}
}

func (r *videoResampler) matches(w, h int, pf astiav.PixelFormat) bool {
	return w == r.dstW && h == r.dstH && pf == r.dstFmt
}

// prepare builds the scaler up front when the decoder already reports a
// different geometry. Unknown geometry is left to the first frame.
func (r *videoResampler) prepare(w, h int, pf astiav.PixelFormat) error {
	if w <= 0 || h <= 0 || pf == astiav.PixelFormatNone || r.matches(w, h, pf) {
		return nil
	}
	return r.ensure(w, h, pf)
}

// Active reports whether a scaler is allocated.
func (r *videoResampler) Active() bool {
	return r.ssc != nil
}

func (r *videoResampler) ensure(w, h int, pf astiav.PixelFormat) error {
	if r.ssc != nil && w == r.srcW && h == r.srcH && pf == r.srcFmt {
		return nil
	}
	r.Free()

	ssc, err := astiav.CreateSoftwareScaleContext(
		w, h, pf,
		r.dstW, r.dstH, r.dstFmt,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("create scaler %dx%d %s -> %dx%d %s: %w", w, h, pf, r.dstW, r.dstH, r.dstFmt, err)
	}

	dst := astiav.AllocFrame()
	if dst == nil {
		ssc.Free()
		return errNoHandle
	}
	dst.SetWidth(r.dstW)
	dst.SetHeight(r.dstH)
	dst.SetPixelFormat(r.dstFmt)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("allocate scaled frame: %w", err)
	}

	r.ssc, r.dst = ssc, dst
	r.srcW, r.srcH, r.srcFmt = w, h, pf
	return nil
}

// transform returns a frame of exactly the target geometry. The returned frame
// is either src itself or an internal buffer reused on the next call.
func (r *videoResampler) transform(src *astiav.Frame) (*astiav.Frame, error) {
	if r.matches(src.Width(), src.Height(), src.PixelFormat()) {
		return src, nil
	}
	if err := r.ensure(src.Width(), src.Height(), src.PixelFormat()); err != nil {
		return nil, err
	}
	if err := r.dst.MakeWritable(); err != nil {
		return nil, fmt.Errorf("make scaled frame writable: %w", err)
	}
	if err := r.ssc.ScaleFrame(src, r.dst); err != nil {
		return nil, fmt.Errorf("scale frame: %w", err)
	}
	return r.dst, nil
}

// Free releases the scaler and its target frame.
func (r *videoResampler) Free() {
	if r.dst != nil {
		r.dst.Free()
		r.dst = nil
	}
	if r.ssc != nil {
		r.ssc.Free()
		r.ssc = nil
	}
}

// decimator keeps every stride-th decoded frame, starting with the first.
type decimator struct {
	stride int
	seen   int64
}

func (d *decimator) keep() bool {
	d.seen++
	return quality.Keep(d.seen, d.stride)
}

// audioResampler converts decoded samples to the encoder's sample format and
// regroups them into frames of the encoder's frame size.
type audioResampler struct {
	swr       *astiav.SoftwareResampleContext
	fifo      *astiav.AudioFifo
	converted *astiav.Frame
	chunk     *astiav.Frame

	format    astiav.SampleFormat
	layout    astiav.ChannelLayout
	rate      int
	frameSize int
	// primed is set once the converter has seen input.
	primed bool
}

func newAudioResampler(scope *resource.Scope, enc *astiav.CodecContext) (*audioResampler, error) {
	r := &audioResampler{
		format:    enc.SampleFormat(),
		layout:    enc.ChannelLayout(),
		rate:      enc.SampleRate(),
		frameSize: enc.FrameSize(),
	}

	r.swr = astiav.AllocSoftwareResampleContext()
	if r.swr == nil {
		return nil, errNoHandle
	}
	scope.Track("audio resampler", r.swr.Free)

	initial := r.frameSize
	if initial < 1 {
		initial = 1
	}
	r.fifo = astiav.AllocAudioFifo(r.format, r.layout.Channels(), initial)
	if r.fifo == nil {
		return nil, errNoHandle
	}
	scope.Track("audio fifo", r.fifo.Free)

	if r.converted = astiav.AllocFrame(); r.converted == nil {
		return nil, errNoHandle
	}
	scope.Track("converted audio frame", r.converted.Free)

	if r.chunk = astiav.AllocFrame(); r.chunk == nil {
		return nil, errNoHandle
	}
	scope.Track("audio chunk frame", r.chunk.Free)

	return r, nil
}

func (r *audioResampler) describe(f *astiav.Frame) {
	f.SetSampleFormat(r.format)
	f.SetChannelLayout(r.layout)
	f.SetSampleRate(r.rate)
}

// push converts src and emits every complete encoder frame now buffered.
func (r *audioResampler) push(src *astiav.Frame, emit frameHandler) error {
	r.converted.Unref()
	r.describe(r.converted)
	if err := r.swr.ConvertFrame(src, r.converted); err != nil {
		return fmt.Errorf("convert samples: %w", err)
	}
	r.primed = true
	if _, err := r.fifo.Write(r.converted); err != nil {
		return fmt.Errorf("buffer samples: %w", err)
	}
	return r.drain(emit, false)
}

// flush pulls the samples the converter still holds into the FIFO and emits
// everything buffered, the short remainder included.
func (r *audioResampler) flush(emit frameHandler) error {
	if r.primed {
		r.converted.Unref()
		r.describe(r.converted)
		if err := r.swr.ConvertFrame(nil, r.converted); err != nil {
			return fmt.Errorf("flush resampler: %w", err)
		}
		if r.converted.NbSamples() > 0 {
			if _, err := r.fifo.Write(r.converted); err != nil {
				return fmt.Errorf("buffer samples: %w", err)
			}
		}
	}
	return r.drain(emit, true)
}

// drain emits buffered samples in encoder-sized frames. With final set the
// remainder goes out as a short last frame.
func (r *audioResampler) drain(emit frameHandler, final bool) error {
	for {
		n := r.fifo.Size()
		size := r.frameSize
		if size <= 0 {
			size = n
		}
		if n == 0 || (n < size && !final) {
			return nil
		}
		if n < size {
			size = n
		}

		r.chunk.Unref()
		r.describe(r.chunk)
		r.chunk.SetNbSamples(size)
		if err := r.chunk.AllocBuffer(0); err != nil {
			return fmt.Errorf("allocate audio frame: %w", err)
		}
		if _, err := r.fifo.Read(r.chunk); err != nil {
			return fmt.Errorf("read buffered samples: %w", err)
		}
		if err := emit(r.chunk); err != nil {
			return err
		}
	}
}
