package transcoder

import (
	"errors"
	"fmt"

	"media-compressor/internal/mediatypes"

	"github.com/asticode/go-astiav"
)

// ptsStep returns how far the stream clock advances after a frame.
type ptsStep func(*astiav.Frame) int64

func unitStep(*astiav.Frame) int64 { return 1 }

func sampleStep(f *astiav.Frame) int64 { return int64(f.NbSamples()) }

func fixedStep(n int64) ptsStep {
	return func(*astiav.Frame) int64 { return n }
}

var errEncoderFlushed = errors.New("encoder already flushed")

// encoder feeds one output stream. It stamps frames, encodes them and writes
// every packet through the interleaving muxer.
type encoder struct {
	label  string
	name   string
	codec  *astiav.CodecContext
	stream *astiav.Stream
	output *astiav.FormatContext
	packet *astiav.Packet
	path   string
	step   ptsStep
	video  bool

	next    int64
	frames  int64
	packets int64
	flushed bool
}

// encode stamps f with the next timestamp of the stream and encodes it.
func (e *encoder) encode(f *astiav.Frame) error {
	if e.flushed {
		return mediatypes.NewError(mediatypes.ErrTranscodeFailure, "encode "+e.label, e.path, errEncoderFlushed)
	}

	f.SetPts(e.next)
	if e.video {
		f.SetPictureType(astiav.PictureTypeNone)
	}
	e.next += e.step(f)

	if err := e.codec.SendFrame(f); err != nil {
		return mediatypes.NewError(mediatypes.ErrTranscodeFailure, "encode "+e.label, e.path, err)
	}
	e.frames++
	return e.receive()
}

// flush drains the frames the encoder still holds. Later encode calls fail.
func (e *encoder) flush() error {
	if e.flushed {
		return nil
	}
	e.flushed = true
	if err := e.codec.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return mediatypes.NewError(mediatypes.ErrTranscodeFailure, "flush "+e.label, e.path, err)
	}
	return e.receive()
}

func (e *encoder) receive() error {
	for {
		if err := e.codec.ReceivePacket(e.packet); err != nil {
			if drained(err) {
				return nil
			}
			return mediatypes.NewError(mediatypes.ErrTranscodeFailure, "encode "+e.label, e.path, err)
		}

		e.packet.RescaleTs(e.codec.TimeBase(), e.stream.TimeBase())
		e.packet.SetStreamIndex(e.stream.Index())
		err := e.output.WriteInterleavedFrame(e.packet)
		e.packet.Unref()
		if err != nil {
			return mediatypes.NewError(mediatypes.ErrIOFailure, fmt.Sprintf("write %s packet", e.label), e.path, err)
		}
		e.packets++
	}
}
