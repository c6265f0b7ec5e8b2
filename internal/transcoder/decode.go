package transcoder

import (
	"context"
	"errors"

	"media-compressor/internal/logging"
	"media-compressor/internal/mediatypes"

	"github.com/asticode/go-astiav"
)

// frameHandler consumes one decoded frame. The frame is only valid for the
// duration of the call.
type frameHandler func(*astiav.Frame) error

type decodeRoute struct {
	in      *inputStream
	handle  frameHandler
	skipped int
}

// demuxer reads packets in container order and pushes every decoded frame to
// the handler of its stream. It runs once; the input cannot be rewound.
type demuxer struct {
	input    *astiav.FormatContext
	packet   *astiav.Packet
	path     string
	log      logging.Scoped
	order    []*decodeRoute
	routes   map[int]*decodeRoute
	consumed bool
}

var errInputConsumed = errors.New("input already consumed")

func newDemuxer(input *astiav.FormatContext, packet *astiav.Packet, path string, log logging.Scoped) *demuxer {
	return &demuxer{
		input:  input,
		packet: packet,
		path:   path,
		log:    log,
		routes: make(map[int]*decodeRoute),
	}
}

func (d *demuxer) route(in *inputStream, handle frameHandler) {
	r := &decodeRoute{in: in, handle: handle}
	d.routes[in.stream.Index()] = r
	d.order = append(d.order, r)
}

// run decodes the whole input. Cancellation is checked before every packet
// read. After the last packet each decoder is flushed so frames it buffered
// still reach their handler.
func (d *demuxer) run(ctx context.Context) error {
	if d.consumed {
		return mediatypes.NewError(mediatypes.ErrTranscodeFailure, "decode", d.path, errInputConsumed)
	}
	d.consumed = true

	for {
		if err := ctx.Err(); err != nil {
			return mediatypes.NewError(mediatypes.ErrCanceled, "decode", d.path, err)
		}
		if err := d.input.ReadFrame(d.packet); err != nil {
			if !endOfInput(err) {
				d.log.Warn("Stopped reading %s early: %v", d.path, err)
			}
			break
		}

		r, ok := d.routes[d.packet.StreamIndex()]
		if !ok {
			d.packet.Unref()
			continue
		}
		err := d.decode(r, d.packet)
		d.packet.Unref()
		if err != nil {
			return err
		}
	}

	for _, r := range d.order {
		if err := d.decode(r, nil); err != nil {
			return err
		}
		if r.skipped > 0 {
			d.log.Debug("Stream %d: skipped %d undecodable packets", r.in.stream.Index(), r.skipped)
		}
	}
	return nil
}

// decode sends one packet (nil flushes) and drains every frame it produced.
func (d *demuxer) decode(r *decodeRoute, pkt *astiav.Packet) error {
	if err := r.in.codec.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		if pkt == nil {
			return nil
		}
		r.skipped++
		d.log.Debug("Stream %d: skipping packet: %v", r.in.stream.Index(), err)
		return nil
	}

	for {
		if err := r.in.codec.ReceiveFrame(r.in.frame); err != nil {
			if !drained(err) {
				d.log.Debug("Stream %d: decode error: %v", r.in.stream.Index(), err)
			}
			return nil
		}
		err := r.handle(r.in.frame)
		r.in.frame.Unref()
		if err != nil {
			return err
		}
	}
}
