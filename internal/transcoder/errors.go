package transcoder

import (
	"errors"

	"media-compressor/internal/mediatypes"

	"github.com/asticode/go-astiav"
)

// Open steps, in the order a session acquires them. Each one is a distinct
// failure point.
const (
	StepOpenInput      = "open-input"
	StepFindStreamInfo = "find-stream-info"
	StepFindVideo      = "find-video-stream"
	StepOpenDecoder    = "open-decoder"
	StepAllocOutput    = "alloc-output"
	StepCreateStream   = "create-stream"
	StepOpenEncoder    = "open-encoder"
	StepOpenSink       = "open-sink"
	StepWriteHeader    = "write-header"
	StepAllocScaler    = "alloc-scaler"
)

// Steps lists every open step in acquisition order.
var Steps = []string{
	StepOpenInput,
	StepFindStreamInfo,
	StepFindVideo,
	StepOpenDecoder,
	StepAllocOutput,
	StepCreateStream,
	StepOpenEncoder,
	StepOpenSink,
	StepWriteHeader,
	StepAllocScaler,
}

var stepKinds = map[string]mediatypes.ErrorKind{
	StepOpenInput:      mediatypes.ErrOpenFailure,
	StepFindStreamInfo: mediatypes.ErrOpenFailure,
	StepFindVideo:      mediatypes.ErrStreamNotFound,
	StepOpenDecoder:    mediatypes.ErrOpenFailure,
	StepAllocOutput:    mediatypes.ErrOpenFailure,
	StepCreateStream:   mediatypes.ErrOpenFailure,
	StepOpenEncoder:    mediatypes.ErrOpenFailure,
	StepOpenSink:       mediatypes.ErrIOFailure,
	StepWriteHeader:    mediatypes.ErrIOFailure,
	StepAllocScaler:    mediatypes.ErrOpenFailure,
}

// StepKind returns the failure kind reported when step fails.
func StepKind(step string) mediatypes.ErrorKind {
	if k, ok := stepKinds[step]; ok {
		return k
	}
	return mediatypes.ErrTranscodeFailure
}

func stepError(step, path string, err error) error {
	return mediatypes.NewError(StepKind(step), step, path, err)
}

var errNoHandle = errors.New("allocation returned nil")

// drained reports whether a receive call ended because the codec needs more
// input or has nothing left.
func drained(err error) bool {
	return errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof)
}

// endOfInput reports whether a read hit the end of the container.
func endOfInput(err error) bool {
	return errors.Is(err, astiav.ErrEof)
}

// FailedStep returns the open step that err came from, if any.
func FailedStep(err error) (string, bool) {
	var e *mediatypes.Error
	if !errors.As(err, &e) {
		return "", false
	}
	if _, ok := stepKinds[e.Op]; ok {
		return e.Op, true
	}
	return "", false
}
