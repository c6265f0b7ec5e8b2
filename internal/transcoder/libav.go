package transcoder

import (
	"strings"
	"sync"

	"media-compressor/internal/logging"

	"github.com/asticode/go-astiav"
)

var libavLogOnce sync.Once

// InitLogging routes libav log output through the application logger.
// Safe to call more than once; only the first call takes effect.
func InitLogging() {
	libavLogOnce.Do(func() {
		var level astiav.LogLevel
		switch logging.GetLevel() {
		case logging.LevelDebug:
			level = astiav.LogLevelVerbose
		case logging.LevelInfo, logging.LevelWarn:
			level = astiav.LogLevelWarning
		default:
			level = astiav.LogLevelError
		}
		astiav.SetLogLevel(level)

		astiav.SetLogCallback(func(_ astiav.Classer, l astiav.LogLevel, _, msg string) {
			msg = strings.TrimRight(msg, "\r\n")
			if msg == "" {
				return
			}
			switch {
			case l <= astiav.LogLevelError:
				logging.Error("[libav] %s", msg)
			case l <= astiav.LogLevelWarning:
				logging.Warn("[libav] %s", msg)
			default:
				logging.Debug("[libav] %s", msg)
			}
		})
	})
}

// Capability is one codec the pipeline may need and whether this libav build has it.
type Capability struct {
	Role      string
	Name      string
	Available bool
}

// Capabilities lists the encoders the pipeline can select from, in preference order.
func Capabilities() []Capability {
	probe := func(role, name string, id astiav.CodecID) Capability {
		return Capability{Role: role, Name: name, Available: astiav.FindEncoder(id) != nil}
	}
	return []Capability{
		probe("animated image", "gif", astiav.CodecIDGif),
		probe("video", "h264", astiav.CodecIDH264),
		probe("video (fallback)", "mpeg4", astiav.CodecIDMpeg4),
		probe("video (webm)", "vp9", astiav.CodecIDVp9),
		probe("video (webm fallback)", "vp8", astiav.CodecIDVp8),
		probe("audio", "aac", astiav.CodecIDAac),
		probe("audio (webm)", "opus", astiav.CodecIDOpus),
		probe("audio (webm fallback)", "vorbis", astiav.CodecIDVorbis),
	}
}
