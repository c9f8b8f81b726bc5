package recording

import (
	"math"
	"time"

	"github.com/notewell/audiorec/internal/logger"
)

// runWriter is the mixer/writer loop of one session. It drains both
// ring buffers, reconstructs stereo frames, mixes additively with
// clipping, quantizes to 16-bit and streams the result into the WAV
// encoder. It keeps running until the stop flag is set AND both rings
// are empty, so audio buffered before stop is never truncated. On exit
// it finalizes the encoder (take-once).
func runWriter(s *session, pollInterval time.Duration, log *logger.Logger) error {
	micBuf := make([]float32, s.mic.Ring.Cap())
	micCh := s.mic.Config.Channels

	var loopBuf []float32
	loopCh := 2
	if s.loopback != nil {
		loopBuf = make([]float32, s.loopback.Ring.Cap())
		loopCh = s.loopback.Config.Channels
	}

	mixed := make([]int, 0, 2*len(micBuf))

	for {
		stopped := s.stop.Load()

		micN := s.mic.Ring.Pop(micBuf)
		loopN := 0
		if s.loopback != nil {
			loopN = s.loopback.Ring.Pop(loopBuf)
		}

		if micN == 0 && loopN == 0 {
			if stopped {
				break
			}
			time.Sleep(pollInterval)
			continue
		}

		mixed = mixStereo(micBuf[:micN], micCh, loopBuf[:loopN], loopCh, mixed[:0])
		if err := s.enc.writeSamples(mixed); err != nil {
			// A bad batch must not abort an otherwise-healthy recording.
			log.Error("recording %s: writing %d mixed samples: %v", s.id, len(mixed), err)
		}
	}

	taken, err := s.enc.finalize()
	if taken {
		log.Info("recording %s: WAV encoder finalized by writer", s.id)
	}
	return err
}

// mixStereo converts the microphone and loopback chunks to stereo
// frames, sums them with clipping, and appends interleaved 16-bit
// samples to out. Mono sources are upmixed by duplication; when one
// source runs out of samples before the other, its side of the frame is
// silence, which is what lets uneven producer rates mix without
// blocking.
func mixStereo(mic []float32, micChannels int, loop []float32, loopChannels int, out []int) []int {
	micIdx, loopIdx := 0, 0
	for micIdx < len(mic) || loopIdx < len(loop) {
		micL, micR := takeFrame(mic, &micIdx, micChannels)
		loopL, loopR := takeFrame(loop, &loopIdx, loopChannels)
		out = append(out,
			quantize(clampUnit(micL+loopL)),
			quantize(clampUnit(micR+loopR)),
		)
	}
	return out
}

// takeFrame consumes one frame from src and returns it as a stereo
// (left, right) pair. An exhausted source yields silence; a source that
// ends mid-frame yields silence for the missing samples only.
func takeFrame(src []float32, idx *int, channels int) (left, right float32) {
	if *idx >= len(src) {
		return 0, 0
	}
	if channels == 1 {
		left = src[*idx]
		right = left
		*idx++
		return left, right
	}
	left = src[*idx]
	if *idx+1 < len(src) {
		right = src[*idx+1]
	}
	*idx += channels
	return left, right
}

func clampUnit(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

func quantize(v float32) int {
	return int(math.Round(float64(v) * 32767))
}
