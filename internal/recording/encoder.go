package recording

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the RIFF audio format tag for linear PCM.
const wavFormatPCM = 1

// encoder wraps an incremental WAV encoder with take-once finalization.
// The writer goroutine and the stop routine can both reach the encoder;
// whichever finalizes first wins, the other observes it already consumed.
// Closing back-patches the RIFF header with the final data length.
type encoder struct {
	mu         sync.Mutex
	enc        *wav.Encoder
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	wrote      bool
}

// newEncoder creates the output file and an incremental stereo PCM
// encoder over it.
func newEncoder(path string, sampleRate, bitDepth, channels int) (*encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileCreate, err)
	}
	return &encoder{
		enc:        wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM),
		file:       f,
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		channels:   channels,
	}, nil
}

// writeSamples appends interleaved int16-range samples to the file.
// Returns ErrEncoderFinalize-free plain errors; callers in the writer
// loop log and continue.
func (e *encoder) writeSamples(samples []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc == nil {
		return fmt.Errorf("encoder already finalized")
	}
	if err := e.enc.Write(e.buffer(samples)); err != nil {
		return err
	}
	e.wrote = true
	return nil
}

func (e *encoder) buffer(samples []int) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  e.sampleRate,
		},
		Data:           samples,
		SourceBitDepth: e.bitDepth,
	}
}

// finalize closes the encoder and the file exactly once. The first
// caller gets (true, closeErr); later callers get (false, nil) and must
// treat it as a no-op.
func (e *encoder) finalize() (bool, error) {
	e.mu.Lock()
	enc, f, wrote := e.enc, e.file, e.wrote
	e.enc, e.file = nil, nil
	e.mu.Unlock()

	if enc == nil {
		return false, nil
	}
	// The wav encoder only emits the RIFF header and data chunk on the
	// first Write; a recording stopped before any samples arrived still
	// has to come out as a playable (empty) WAV file.
	var err error
	if !wrote {
		err = enc.Write(e.buffer(nil))
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrEncoderFinalize, err)
	}
	return true, nil
}
