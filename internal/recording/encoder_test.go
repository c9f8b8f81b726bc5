package recording

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestEncoderProducesValidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	enc, err := newEncoder(path, 48000, 16, 2)
	if err != nil {
		t.Fatalf("newEncoder() failed: %v", err)
	}

	samples := []int{100, -100, 200, -200, 32767, -32767}
	if err := enc.writeSamples(samples); err != nil {
		t.Fatalf("writeSamples() failed: %v", err)
	}
	taken, err := enc.finalize()
	if !taken || err != nil {
		t.Fatalf("finalize() = (%v, %v), want (true, nil)", taken, err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if !dec.IsValidFile() {
		t.Error("output is not a valid WAV file")
	}
	if dec.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", dec.SampleRate)
	}
	if dec.NumChans != 2 {
		t.Errorf("channels = %d, want 2", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Errorf("bit depth = %d, want 16", dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, want := range samples {
		if buf.Data[i] != want {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], want)
		}
	}
}

func TestEncoderFinalizeWithoutWritesProducesValidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	enc, err := newEncoder(path, 48000, 16, 2)
	if err != nil {
		t.Fatalf("newEncoder() failed: %v", err)
	}

	taken, err := enc.finalize()
	if !taken || err != nil {
		t.Fatalf("finalize() = (%v, %v), want (true, nil)", taken, err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding zero-sample output: %v", err)
	}
	if !dec.IsValidFile() {
		t.Error("zero-sample output is not a valid WAV file")
	}
	if dec.SampleRate != 48000 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Errorf("format = %d Hz / %d ch / %d bit, want 48000 / 2 / 16",
			dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != 0 {
		t.Errorf("decoded %d samples from an empty recording, want 0", len(buf.Data))
	}
}

func TestEncoderFinalizeIsTakeOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	enc, err := newEncoder(path, 48000, 16, 2)
	if err != nil {
		t.Fatalf("newEncoder() failed: %v", err)
	}

	taken, err := enc.finalize()
	if !taken || err != nil {
		t.Fatalf("first finalize() = (%v, %v), want (true, nil)", taken, err)
	}
	taken, err = enc.finalize()
	if taken || err != nil {
		t.Errorf("second finalize() = (%v, %v), want (false, nil)", taken, err)
	}
}

func TestEncoderWriteAfterFinalizeFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	enc, err := newEncoder(path, 48000, 16, 2)
	if err != nil {
		t.Fatalf("newEncoder() failed: %v", err)
	}
	if _, err := enc.finalize(); err != nil {
		t.Fatalf("finalize() failed: %v", err)
	}
	if err := enc.writeSamples([]int{1, 2}); err == nil {
		t.Error("writeSamples() after finalize succeeded, want error")
	}
}

func TestNewEncoderBadPath(t *testing.T) {
	_, err := newEncoder(filepath.Join(t.TempDir(), "missing", "out.wav"), 48000, 16, 2)
	if !errors.Is(err, ErrFileCreate) {
		t.Errorf("newEncoder() error = %v, want ErrFileCreate", err)
	}
}
