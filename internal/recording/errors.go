package recording

import "errors"

var (
	// ErrDuplicateRecording means a recording with the same id is already active.
	ErrDuplicateRecording = errors.New("recording: id already active")

	// ErrRecordingNotFound means no active recording has the given id.
	ErrRecordingNotFound = errors.New("recording: no active recording with that id")

	// ErrFileCreate means the output directory or WAV file could not be created.
	ErrFileCreate = errors.New("recording: failed to create output file")

	// ErrEncoderFinalize means the WAV encoder could not be finalized; the
	// output file's header may be incomplete.
	ErrEncoderFinalize = errors.New("recording: failed to finalize WAV encoder")

	// ErrEngineClosed means the engine has been closed.
	ErrEngineClosed = errors.New("recording: engine is closed")
)
