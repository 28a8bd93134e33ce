package record

import "errors"

// ErrEmptyRecording is returned by Finalize when no audio was captured.
var ErrEmptyRecording = errors.New("record: no audio captured")

// ErrSessionUsed is returned by Start when the session has already run.
// Sessions are single-use; build a new one per recording.
var ErrSessionUsed = errors.New("record: session already used")

// ErrStillRecording is returned by Finalize before the session has stopped.
var ErrStillRecording = errors.New("record: session still recording")
