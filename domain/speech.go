package domain

import (
	"context"
	"errors"
)

var (
	// ErrUnrecognizedAudio is returned when the recognizer heard nothing it could transcribe.
	ErrUnrecognizedAudio = errors.New("unrecognized audio")
	// ErrServiceUnreachable wraps transport and provider failures of the recognizer.
	ErrServiceUnreachable = errors.New("speech service unreachable")
)

// Transcriber converts one utterance of streamed audio into text.
// Implementations stop at the first final result or when ctx expires.
type Transcriber interface {
	Transcribe(ctx context.Context, audio <-chan []byte) (string, error)
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
