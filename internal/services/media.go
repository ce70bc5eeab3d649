package services

import "errors"

// MediaKind distinguishes inbound message payloads.
type MediaKind string

const (
	MediaText  MediaKind = "text"
	MediaImage MediaKind = "image"
	MediaVoice MediaKind = "voice"
)

// ErrMediaUnsupported is returned when no transcriber is configured for a
// media kind.
var ErrMediaUnsupported = errors.New("media transcription not available")

// MediaTranscriber converts an image or voice payload into text that can
// re-enter the product extraction pipeline.
type MediaTranscriber interface {
	Transcribe(kind MediaKind, mediaURL string) (string, error)
}

// NoopTranscriber is the default transcriber; it declines every payload so
// the bot asks the vendor to type instead.
type NoopTranscriber struct{}

func (NoopTranscriber) Transcribe(kind MediaKind, mediaURL string) (string, error) {
	return "", ErrMediaUnsupported
}
