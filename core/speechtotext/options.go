// Package speechtotext holds the options shared by transcription clients.
package speechtotext

type TranscriptionOptions struct {
	Language       string
	ResponseFormat string
	Filename       string
}

type TranscriptionOption interface {
	Apply(*TranscriptionOptions)
}

type transcriptionOptionFunc func(*TranscriptionOptions)

func (f transcriptionOptionFunc) Apply(o *TranscriptionOptions) { f(o) }

// WithLanguage sets the expected speech language.
func WithLanguage(language string) TranscriptionOption {
	return transcriptionOptionFunc(func(o *TranscriptionOptions) { o.Language = language })
}

// WithResponseFormat sets the response format requested from the API.
func WithResponseFormat(format string) TranscriptionOption {
	return transcriptionOptionFunc(func(o *TranscriptionOptions) { o.ResponseFormat = format })
}

// WithFilename sets the filename reported for the uploaded audio.
func WithFilename(filename string) TranscriptionOption {
	return transcriptionOptionFunc(func(o *TranscriptionOptions) { o.Filename = filename })
}
