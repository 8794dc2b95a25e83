package texttospeech

// SynthesisOptions carries per-request overrides for a speech synthesizer.
// Zero values mean "use the client's configured default".
type SynthesisOptions struct {
	Voice          string
	Language       string
	ResponseFormat string
	Speed          float64
}

type SynthesisOption interface {
	Apply(*SynthesisOptions)
}

type synthesisOptionFunc func(*SynthesisOptions)

func (f synthesisOptionFunc) Apply(o *SynthesisOptions) { f(o) }

func WithVoice(voice string) SynthesisOption {
	return synthesisOptionFunc(func(o *SynthesisOptions) { o.Voice = voice })
}

func WithLanguage(language string) SynthesisOption {
	return synthesisOptionFunc(func(o *SynthesisOptions) { o.Language = language })
}

func WithResponseFormat(format string) SynthesisOption {
	return synthesisOptionFunc(func(o *SynthesisOptions) { o.ResponseFormat = format })
}

func WithSpeed(speed float64) SynthesisOption {
	return synthesisOptionFunc(func(o *SynthesisOptions) { o.Speed = speed })
}
