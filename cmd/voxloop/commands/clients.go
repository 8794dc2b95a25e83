package commands

import (
	"context"
	"fmt"

	"github.com/lovrenc-k/voxloop/core/audio"
	"github.com/lovrenc-k/voxloop/core/audio/miniaudio"
	"github.com/lovrenc-k/voxloop/core/audio/portaudio"
	"github.com/lovrenc-k/voxloop/core/config"
	chatlemonfox "github.com/lovrenc-k/voxloop/core/llms/lemonfox"
	sttlemonfox "github.com/lovrenc-k/voxloop/core/speechtotext/lemonfox"
	ttslemonfox "github.com/lovrenc-k/voxloop/core/texttospeech/lemonfox"
)

// audioBackend is the union of the capture and playback sides that both
// audio implementations provide.
type audioBackend interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	CaptureEncodingInfo() audio.EncodingInfo
	Prepare(encoding audio.EncodingInfo) error
	SendAudio(audio []byte) error
	Pending() int
	ClearBuffer()
	Close()
}

func openAudioBackend(cfg config.Config) (audioBackend, error) {
	switch cfg.AudioBackend {
	case "portaudio":
		client, err := portaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio backend: %w", err)
		}
		return client, nil
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio backend: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
	}
}

func newTranscriber(cfg config.Config) *sttlemonfox.Client {
	return sttlemonfox.NewClient(cfg.APIKey, cfg.STTURL,
		sttlemonfox.WithFallbackURL(cfg.STTFallbackURL),
		sttlemonfox.WithLanguage(cfg.STTLanguage),
		sttlemonfox.WithResponseFormat(cfg.STTResponseFormat),
	)
}

func newReplyStreamer(cfg config.Config) *chatlemonfox.Client {
	opts := []chatlemonfox.ClientOption{}
	if cfg.ChatFallbackURL != "" {
		opts = append(opts, chatlemonfox.WithFallbackURL(cfg.ChatFallbackURL))
	}
	return chatlemonfox.NewClient(cfg.APIKey, cfg.ChatURL, cfg.ChatModel, opts...)
}

func newSynthesizer(cfg config.Config) *ttslemonfox.Client {
	opts := []ttslemonfox.ClientOption{
		ttslemonfox.WithModel(cfg.TTSModel),
		ttslemonfox.WithVoice(cfg.TTSVoice),
		ttslemonfox.WithLanguage(cfg.TTSLanguage),
		ttslemonfox.WithResponseFormat(cfg.TTSResponseFormat),
		ttslemonfox.WithSpeed(cfg.TTSSpeed),
	}
	if cfg.TTSFallbackURL != "" {
		opts = append(opts, ttslemonfox.WithFallbackURL(cfg.TTSFallbackURL))
	}
	return ttslemonfox.NewClient(cfg.APIKey, cfg.TTSURL, opts...)
}
