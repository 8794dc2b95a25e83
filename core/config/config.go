// Package config loads runtime settings for the voice dialogue loop from
// environment variables, with defaults that hit the hosted Lemonfox APIs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains every tunable of the dialogue pipeline.
type Config struct {
	APIKey string

	STTURL            string
	STTFallbackURL    string
	STTLanguage       string
	STTResponseFormat string

	ChatURL         string
	ChatFallbackURL string
	ChatModel       string
	SystemPrompt    string

	// Word budgets for the streamed reply, picked by listening mode.
	MaxReplyWordsAutoListen int
	MaxReplyWordsManual     int

	TTSURL            string
	TTSFallbackURL    string
	TTSModel          string
	TTSVoice          string
	TTSLanguage       string
	TTSResponseFormat string
	TTSSpeed          float64

	VADPauseThreshold    time.Duration
	VADMinSpeechDuration time.Duration
	VADAggressiveness    int

	// AudioBackend selects the playback/capture implementation:
	// "miniaudio" or "portaudio".
	AudioBackend string

	LogLevel string
	LogFile  string
}

// Load reads environment variables and applies defaults. It fails on values
// that do not parse rather than silently running with a half-applied config.
func Load() (Config, error) {
	cfg := Config{
		APIKey:            strings.TrimSpace(os.Getenv("LEMONFOX_API_KEY")),
		STTURL:            envOrDefault("LEMONFOX_API_URL", "https://api.lemonfox.ai/v1/audio/transcriptions"),
		STTFallbackURL:    envOrDefault("LEMONFOX_API_FALLBACK_URL", "https://transcribe.whisperapi.com"),
		STTLanguage:       envOrDefault("LEMONFOX_LANGUAGE", "english"),
		STTResponseFormat: envOrDefault("LEMONFOX_RESPONSE_FORMAT", "json"),

		ChatURL:         envOrDefault("LEMONFOX_CHAT_URL", "https://api.lemonfox.ai/v1/chat/completions"),
		ChatFallbackURL: strings.TrimSpace(os.Getenv("LEMONFOX_CHAT_FALLBACK_URL")),
		ChatModel:       envOrDefault("LEMONFOX_CHAT_MODEL", "llama-8b-chat"),
		SystemPrompt:    envOrDefault("DIALOGUE_SYSTEM_PROMPT", "You are a helpful assistant."),

		MaxReplyWordsAutoListen: 100,
		MaxReplyWordsManual:     50,

		TTSURL:            envOrDefault("LEMONFOX_TTS_URL", "https://api.lemonfox.ai/v1/audio/speech"),
		TTSFallbackURL:    strings.TrimSpace(os.Getenv("LEMONFOX_TTS_FALLBACK_URL")),
		TTSModel:          envOrDefault("LEMONFOX_TTS_MODEL", "tts-1"),
		TTSVoice:          envOrDefault("LEMONFOX_TTS_VOICE", "heart"),
		TTSLanguage:       envOrDefault("LEMONFOX_TTS_LANGUAGE", "en-us"),
		TTSResponseFormat: envOrDefault("LEMONFOX_TTS_RESPONSE_FORMAT", "wav"),
		TTSSpeed:          1.0,

		VADPauseThreshold:    1500 * time.Millisecond,
		VADMinSpeechDuration: 500 * time.Millisecond,
		VADAggressiveness:    3,

		AudioBackend: envOrDefault("AUDIO_BACKEND", "miniaudio"),

		LogLevel: strings.ToUpper(envOrDefault("LOG_LEVEL", "INFO")),
		LogFile:  strings.TrimSpace(os.Getenv("LOG_FILE")),
	}

	var err error
	cfg.TTSSpeed, err = floatFromEnv("LEMONFOX_TTS_SPEED", cfg.TTSSpeed)
	if err != nil {
		return Config{}, err
	}
	cfg.VADPauseThreshold, err = secondsFromEnv("VAD_PAUSE_THRESHOLD", cfg.VADPauseThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.VADMinSpeechDuration, err = secondsFromEnv("VAD_MIN_SPEECH_SECONDS", cfg.VADMinSpeechDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.VADAggressiveness, err = intFromEnv("VAD_AGGRESSIVENESS", cfg.VADAggressiveness)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxReplyWordsAutoListen, err = intFromEnv("DIALOGUE_MAX_WORDS_AUTO", cfg.MaxReplyWordsAutoListen)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxReplyWordsManual, err = intFromEnv("DIALOGUE_MAX_WORDS_MANUAL", cfg.MaxReplyWordsManual)
	if err != nil {
		return Config{}, err
	}

	if cfg.TTSSpeed <= 0 {
		return Config{}, fmt.Errorf("LEMONFOX_TTS_SPEED must be positive")
	}
	if cfg.VADPauseThreshold <= 0 {
		return Config{}, fmt.Errorf("VAD_PAUSE_THRESHOLD must be positive")
	}
	if cfg.VADMinSpeechDuration < 0 {
		return Config{}, fmt.Errorf("VAD_MIN_SPEECH_SECONDS must be >= 0")
	}
	if cfg.VADAggressiveness < 0 || cfg.VADAggressiveness > 3 {
		return Config{}, fmt.Errorf("VAD_AGGRESSIVENESS must be between 0 and 3")
	}
	if cfg.MaxReplyWordsAutoListen <= 0 || cfg.MaxReplyWordsManual <= 0 {
		return Config{}, fmt.Errorf("reply word budgets must be positive")
	}
	switch cfg.AudioBackend {
	case "miniaudio", "portaudio":
	default:
		return Config{}, fmt.Errorf("AUDIO_BACKEND must be miniaudio or portaudio, got %q", cfg.AudioBackend)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

// secondsFromEnv parses a bare float number of seconds, e.g. "1.5".
func secondsFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
