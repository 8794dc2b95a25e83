package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LEMONFOX_API_KEY",
		"LEMONFOX_API_URL",
		"LEMONFOX_API_FALLBACK_URL",
		"LEMONFOX_LANGUAGE",
		"LEMONFOX_RESPONSE_FORMAT",
		"LEMONFOX_CHAT_URL",
		"LEMONFOX_CHAT_FALLBACK_URL",
		"LEMONFOX_CHAT_MODEL",
		"DIALOGUE_SYSTEM_PROMPT",
		"DIALOGUE_MAX_WORDS_AUTO",
		"DIALOGUE_MAX_WORDS_MANUAL",
		"LEMONFOX_TTS_URL",
		"LEMONFOX_TTS_FALLBACK_URL",
		"LEMONFOX_TTS_MODEL",
		"LEMONFOX_TTS_VOICE",
		"LEMONFOX_TTS_LANGUAGE",
		"LEMONFOX_TTS_RESPONSE_FORMAT",
		"LEMONFOX_TTS_SPEED",
		"VAD_PAUSE_THRESHOLD",
		"VAD_MIN_SPEECH_SECONDS",
		"VAD_AGGRESSIVENESS",
		"AUDIO_BACKEND",
		"LOG_LEVEL",
		"LOG_FILE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.STTURL != "https://api.lemonfox.ai/v1/audio/transcriptions" {
		t.Fatalf("STTURL = %q, want lemonfox transcriptions endpoint", cfg.STTURL)
	}
	if cfg.STTFallbackURL != "https://transcribe.whisperapi.com" {
		t.Fatalf("STTFallbackURL = %q, want whisperapi fallback", cfg.STTFallbackURL)
	}
	if cfg.STTLanguage != "english" || cfg.STTResponseFormat != "json" {
		t.Fatalf("STT defaults = %q/%q, want english/json", cfg.STTLanguage, cfg.STTResponseFormat)
	}
	if cfg.ChatModel != "llama-8b-chat" {
		t.Fatalf("ChatModel = %q, want llama-8b-chat", cfg.ChatModel)
	}
	if cfg.TTSModel != "tts-1" || cfg.TTSVoice != "heart" || cfg.TTSLanguage != "en-us" {
		t.Fatalf("TTS defaults = %q/%q/%q, want tts-1/heart/en-us", cfg.TTSModel, cfg.TTSVoice, cfg.TTSLanguage)
	}
	if cfg.TTSSpeed != 1.0 {
		t.Fatalf("TTSSpeed = %v, want 1.0", cfg.TTSSpeed)
	}
	if cfg.VADPauseThreshold != 1500*time.Millisecond {
		t.Fatalf("VADPauseThreshold = %v, want 1.5s", cfg.VADPauseThreshold)
	}
	if cfg.VADMinSpeechDuration != 500*time.Millisecond {
		t.Fatalf("VADMinSpeechDuration = %v, want 500ms", cfg.VADMinSpeechDuration)
	}
	if cfg.VADAggressiveness != 3 {
		t.Fatalf("VADAggressiveness = %d, want 3", cfg.VADAggressiveness)
	}
	if cfg.MaxReplyWordsAutoListen != 100 || cfg.MaxReplyWordsManual != 50 {
		t.Fatalf("word budgets = %d/%d, want 100/50", cfg.MaxReplyWordsAutoListen, cfg.MaxReplyWordsManual)
	}
	if cfg.AudioBackend != "miniaudio" {
		t.Fatalf("AudioBackend = %q, want miniaudio", cfg.AudioBackend)
	}
	if cfg.LogLevel != "INFO" {
		t.Fatalf("LogLevel = %q, want INFO", cfg.LogLevel)
	}
}

func TestLoadParsesSecondsAsFloats(t *testing.T) {
	clearEnv(t)
	t.Setenv("VAD_PAUSE_THRESHOLD", "2.5")
	t.Setenv("VAD_MIN_SPEECH_SECONDS", "0.25")
	t.Setenv("LEMONFOX_TTS_SPEED", "1.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VADPauseThreshold != 2500*time.Millisecond {
		t.Fatalf("VADPauseThreshold = %v, want 2.5s", cfg.VADPauseThreshold)
	}
	if cfg.VADMinSpeechDuration != 250*time.Millisecond {
		t.Fatalf("VADMinSpeechDuration = %v, want 250ms", cfg.VADMinSpeechDuration)
	}
	if cfg.TTSSpeed != 1.2 {
		t.Fatalf("TTSSpeed = %v, want 1.2", cfg.TTSSpeed)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("VAD_AGGRESSIVENESS", "7")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range aggressiveness")
	}

	clearEnv(t)
	t.Setenv("LEMONFOX_TTS_SPEED", "fast")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable speed")
	}

	clearEnv(t)
	t.Setenv("AUDIO_BACKEND", "pulseaudio")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown audio backend")
	}
}

func TestLoadUppercasesLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Fatalf("LogLevel = %q, want DEBUG", cfg.LogLevel)
	}
}
