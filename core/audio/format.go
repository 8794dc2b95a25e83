package audio

// Format is a best-effort label for an audio container detected from raw
// bytes.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatOgg     Format = "ogg"
	FormatMP3     Format = "mp3"
	FormatUnknown Format = "unknown"
)

// DetectFormat inspects file signatures to classify raw audio bytes. It is
// used to tell real audio apart from error payloads that APIs sometimes
// return with a 200 status.
func DetectFormat(data []byte) Format {
	if len(data) == 0 {
		return FormatUnknown
	}

	if len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return FormatWAV
	}
	if len(data) >= 4 && string(data[:4]) == "fLaC" {
		return FormatFLAC
	}
	if len(data) >= 4 && string(data[:4]) == "OggS" {
		return FormatOgg
	}
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return FormatMP3
	}
	// MP3 frame sync without an ID3 tag.
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}

	return FormatUnknown
}
