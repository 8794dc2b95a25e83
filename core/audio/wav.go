package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeWAVPCM16LE(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeWAVPCM16LE(out io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	if _, err := out.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(36)+dataSize); err != nil {
		return err
	}
	if _, err := out.Write([]byte("WAVE")); err != nil {
		return err
	}

	if _, err := out.Write([]byte("fmt ")); err != nil {
		return err
	}
	for _, v := range []any{uint32(16), uint16(audioFormat), uint16(numChannels), uint32(sampleRate), byteRate, blockAlign, uint16(bitsPerSample)} {
		if err := binary.Write(out, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if _, err := out.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}

// DecodeWAV extracts raw PCM and its encoding metadata from a WAV container.
// Only uncompressed PCM is supported; that is what the synthesis API returns
// when asked for wav output.
func DecodeWAV(data []byte) ([]byte, EncodingInfo, error) {
	if DetectFormat(data) != FormatWAV {
		return nil, EncodingInfo{}, fmt.Errorf("not a RIFF/WAVE container")
	}

	var (
		info    EncodingInfo
		pcm     []byte
		sawFmt  bool
		sawData bool
	)

	// Walk the chunk list; fmt and data can be separated by optional chunks
	// (LIST, fact, ...).
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body > len(data) {
			return nil, EncodingInfo{}, fmt.Errorf("malformed WAV chunk %q", id)
		}
		end := body + size
		if end > len(data) {
			// Some encoders write a data size larger than the payload when
			// streaming; clamp to what is actually present.
			end = len(data)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, EncodingInfo{}, fmt.Errorf("WAV fmt chunk too short: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels := int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate := int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 {
				return nil, EncodingInfo{}, fmt.Errorf("unsupported WAV encoding: format=%d bits=%d", format, bits)
			}
			info = EncodingInfo{SampleRate: sampleRate, Channels: channels, Format: EncodingLinear16}
			sawFmt = true
		case "data":
			pcm = data[body:end]
			sawData = true
		}

		offset = end
		if size%2 == 1 {
			offset++ // chunks are word aligned
		}
	}

	if !sawFmt || !sawData {
		return nil, EncodingInfo{}, fmt.Errorf("WAV container missing fmt or data chunk")
	}
	return pcm, info, nil
}
