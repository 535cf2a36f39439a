package formats

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// AudioSample is a decoded, playable PCM sample.
type AudioSample struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	Data          []byte
}

func (s *AudioSample) Duration() time.Duration {
	if s.SampleRate == 0 || s.Channels == 0 || s.BitsPerSample == 0 {
		return 0
	}
	byteRate := int64(s.SampleRate) * int64(s.Channels) * int64(s.BitsPerSample/8)
	if byteRate == 0 {
		return 0
	}
	return time.Duration(int64(len(s.Data)) * int64(time.Second) / byteRate)
}

const (
	riffMagic = 0x46464952 // "RIFF"
	waveMagic = 0x45564157 // "WAVE"
	fmtMagic  = 0x20746d66 // "fmt "
	dataMagic = 0x61746164 // "data"
)

// DecodeWAV decodes a RIFF/WAVE PCM payload. Compressed formats are rejected.
func DecodeWAV(payload []byte) (*AudioSample, error) {
	if len(payload) < 12 {
		return nil, errors.New("wav: payload too short for RIFF header")
	}
	if binary.LittleEndian.Uint32(payload[0:4]) != riffMagic ||
		binary.LittleEndian.Uint32(payload[8:12]) != waveMagic {
		return nil, errors.New("wav: not a RIFF/WAVE payload")
	}

	sample := &AudioSample{}
	sawFmt := false

	// Walk the chunk list; only "fmt " and "data" matter.
	pos := 12
	for pos+8 <= len(payload) {
		chunkID := binary.LittleEndian.Uint32(payload[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(payload[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(payload) {
			return nil, errors.Errorf("wav: chunk %08x overruns payload", chunkID)
		}

		switch chunkID {
		case fmtMagic:
			if chunkSize < 16 {
				return nil, errors.New("wav: fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(payload[body : body+2])
			if format != 1 {
				return nil, errors.Errorf("wav: unsupported format tag %d, PCM only", format)
			}
			sample.Channels = binary.LittleEndian.Uint16(payload[body+2 : body+4])
			sample.SampleRate = binary.LittleEndian.Uint32(payload[body+4 : body+8])
			sample.BitsPerSample = binary.LittleEndian.Uint16(payload[body+14 : body+16])
			sawFmt = true
		case dataMagic:
			sample.Data = payload[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		pos = body + chunkSize + (chunkSize & 1)
	}

	if !sawFmt {
		return nil, errors.New("wav: missing fmt chunk")
	}
	if sample.Data == nil {
		return nil, errors.New("wav: missing data chunk")
	}
	return sample, nil
}
