// Package audio provides RIFF/WAVE parsing and duration-bounded segmentation
// of PCM audio.
//
// Long recordings are split into bounded-duration chunks so each chunk can be
// submitted to the recognition service as an independent job. Every chunk is
// re-emitted as a standalone, self-describing WAV buffer: the source file's
// fmt chunk is copied verbatim and a fresh RIFF header is synthesised, so a
// chunk can be uploaded or written to disk without further processing.
//
// Splits always fall on frame (block-align) boundaries.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotWAV is returned when the input does not carry a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: input is not a RIFF/WAVE file")

// Chunk is one bounded-duration slice of the source audio.
type Chunk struct {
	// Index is the chunk's ordinal position in the source, starting at 0.
	Index int

	// Data is a complete standalone WAV buffer for this slice.
	Data []byte

	// Duration is the audible length of this slice.
	Duration time.Duration
}

// format holds the fields of the fmt chunk the segmenter needs, plus the raw
// chunk bytes for verbatim re-emission.
type format struct {
	sampleRate uint32
	blockAlign uint16
	raw        []byte
}

// Segment reads a complete WAV stream from r and splits its PCM payload into
// chunks of at most maxDuration each. The final chunk carries the remainder
// and may be shorter. A source shorter than maxDuration yields exactly one
// chunk.
func Segment(r io.Reader, maxDuration time.Duration) ([]Chunk, error) {
	if maxDuration <= 0 {
		return nil, fmt.Errorf("audio: max chunk duration %v must be positive", maxDuration)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("audio: read source: %w", err)
	}

	f, pcm, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	framesPerChunk := int(maxDuration.Seconds() * float64(f.sampleRate))
	if framesPerChunk < 1 {
		framesPerChunk = 1
	}
	frameSize := int(f.blockAlign)
	totalFrames := len(pcm) / frameSize

	var chunks []Chunk
	for start := 0; start < totalFrames || len(chunks) == 0; start += framesPerChunk {
		n := framesPerChunk
		if start+n > totalFrames {
			n = totalFrames - start
		}
		slice := pcm[start*frameSize : (start+n)*frameSize]
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Data:     assembleWAV(f, slice),
			Duration: time.Duration(float64(n) / float64(f.sampleRate) * float64(time.Second)),
		})
	}
	return chunks, nil
}

// parseWAV walks the RIFF chunk list and returns the fmt descriptor and the
// raw PCM payload of the data chunk.
func parseWAV(data []byte) (format, []byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format{}, nil, ErrNotWAV
	}

	var f format
	var pcm []byte
	haveFmt, haveData := false, false

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return format{}, nil, fmt.Errorf("audio: truncated %q chunk (%d bytes declared, %d available)", id, size, len(data)-body)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return format{}, nil, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			f.sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			f.blockAlign = binary.LittleEndian.Uint16(data[body+12 : body+14])
			f.raw = data[body : body+size]
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
			haveData = true
		}

		// Chunks are word-aligned: odd sizes carry one padding byte.
		off = body + size + size%2
	}

	if !haveFmt {
		return format{}, nil, errors.New("audio: missing fmt chunk")
	}
	if !haveData {
		return format{}, nil, errors.New("audio: missing data chunk")
	}
	if f.blockAlign == 0 || f.sampleRate == 0 {
		return format{}, nil, fmt.Errorf("audio: invalid fmt chunk (sample rate %d, block align %d)", f.sampleRate, f.blockAlign)
	}
	return f, pcm, nil
}

// assembleWAV builds a standalone WAV buffer from the source fmt chunk and a
// PCM slice.
func assembleWAV(f format, pcm []byte) []byte {
	// RIFF header (12) + fmt header (8) + fmt body + data header (8) + payload.
	out := make([]byte, 0, 12+8+len(f.raw)+8+len(pcm))

	riffSize := 4 + 8 + len(f.raw) + 8 + len(pcm)
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(riffSize))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(f.raw)))
	out = append(out, f.raw...)

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	out = append(out, pcm...)
	return out
}
