package voicevox

import (
	"bytes"
	"encoding/binary"
)

const (
	wavHeaderSize    = 44
	wavBitsPerSample = 16
)

// encodeWAV wraps mono 16-bit little-endian PCM in a canonical RIFF/WAVE
// container. When stereo is requested the mono stream is duplicated into an
// L+R pair first, since the engine always renders a single channel.
func encodeWAV(pcm []byte, sampleRate int, stereo bool) []byte {
	channels := 1
	if stereo {
		pcm = monoToStereo(pcm)
		channels = 2
	}

	blockAlign := channels * wavBitsPerSample / 8
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// monoToStereo duplicates each int16 mono sample into a stereo L+R pair.
func monoToStereo(pcm []byte) []byte {
	out := make([]byte, (len(pcm)/2)*4)
	for i := 0; i+1 < len(pcm); i += 2 {
		lo, hi := pcm[i], pcm[i+1]
		j := i * 2
		out[j] = lo
		out[j+1] = hi
		out[j+2] = lo
		out[j+3] = hi
	}
	return out
}
