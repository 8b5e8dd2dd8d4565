package audio

import "encoding/binary"

// PCMToInt16 converts 16-bit signed little-endian PCM bytes to a sample
// slice. Any trailing odd byte is silently ignored.
func PCMToInt16(pcm []byte) []int16 {
	n := len(pcm) / 2
	samples := make([]int16, n)
	for i := range n {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return samples
}

// Int16ToPCM converts a sample slice back to little-endian PCM bytes.
func Int16ToPCM(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(s))
	}
	return pcm
}

// Normalize converts a 16-bit sample to a float64 in [-1.0, 1.0).
func Normalize(s int16) float64 {
	return float64(s) / 32768.0
}

// EncodeWAV wraps raw PCM bytes in a standard 44-byte RIFF/WAVE header
// (PCM format tag, no extensions). Providers such as the OpenAI Whisper API
// reject bare PCM, so utterances are containerised before upload.
func EncodeWAV(pcm []byte, format Format) []byte {
	const (
		riffHeaderSize = 12
		fmtChunkSize   = 16
	)
	dataSize := len(pcm)
	fileSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	buf := make([]byte, 0, riffHeaderSize+8+fmtChunkSize+8+dataSize)

	// RIFF chunk descriptor.
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(fileSize))
	buf = append(buf, []byte("WAVE")...)

	// fmt sub-chunk.
	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, fmtChunkSize)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(format.Channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(format.SampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(format.BytesPerSecond()))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(format.SampleWidth*format.Channels))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(format.SampleWidth*8))

	// data sub-chunk.
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, pcm...)

	return buf
}
