package codec

import "encoding/binary"

// Speech synthesis backends return raw little-endian PCM16 at 24kHz mono.
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1

	bitsPerSample = 16
	wavHeaderSize = 44
)

// PCM16ToWAV prepends a canonical 44-byte RIFF/WAVE header to raw
// little-endian PCM16 samples. Bits per sample is fixed at 16; all size
// fields are computed from the payload length.
func PCM16ToWAV(pcm []byte, sampleRate, channels int) []byte {
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, wavHeaderSize+dataLen)
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))
	copy(out[wavHeaderSize:], pcm)
	return out
}
