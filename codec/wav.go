package codec

import (
	"bytes"
	"encoding/binary"
)

const (
	// HeaderSize is the size of the canonical RIFF/WAVE header written by WrapPCM.
	HeaderSize    = 44
	channels      = 1
	bitsPerSample = 16
)

// WrapPCM prefixes headerless mono 16-bit little-endian PCM with a WAV header.
func WrapPCM(pcm []byte, sampleRate int) []byte {
	dataSize := len(pcm)
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, HeaderSize+dataSize)

	// RIFF header
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	// fmt chunk
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)                            // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)                             // PCM format
	binary.LittleEndian.PutUint16(out[22:24], channels)                      // channels
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))            // sample rate
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*blockAlign)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))            // block align
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)                 // bits per sample

	// data chunk
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	copy(out[HeaderSize:], pcm)
	return out
}

// IsWAV reports whether data already starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}
