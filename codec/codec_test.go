package codec

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 3, 255, 4096, 10007} {
		b := make([]byte, n)
		rng.Read(b)

		got, err := Decode(Encode(b))
		require.NoError(t, err)
		assert.Equal(t, b, got, "length %d", n)
	}
}

func TestDecode_AcceptsDataURLAndUnpadded(t *testing.T) {
	got, err := Decode("data:audio/webm;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got, err = Decode("AQI")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("not base64 at all!")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "could not decode audio payload")
}

func TestWrapPCM_Header(t *testing.T) {
	for _, l := range []int{0, 1, 2, 480, 48000} {
		pcm := make([]byte, l)
		for i := range pcm {
			pcm[i] = byte(i)
		}
		wav := WrapPCM(pcm, 24000)

		require.Len(t, wav, HeaderSize+l)
		assert.Equal(t, "RIFF", string(wav[0:4]))
		assert.Equal(t, uint32(36+l), binary.LittleEndian.Uint32(wav[4:8]))
		assert.Equal(t, "WAVE", string(wav[8:12]))
		assert.Equal(t, "fmt ", string(wav[12:16]))
		assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(wav[16:20]))
		assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
		assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
		assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
		assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
		assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
		assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
		assert.Equal(t, "data", string(wav[36:40]))
		assert.Equal(t, uint32(l), binary.LittleEndian.Uint32(wav[40:44]))
		assert.Equal(t, pcm, wav[HeaderSize:])
	}
}

func TestIsWAV(t *testing.T) {
	assert.True(t, IsWAV(WrapPCM([]byte{0, 0}, 16000)))
	assert.False(t, IsWAV([]byte{0, 0, 0, 0}))
	assert.False(t, IsWAV(nil))
}
