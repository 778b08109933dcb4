// Package codec converts audio between the websocket wire encoding and raw bytes.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Encode returns the text-safe representation of b used on the wire.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode. Browsers occasionally send data URLs or unpadded
// payloads, so both are accepted.
func Decode(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("could not decode audio payload: %w", err)
}
