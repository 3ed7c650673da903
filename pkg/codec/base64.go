// Package codec holds the pure asset transforms used by the generation
// pipeline: base64 transport decoding, wrapping raw PCM in a WAV container,
// and bounding illustration size before upload. No function here performs I/O.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeBase64 decodes a base64 payload into raw bytes. A data URI prefix
// ("data:image/png;base64,....") is stripped if present, since some backends
// transport inline assets that way.
func DecodeBase64(s string) ([]byte, error) {
	if idx := strings.IndexByte(s, ','); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return data, nil
}

// EncodeBase64 is the inverse of DecodeBase64 (without a data URI prefix).
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
