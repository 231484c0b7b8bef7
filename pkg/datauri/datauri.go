// Package datauri converts between raw media bytes and the data URI form
// used on the job wire: inbound conditioning images arrive base64 encoded
// (with or without a data: prefix) and outbound videos leave as
// data:video/mp4;base64 payloads.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const MP4Prefix = "data:video/mp4;base64,"

// EncodeMP4 wraps raw MP4 bytes in a data URI.
func EncodeMP4(data []byte) string {
	return MP4Prefix + base64.StdEncoding.EncodeToString(data)
}

// DecodeImage decodes a base64 image payload. A data URI prefix
// ("data:image/png;base64," and friends) is tolerated and stripped, matching
// what browser clients tend to send.
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("datauri: empty payload")
	}
	if idx := strings.Index(s, "base64,"); idx >= 0 {
		s = s[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients emit unpadded base64.
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("datauri: decode image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("datauri: empty image")
	}
	return data, nil
}
