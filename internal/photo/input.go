package photo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadEncoding rejects payloads that are not valid base64.
var ErrBadEncoding = errors.New("malformed base64 payload")

// DecodeInput decodes a base64 photo payload, tolerating an optional
// data URL prefix ("data:image/png;base64,...."). Reads are bounded at
// maxBytes+1 so an oversized payload is rejected without buffering all of
// it; the caller still gets ErrTooLarge, same as the post-decode check in
// Normalize.
func DecodeInput(input string, maxBytes int64) ([]byte, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrBadEncoding)
	}

	if strings.HasPrefix(strings.ToLower(value), "data:") {
		if idx := strings.Index(value, ","); idx >= 0 {
			value = value[idx+1:]
		}
	}

	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(value))
	data, err := io.ReadAll(io.LimitReader(decoder, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrTooLarge, maxBytes)
	}

	return data, nil
}
