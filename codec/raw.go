package codec

import (
	"errors"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("codec: payload is not valid UTF-8")

// Bytes passes payloads through untouched, for responses consumed as raw
// bytes such as playlists or thumbnails.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String decodes text payloads. Invalid UTF-8 is an error.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }

func (String) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
