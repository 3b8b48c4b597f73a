package metadata

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/text/encoding/unicode"
)

// jpegText tries EXIF first and falls back to an embedded XMP packet.
func jpegText(data []byte) (string, error) {
	if text := exifText(data); text != "" {
		return text, nil
	}
	if text := xmpText(data); text != "" {
		return text, nil
	}
	return "", ErrNoMetadata
}

// exifText decodes a JPEG stream or a bare TIFF/Exif block and returns
// UserComment, or ImageDescription when the comment is empty.
func exifText(data []byte) string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return ""
	}
	if tag, err := x.Get(exif.UserComment); err == nil {
		if text := decodeUserComment(tag.Val); strings.TrimSpace(text) != "" {
			return text
		}
	}
	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if text, err := tag.StringVal(); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// decodeUserComment handles the 8-byte character code prefix of the
// UserComment field.
func decodeUserComment(val []byte) string {
	if len(val) < 8 {
		return strings.TrimRight(string(val), "\x00")
	}
	code, payload := string(val[:8]), val[8:]
	switch {
	case strings.HasPrefix(code, "UNICODE"):
		return decodeUTF16(payload)
	case strings.HasPrefix(code, "ASCII"), code == "\x00\x00\x00\x00\x00\x00\x00\x00":
		return strings.TrimRight(string(payload), "\x00 ")
	default:
		return strings.TrimRight(string(val), "\x00 ")
	}
}

// decodeUTF16 guesses the byte order from where the zero bytes of ASCII
// text fall, since writers disagree on it.
func decodeUTF16(b []byte) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	var evenZero, oddZero int
	for i := 0; i < len(b); i += 2 {
		if b[i] == 0 {
			evenZero++
		}
		if b[i+1] == 0 {
			oddZero++
		}
	}
	order := unicode.BigEndian
	if oddZero > evenZero {
		order = unicode.LittleEndian
	}
	out, err := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\x00")
}
