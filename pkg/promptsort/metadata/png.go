package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Text chunk keywords in the order they are preferred.
var pngKeys = []string{"parameters", "prompt", "description", "comment"}

// pngText walks the chunk list and returns the first usable text entry.
func pngText(data []byte) (string, error) {
	entries, err := pngTextEntries(data)
	if err != nil {
		return "", err
	}
	for _, key := range pngKeys {
		v, ok := entries[key]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		// Node-graph workflows store JSON under "prompt"; there are no tags in it.
		if key != "parameters" && strings.HasPrefix(strings.TrimSpace(v), "{") {
			continue
		}
		return v, nil
	}
	return "", ErrNoMetadata
}

// pngTextEntries collects tEXt, zTXt and iTXt chunks keyed by lowercase
// keyword. The first chunk for a keyword wins.
func pngTextEntries(data []byte) (map[string]string, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("png: bad signature")
	}
	entries := make(map[string]string)
	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		length := binary.BigEndian.Uint32(rest[0:4])
		typ := string(rest[4:8])
		if uint64(length)+12 > uint64(len(rest)) {
			return nil, fmt.Errorf("png: truncated %s chunk", typ)
		}
		body := rest[8 : 8+length]
		rest = rest[12+length:]

		var (
			key, value string
			err        error
		)
		switch typ {
		case "tEXt":
			key, value, err = decodeTEXt(body)
		case "zTXt":
			key, value, err = decodeZTXt(body)
		case "iTXt":
			key, value, err = decodeITXt(body)
		case "IEND":
			return entries, nil
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("png: %s: %w", typ, err)
		}
		key = strings.ToLower(key)
		if _, seen := entries[key]; !seen {
			entries[key] = value
		}
	}
	return entries, nil
}

func splitKeyword(body []byte) (string, []byte, error) {
	i := bytes.IndexByte(body, 0)
	if i < 0 {
		return "", nil, fmt.Errorf("missing keyword terminator")
	}
	return string(body[:i]), body[i+1:], nil
}

func latin1(b []byte) (string, error) {
	return charmap.ISO8859_1.NewDecoder().String(string(b))
}

func decodeTEXt(body []byte) (string, string, error) {
	key, text, err := splitKeyword(body)
	if err != nil {
		return "", "", err
	}
	value, err := latin1(text)
	return key, value, err
}

func decodeZTXt(body []byte) (string, string, error) {
	key, rest, err := splitKeyword(body)
	if err != nil {
		return "", "", err
	}
	if len(rest) < 1 || rest[0] != 0 {
		return "", "", fmt.Errorf("unsupported compression method")
	}
	raw, err := inflate(rest[1:])
	if err != nil {
		return "", "", err
	}
	value, err := latin1(raw)
	return key, value, err
}

func decodeITXt(body []byte) (string, string, error) {
	key, rest, err := splitKeyword(body)
	if err != nil {
		return "", "", err
	}
	if len(rest) < 2 {
		return "", "", fmt.Errorf("short header")
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	// language tag and translated keyword
	for i := 0; i < 2; i++ {
		j := bytes.IndexByte(rest, 0)
		if j < 0 {
			return "", "", fmt.Errorf("missing header terminator")
		}
		rest = rest[j+1:]
	}
	if compressed {
		if rest, err = inflate(rest); err != nil {
			return "", "", err
		}
	}
	return key, string(rest), nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
