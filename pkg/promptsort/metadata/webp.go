package metadata

import (
	"encoding/binary"
	"fmt"
)

// webpText reads the RIFF chunk list for EXIF and XMP payloads.
func webpText(data []byte) (string, error) {
	chunks, err := riffChunks(data)
	if err != nil {
		return "", err
	}
	if payload, ok := chunks["EXIF"]; ok {
		if text := exifText(payload); text != "" {
			return text, nil
		}
	}
	if payload, ok := chunks["XMP "]; ok {
		if text := xmpText(payload); text != "" {
			return text, nil
		}
	}
	return "", ErrNoMetadata
}

func riffChunks(data []byte) (map[string][]byte, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("webp: short header")
	}
	chunks := make(map[string][]byte)
	rest := data[12:]
	for len(rest) >= 8 {
		id := string(rest[0:4])
		size := binary.LittleEndian.Uint32(rest[4:8])
		if uint64(size)+8 > uint64(len(rest)) {
			return nil, fmt.Errorf("webp: truncated %q chunk", id)
		}
		if _, seen := chunks[id]; !seen {
			chunks[id] = rest[8 : 8+size]
		}
		next := 8 + uint64(size) + uint64(size&1)
		if next > uint64(len(rest)) {
			break
		}
		rest = rest[next:]
	}
	return chunks, nil
}
