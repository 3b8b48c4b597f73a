// Package metadata reads the generation parameters that image generators
// embed in PNG, JPEG and WebP files.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoMetadata is returned when a readable image carries no generation
// parameters.
var ErrNoMetadata = errors.New("no generation metadata")

// Format identifies the container an image was read from.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// Info is the parsed metadata of one image.
type Info struct {
	Format   Format
	Raw      string // cleaned blob as found in the file
	Positive string
	Negative string
	Settings string
	Model    string
}

// Collector extracts metadata from one file.
type Collector interface {
	Extract(ctx context.Context, path string) (Info, error)
}

// FileCollector reads metadata straight from the local filesystem.
type FileCollector struct{}

// Extract implements Collector.
func (FileCollector) Extract(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Parse(data)
}

// Parse detects the container format and extracts the parameter blob.
func Parse(data []byte) (Info, error) {
	format := Sniff(data)

	var (
		text string
		err  error
	)
	switch format {
	case FormatPNG:
		text, err = pngText(data)
	case FormatJPEG:
		text, err = jpegText(data)
	case FormatWebP:
		text, err = webpText(data)
	default:
		return Info{Format: format}, ErrNoMetadata
	}
	if err != nil {
		return Info{Format: format}, err
	}

	info := ParseParameters(text)
	info.Format = format
	if info.Raw == "" {
		return info, ErrNoMetadata
	}
	return info, nil
}

// Sniff identifies the image container from its magic bytes.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return FormatPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	}
	return FormatUnknown
}
