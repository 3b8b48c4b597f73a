package metadata

import (
	"regexp"
	"strings"
)

var (
	illegalChars   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	lineBreaks     = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	settingsStart  = regexp.MustCompile(`Steps:`)
	negativeMarker = "Negative prompt:"
	modelPattern   = regexp.MustCompile(`Model: ([^,]+)`)
)

// ParseParameters splits an A1111-style parameter blob:
//
//	<positive prompt>
//	Negative prompt: <negative prompt>
//	Steps: 28, Sampler: Euler a, ..., Model: someModel, ...
//
// Text without the markers is treated as a bare positive prompt.
func ParseParameters(text string) Info {
	raw := illegalChars.ReplaceAllString(text, "")
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "UNICODE") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "UNICODE"))
	}
	if raw == "" {
		return Info{}
	}

	info := Info{Raw: raw}
	flat := strings.TrimSpace(lineBreaks.Replace(raw))

	head := flat
	if loc := settingsStart.FindStringIndex(flat); loc != nil {
		info.Settings = strings.TrimSpace(flat[loc[0]:])
		head = strings.TrimSpace(flat[:loc[0]])
	}
	if i := strings.Index(head, negativeMarker); i >= 0 {
		info.Negative = strings.TrimSpace(head[i+len(negativeMarker):])
		head = strings.TrimSpace(head[:i])
	}
	info.Positive = head

	if m := modelPattern.FindStringSubmatch(info.Settings); m != nil {
		info.Model = strings.TrimSpace(m[1])
	}
	return info
}
