package metadata

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var (
	xmpStart = []byte("<x:xmpmeta")
	xmpEnd   = []byte("</x:xmpmeta>")
)

// xmpText locates an XMP packet anywhere in data and returns its
// dc:description.
func xmpText(data []byte) string {
	start := bytes.Index(data, xmpStart)
	if start < 0 {
		return ""
	}
	end := bytes.Index(data[start:], xmpEnd)
	if end < 0 {
		return ""
	}
	return xmpDescription(data[start : start+end+len(xmpEnd)])
}

// xmpDescription reads dc:description either as element text (usually an
// rdf:Alt/rdf:li list) or as an attribute on rdf:Description. The html
// tokenizer is lenient enough for the namespaced XML of an XMP packet.
func xmpDescription(packet []byte) string {
	z := html.NewTokenizer(bytes.NewReader(packet))
	depth := 0
	var parts []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.TrimSpace(strings.Join(parts, " "))
			}
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "dc:description" {
				if tok.Type == html.StartTagToken {
					depth++
				}
				continue
			}
			for _, a := range tok.Attr {
				if a.Key == "dc:description" && strings.TrimSpace(a.Val) != "" {
					parts = append(parts, a.Val)
				}
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.Data == "dc:description" && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				if text := strings.TrimSpace(string(z.Text())); text != "" {
					parts = append(parts, text)
				}
			}
		}
	}
}
