package media

import (
	"bytes"
	"errors"
	"strings"
)

// ErrNotImage is returned when content does not match any supported image
// signature.
var ErrNotImage = errors.New("file is not an image")

// SniffLen is how many leading bytes Detect needs.
const SniffLen = 512

type Kind struct {
	Ext  string
	MIME string
}

var (
	KindJPEG = Kind{Ext: "jpg", MIME: "image/jpeg"}
	KindPNG  = Kind{Ext: "png", MIME: "image/png"}
	KindGIF  = Kind{Ext: "gif", MIME: "image/gif"}
	KindWEBP = Kind{Ext: "webp", MIME: "image/webp"}
	KindAVIF = Kind{Ext: "avif", MIME: "image/avif"}
	KindSVG  = Kind{Ext: "svg", MIME: "image/svg+xml"}
)

var signatures = []struct {
	kind  Kind
	match func([]byte) bool
}{
	{KindJPEG, func(h []byte) bool { return bytes.HasPrefix(h, []byte{0xff, 0xd8, 0xff}) }},
	{KindPNG, func(h []byte) bool { return bytes.HasPrefix(h, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}) }},
	{KindGIF, func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("GIF87a")) || bytes.HasPrefix(h, []byte("GIF89a"))
	}},
	{KindWEBP, func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP"))
	}},
	{KindAVIF, func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[4:8], []byte("ftyp")) && bytes.Contains(h[8:], []byte("avif"))
	}},
	{KindSVG, isSVG},
}

// Detect classifies content by its leading bytes, ignoring whatever type the
// client declared.
func Detect(head []byte) (Kind, error) {
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.kind, nil
		}
	}
	return Kind{}, ErrNotImage
}

func isSVG(head []byte) bool {
	trimmed := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(trimmed, "<svg") {
		return true
	}
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")
}
