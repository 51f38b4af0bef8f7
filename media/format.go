package media

import (
	"path/filepath"
	"strings"
)

// DefaultFormat is assumed when the extension is not recognized.
const DefaultFormat = "wav"

var extensionFormats = map[string]string{
	".mp3":  "mp3",
	".wav":  "wav",
	".m4a":  "m4a",
	".flac": "flac",
	".ogg":  "ogg",
	".webm": "webm",
}

var formatMIMETypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"ogg":  "audio/ogg",
	"webm": "audio/webm",
}

// FormatFromExtension maps a file name to its audio format name.
// Unknown extensions map to DefaultFormat.
func FormatFromExtension(path string) string {
	if f, ok := lookupExtension(path); ok {
		return f
	}
	return DefaultFormat
}

func lookupExtension(path string) (string, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// MIMEType returns the content type for a format name, falling back to
// application/octet-stream.
func MIMEType(format string) string {
	if m, ok := formatMIMETypes[strings.ToLower(format)]; ok {
		return m
	}
	return "application/octet-stream"
}
