package llm

import (
	"path/filepath"
	"strings"
)

// DefaultAudioMIMEType is used for extensions outside the table.
const DefaultAudioMIMEType = "audio/mp3"

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
}

// MIMETypeForFile maps a recording's file name to the MIME type sent upstream.
func MIMETypeForFile(name string) string {
	if mt, ok := audioMIMETypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return DefaultAudioMIMEType
}

// IsKnownAudioExt reports whether the file extension is in the MIME table.
func IsKnownAudioExt(name string) bool {
	_, ok := audioMIMETypes[strings.ToLower(filepath.Ext(name))]
	return ok
}
