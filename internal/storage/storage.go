package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Uploader stores answer recordings and returns where they landed.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

var recordingExt = map[string]string{
	"audio/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/flac":  ".flac",
	"audio/mpeg":  ".mp3",
}

// RecordingObject names the object for one answer recording:
// answers/<session>/<question>-<random><ext>. Every attempt gets its own name.
func RecordingObject(sessionID, questionID, contentType string) string {
	name := questionID + "-" + uuid.NewString() + extensionFor(contentType)
	return path.Join("answers", sessionID, name)
}

func extensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	mt = strings.ToLower(mt)
	if ext, ok := recordingExt[mt]; ok {
		return ext
	}
	return ""
}
