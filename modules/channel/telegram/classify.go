package telegram

import (
	"path/filepath"
	"strings"
)

// Media kinds produced by classifyDocument.
const (
	kindVideo    = "video"
	kindAudio    = "audio"
	kindPhoto    = "photo"
	kindDocument = "document"
)

var (
	videoExts = map[string]struct{}{
		".mp4": {}, ".mkv": {}, ".mov": {}, ".webm": {},
		".avi": {}, ".mpeg": {}, ".mpg": {}, ".m4v": {},
	}
	audioExts = map[string]struct{}{
		".mp3": {}, ".m4a": {}, ".aac": {}, ".ogg": {}, ".opus": {},
		".wav": {}, ".flac": {}, ".alac": {}, ".wma": {},
	}
	imageExts = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".bmp": {},
		".webp": {}, ".tiff": {}, ".tif": {},
	}
)

// classifyDocument maps a document to the native media kind it should be
// re-sent as, judged by MIME prefix first and file extension second. It
// returns "" when neither gives a signal.
func classifyDocument(doc *Document) string {
	mime := strings.ToLower(doc.MIMEType)
	ext := strings.ToLower(filepath.Ext(doc.FileName))

	switch {
	case strings.HasPrefix(mime, "video/"):
		return kindVideo
	case strings.HasPrefix(mime, "audio/"):
		return kindAudio
	case strings.HasPrefix(mime, "image/"):
		return kindPhoto
	}

	if _, ok := videoExts[ext]; ok {
		return kindVideo
	}
	if _, ok := audioExts[ext]; ok {
		return kindAudio
	}
	if _, ok := imageExts[ext]; ok {
		return kindPhoto
	}

	if mime != "" || ext != "" {
		return kindDocument
	}
	return ""
}
