package storage

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultExtension is used for media types missing from the table. Uploads
// are always persisted, even when the type is not recognised.
const DefaultExtension = "jpg"

var extensionsByType = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/avif":    "avif",
}

// ExtensionFor maps a media type to a file extension
func ExtensionFor(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	if ext, ok := extensionsByType[mt]; ok {
		return ext
	}
	return DefaultExtension
}

// FilenameFor derives the stored filename of a blob
func FilenameFor(slug, mediaType string) string {
	return slug + "." + ExtensionFor(mediaType)
}

// DetectMediaType returns declared unless it is empty or generic, in which
// case the type is sniffed from the content.
func DetectMediaType(declared string, data []byte) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err == nil && mt != "" && mt != "application/octet-stream" {
		return mt
	}
	return mimetype.Detect(data).String()
}

// DetectFileMediaType sniffs the media type of a file on disk
func DetectFileMediaType(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// ContentTypeOf returns the media type a stored filename is served with
func ContentTypeOf(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	for mt, e := range extensionsByType {
		if e == ext {
			return mt
		}
	}
	return "application/octet-stream"
}
