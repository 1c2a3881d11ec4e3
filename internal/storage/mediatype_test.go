package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":               "jpg",
		"IMAGE/JPEG":               "jpg",
		"image/png":                "png",
		"image/png; charset=utf-8": "png",
		"image/svg+xml":            "svg",
		"image/webp":               "webp",
		"application/octet-stream": "jpg",
		"":                         "jpg",
		"not a media type":         "jpg",
	}
	for mediaType, ext := range tests {
		assert.Equal(t, ext, ExtensionFor(mediaType), mediaType)
	}
}

func TestFilenameFor(t *testing.T) {
	assert.Equal(t, "cat-1.jpg", FilenameFor("cat-1", "image/jpeg"))
	assert.Equal(t, "cat-1.png", FilenameFor("cat-1", "image/png"))
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectMediaType("image/jpeg", pngHeader))
	assert.Equal(t, "image/png", DetectMediaType("", pngHeader))
	assert.Equal(t, "image/png", DetectMediaType("application/octet-stream", pngHeader))
}

func TestDetectFileMediaType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.bin")
	require.NoError(t, os.WriteFile(path, pngHeader, 0644))

	mt, err := DetectFileMediaType(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)

	_, err = DetectFileMediaType(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeOf("cat-1.jpg"))
	assert.Equal(t, "image/png", ContentTypeOf("dog.png"))
	assert.Equal(t, "application/octet-stream", ContentTypeOf("README"))
}
