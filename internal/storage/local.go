package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lgulliver/craftcms/internal/common"
	"github.com/lgulliver/craftcms/pkg/utils"
	"github.com/rs/zerolog/log"
)

const tempMarker = ".tmp."

// LocalStorage implements BlobStore on a single directory of the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Error().Err(err).Str("path", basePath).Msg("failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	log.Info().Str("path", basePath).Msg("local storage initialized")
	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// BasePath returns the storage root
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// isTempName reports whether name is a Save temp file: <final name>.tmp.<nanos>
func isTempName(name string) bool {
	i := strings.LastIndex(name, tempMarker)
	if i < 0 {
		return false
	}
	suffix := name[i+len(tempMarker):]
	if suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolve maps a filename to its full path, refusing anything that is not a
// plain name inside the root.
func (ls *LocalStorage) resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("%w: invalid filename %q", common.ErrIOFailure, filename)
	}
	// in-flight writes are never addressable
	if isTempName(filename) {
		return "", fmt.Errorf("%w: invalid filename %q", common.ErrIOFailure, filename)
	}
	return filepath.Join(ls.basePath, filename), nil
}

// Save writes data atomically: temp file, fsync, rename over the final name
func (ls *LocalStorage) Save(ctx context.Context, data []byte, slug, mediaType string) (string, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	filename := FilenameFor(slug, mediaType)
	fullPath, err := ls.resolve(filename)
	if err != nil {
		return "", err
	}

	tempPath := fullPath + tempMarker + fmt.Sprintf("%d", time.Now().UnixNano())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Str("temp_path", tempPath).Msg("failed to create temporary file")
		return "", fmt.Errorf("%w: failed to create temporary file: %v", common.ErrIOFailure, err)
	}

	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	bytesWritten, err := io.Copy(tempFile, bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("failed to write content to temporary file")
		return "", fmt.Errorf("%w: failed to write content: %v", common.ErrIOFailure, err)
	}

	if err := tempFile.Sync(); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("failed to sync temporary file")
		return "", fmt.Errorf("%w: failed to sync temporary file: %v", common.ErrIOFailure, err)
	}

	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		log.Error().Err(err).Str("filename", filename).Str("temp_path", tempPath).Msg("failed to move temporary file to final location")
		return "", fmt.Errorf("%w: failed to move file to final location: %v", common.ErrIOFailure, err)
	}

	log.Info().
		Str("filename", filename).
		Str("media_type", mediaType).
		Int64("bytes_written", bytesWritten).
		Str("checksum", utils.ComputeSHA256(data)).
		Dur("duration", time.Since(startTime)).
		Msg("blob stored")

	return filename, nil
}

// Delete removes a blob. Deleting a blob that is not there succeeds, which is
// what makes compensation and delete retries safe.
func (ls *LocalStorage) Delete(ctx context.Context, filename string) error {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := ls.resolve(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("filename", filename).Msg("blob already deleted or does not exist")
			return nil
		}
		log.Error().Err(err).Str("filename", filename).Msg("failed to delete blob")
		return fmt.Errorf("%w: failed to delete file: %v", common.ErrIOFailure, err)
	}

	log.Info().
		Str("filename", filename).
		Dur("duration", time.Since(startTime)).
		Msg("blob deleted")

	return nil
}

// Rename moves a blob to newBase, keeping its extension
func (ls *LocalStorage) Rename(ctx context.Context, oldFilename, newBase string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	oldPath, err := ls.resolve(oldFilename)
	if err != nil {
		return "", err
	}

	ext := strings.TrimPrefix(filepath.Ext(oldFilename), ".")
	if ext == "" {
		ext = DefaultExtension
	}
	newFilename := newBase + "." + ext
	newPath, err := ls.resolve(newFilename)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(oldPath); err != nil {
		log.Error().Err(err).Str("filename", oldFilename).Msg("rename source missing")
		return "", fmt.Errorf("%w: rename source %s: %v", common.ErrIOFailure, oldFilename, err)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		log.Error().Err(err).Str("from", oldFilename).Str("to", newFilename).Msg("failed to rename blob")
		return "", fmt.Errorf("%w: failed to rename file: %v", common.ErrIOFailure, err)
	}

	log.Info().Str("from", oldFilename).Str("to", newFilename).Msg("blob renamed")
	return newFilename, nil
}

// Open gets a blob's content
func (ls *LocalStorage) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// a half-written upload does not exist yet as far as readers are concerned
	if isTempName(filename) {
		return nil, fmt.Errorf("%w: blob %s", common.ErrNotFound, filename)
	}

	fullPath, err := ls.resolve(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("filename", filename).Msg("blob not found")
			return nil, fmt.Errorf("%w: blob %s", common.ErrNotFound, filename)
		}
		log.Error().Err(err).Str("filename", filename).Msg("failed to open blob")
		return nil, fmt.Errorf("%w: failed to open file: %v", common.ErrIOFailure, err)
	}

	return file, nil
}

// Exists checks if a blob exists
func (ls *LocalStorage) Exists(ctx context.Context, filename string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	fullPath, err := ls.resolve(filename)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		log.Error().Err(err).Str("filename", filename).Msg("failed to check blob existence")
		return false, fmt.Errorf("%w: failed to check file existence: %v", common.ErrIOFailure, err)
	}

	return true, nil
}

// List returns the names of all stored blobs, skipping in-flight temp files
func (ls *LocalStorage) List(ctx context.Context) ([]string, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		log.Error().Err(err).Str("path", ls.basePath).Msg("failed to list blobs")
		return nil, fmt.Errorf("%w: failed to list files: %v", common.ErrIOFailure, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isTempName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	log.Debug().
		Int("count", len(names)).
		Dur("duration", time.Since(startTime)).
		Msg("blobs listed")

	return names, nil
}
