// Package media loads and validates the reference images, frame images, and
// reference videos attached to a generation request.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrUnsupportedVideoType = errors.New("unsupported video type")
	ErrEmptyFile            = errors.New("file is empty")
)

var (
	imageExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true,
	}
)

// MaxReferenceBytes caps reference media size at 256 MiB to avoid loading
// arbitrarily large files into memory.
const MaxReferenceBytes = 256 << 20

// LoadImage reads a reference or frame image from disk.
func LoadImage(path string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImageType, ext)
	}
	return readFile(path)
}

// LoadVideo reads a reference video from disk and probes its duration in
// seconds. Duration is rounded up so the 30-second cap cannot be dodged by a
// fractional overrun.
func LoadVideo(path string) ([]byte, int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !videoExtensions[ext] {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedVideoType, ext)
	}

	data, err := readFile(path)
	if err != nil {
		return nil, 0, err
	}

	seconds, err := ProbeMP4Duration(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to probe video duration: %w", err)
	}
	return data, seconds, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if info.Size() > MaxReferenceBytes {
		return nil, fmt.Errorf("file too large: %d bytes, max %d", info.Size(), MaxReferenceBytes)
	}
	return os.ReadFile(path)
}
