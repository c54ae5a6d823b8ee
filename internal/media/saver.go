package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manash/vidgen/pkg/models"
)

// Saver writes generated videos to disk.
type Saver struct{}

func NewSaver() *Saver {
	return &Saver{}
}

func (s *Saver) Save(video *models.GeneratedVideo, path string) error {
	if len(video.Data) == 0 {
		return fmt.Errorf("no video data available")
	}

	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, video.Data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	video.Filename = path
	return nil
}

func (s *Saver) SaveAll(resp *models.Response, basePath string) ([]string, error) {
	paths := make([]string, 0, len(resp.Videos))

	for i := range resp.Videos {
		path := s.generatePath(basePath, i, len(resp.Videos))
		if err := s.Save(&resp.Videos[i], path); err != nil {
			return paths, fmt.Errorf("failed to save video %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func (s *Saver) generatePath(basePath string, index, total int) string {
	if basePath != "" {
		if total == 1 {
			return basePath
		}
		ext := filepath.Ext(basePath)
		base := basePath[:len(basePath)-len(ext)]
		return fmt.Sprintf("%s-%d%s", base, index+1, ext)
	}
	return GenerateFilename(index)
}

func GenerateFilename(index int) string {
	return GenerateFilenameWithTime(index, time.Now())
}

func GenerateFilenameWithTime(index int, t time.Time) string {
	timestamp := t.Format("20060102-150405")
	if index > 0 {
		return fmt.Sprintf("video-%s-%d.mp4", timestamp, index+1)
	}
	return fmt.Sprintf("video-%s.mp4", timestamp)
}
