package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Item is one batch entry. Empty fields fall back to the batch defaults.
type Item struct {
	Index      int
	Prompt     string
	Model      string
	Aspect     string
	Resolution string
	Seconds    int
}

type jsonItem struct {
	Prompt     string `json:"prompt"`
	Model      string `json:"model,omitempty"`
	Aspect     string `json:"aspect_ratio,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Seconds    int    `json:"seconds,omitempty"`
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt or .json", ext)
	}
}

// ParseText reads one prompt per line; blank lines and #-comments are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		index++
		items = append(items, Item{
			Index:  index,
			Prompt: line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no prompts found in file")
	}

	return items, nil
}

// ParseJSON reads an array of items with optional per-item overrides.
func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var jsonItems []jsonItem
	if err := json.Unmarshal(data, &jsonItems); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(jsonItems) == 0 {
		return nil, fmt.Errorf("no prompts found in file")
	}

	items := make([]Item, len(jsonItems))
	for i, ji := range jsonItems {
		if strings.TrimSpace(ji.Prompt) == "" {
			return nil, fmt.Errorf("item %d has empty prompt", i+1)
		}
		items[i] = Item{
			Index:      i + 1,
			Prompt:     ji.Prompt,
			Model:      ji.Model,
			Aspect:     ji.Aspect,
			Resolution: ji.Resolution,
			Seconds:    ji.Seconds,
		}
	}

	return items, nil
}
