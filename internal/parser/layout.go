package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadLayout reads a pre-extracted document layout from a JSON, YAML or TOML file.
func LoadLayout(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return DecodeLayout(data, filepath.Ext(path))
}

// DecodeLayout decodes layout data according to the file extension.
func DecodeLayout(data []byte, ext string) (*Document, error) {
	var doc Document
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported layout file type: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	return &doc, nil
}

// Load opens path as a PDF or a layout file depending on its extension.
func Load(path string) (*Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return OpenPDF(path)
	}
	return LoadLayout(path)
}
