// Package fastq — tagmap.go implements the tag map document uploaded
// alongside the data files.
package fastq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// metaTimestampLayout stamps default tag map file names, compact enough
// to live in a key yet sortable by generation time.
const metaTimestampLayout = "060102-150405"

// Entry locates one uploaded file on the remote side.
type Entry struct {
	// Path is the object's full remote key.
	Path string `json:"path"`
}

// TagMap associates every uploaded data file with the pipeline tag of the
// batch. It is built incrementally as files pass validation and written
// once before the upload starts.
type TagMap struct {
	// Tag is the pipeline tag shared by the whole batch.
	Tag string `json:"tag"`

	// Generated records when the document was created, RFC 3339.
	Generated string `json:"generated"`

	// Files maps each file's base name to its remote location.
	Files map[string]Entry `json:"files"`
}

// NewTagMap creates an empty tag map stamped with the current time.
func NewTagMap(tag string) *TagMap {
	return &TagMap{
		Tag:       tag,
		Generated: time.Now().Format(time.RFC3339),
		Files:     make(map[string]Entry),
	}
}

// Add records that the file at localPath will be stored under remoteKey.
func (m *TagMap) Add(localPath, remoteKey string) {
	m.Files[filepath.Base(localPath)] = Entry{Path: remoteKey}
}

// Write renders the document as indented JSON into the file at path.
func (m *TagMap) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			"failed to encode tag map", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write tag map to %s", path), err)
	}
	return nil
}

// DefaultMetaName returns the default tag map file name for a batch
// started now, of the form meta-<timestamp>.json.
func DefaultMetaName() string {
	return fmt.Sprintf("meta-%s.json", time.Now().Format(metaTimestampLayout))
}
