// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gridbots/programmable/pkg/core"
)

// ArchiveExport is the root JSON structure
type ArchiveExport struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Objects    []ObjectExport `json:"objects"`
}

// ObjectExport is one object's archive
type ObjectExport struct {
	ObjectID int                   `json:"objectId"`
	Programs []core.ProgramSource  `json:"programs"`
	Stack    []byte                `json:"stack,omitempty"`
	Traces   []core.TraceRecording `json:"traces"`
}

// ExportedFilePath returns the path written by the last Close
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// exportJSON writes the archive to a JSON file, gzipped when configured
func (b *Backend) exportJSON() error {
	export := b.buildExport(time.Now().UTC())

	filename := fmt.Sprintf("archive_%s.json", export.ExportedAt.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if b.cfg.CompressOutput {
		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		w = gzWriter
	}
	if err := json.NewEncoder(w).Encode(export); err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport(at time.Time) ArchiveExport {
	ids := make([]int, 0, len(b.objects))
	for id := range b.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	export := ArchiveExport{
		ExportedAt: at,
		Objects:    make([]ObjectExport, 0, len(ids)),
	}
	for _, id := range ids {
		rec := b.objects[id]
		obj := ObjectExport{
			ObjectID: id,
			Programs: rec.Programs,
			Stack:    rec.Stack,
			Traces:   rec.Traces,
		}
		if obj.Programs == nil {
			obj.Programs = []core.ProgramSource{}
		}
		if obj.Traces == nil {
			obj.Traces = []core.TraceRecording{}
		}
		export.Objects = append(export.Objects, obj)
	}
	return export
}

// ReadExport decodes an archive written by Close, gzipped or not.
func ReadExport(path string) (ArchiveExport, error) {
	var export ArchiveExport

	f, err := os.Open(path)
	if err != nil {
		return export, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode archive: %w", err)
	}
	return export, nil
}
