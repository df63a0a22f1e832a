// Package convert provides functions to convert between GORM models and core archive types
package convert

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/gridbots/programmable/internal/model"
	"github.com/gridbots/programmable/pkg/core"
)

// ProgramToGorm converts an archived program of objectID to its row.
func ProgramToGorm(objectID int, p core.ProgramSource) model.ProgramRecord {
	return model.ProgramRecord{
		ObjectID: objectID,
		Index:    p.Index,
		Name:     p.Name,
		Source:   p.Source,
		ReadOnly: p.ReadOnly,
		Runnable: p.Runnable,
		Filename: p.Filename,
	}
}

// ProgramToCore converts a program row back to its archive form.
func ProgramToCore(r model.ProgramRecord) core.ProgramSource {
	return core.ProgramSource{
		Index:    r.Index,
		Name:     r.Name,
		Source:   r.Source,
		ReadOnly: r.ReadOnly,
		Runnable: r.Runnable,
		Filename: r.Filename,
	}
}

// recordsToJSON encodes trace records for DB storage.
func recordsToJSON(records []core.TraceRecord) (datatypes.JSON, error) {
	if len(records) == 0 {
		return datatypes.JSON("[]"), nil
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// TraceToGorm converts a trace recording to its row.
func TraceToGorm(t core.TraceRecording) (model.TraceRecording, error) {
	records, err := recordsToJSON(t.Records)
	if err != nil {
		return model.TraceRecording{}, fmt.Errorf("failed to encode trace records: %w", err)
	}
	return model.TraceRecording{
		ID:         t.ID,
		ObjectID:   t.ObjectID,
		Program:    t.Program,
		Source:     t.Source,
		Records:    records,
		OriginX:    t.Origin.X,
		OriginY:    t.Origin.Y,
		OriginZ:    t.Origin.Z,
		Heading:    t.Heading,
		Path:       t.Path,
		Length:     t.Length,
		RecordedAt: t.RecordedAt,
	}, nil
}

// TraceToCore converts a trace row back to a recording.
func TraceToCore(r model.TraceRecording) (core.TraceRecording, error) {
	var records []core.TraceRecord
	if len(r.Records) > 0 {
		if err := json.Unmarshal(r.Records, &records); err != nil {
			return core.TraceRecording{}, fmt.Errorf("failed to decode records of trace %d: %w", r.ID, err)
		}
	}
	return core.TraceRecording{
		ID:         r.ID,
		ObjectID:   r.ObjectID,
		Program:    r.Program,
		Source:     r.Source,
		Records:    records,
		Origin:     core.Vector{X: r.OriginX, Y: r.OriginY, Z: r.OriginZ},
		Heading:    r.Heading,
		Path:       r.Path,
		Length:     r.Length,
		RecordedAt: r.RecordedAt,
	}, nil
}
