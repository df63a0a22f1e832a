// pkg/core/archive.go
package core

import (
	"errors"
	"time"
)

// ErrNotFound is returned by archive backends for absent keys.
var ErrNotFound = errors.New("not found")

// ProgramSource is the archived form of one program.
type ProgramSource struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Source   string `json:"source"`
	ReadOnly bool   `json:"readOnly"`
	Runnable bool   `json:"runnable"`
	Filename string `json:"filename,omitempty"`
}

// TraceRecording is an archived movement recording and the program
// generated from it.
type TraceRecording struct {
	ID         uint          `json:"id"`
	ObjectID   int           `json:"objectId"`
	Program    string        `json:"program"`
	Source     string        `json:"source"`
	Records    []TraceRecord `json:"records"`
	Origin     Vector        `json:"origin"`
	Heading    float64       `json:"heading"`
	Path       string        `json:"path"` // WKT of the ground path
	Length     float64       `json:"length"`
	RecordedAt time.Time     `json:"recordedAt"`
}
