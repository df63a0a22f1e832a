package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ProgramRecord{},
	&StackSnapshot{},
	&TraceRecording{},
}

// ProgramRecord is one archived program of an object
type ProgramRecord struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"createdAt"`
	ObjectID  int       `json:"objectId" gorm:"index:idx_program_object_index,unique,priority:1"`
	Index     int       `json:"index" gorm:"column:program_index;index:idx_program_object_index,unique,priority:2"`
	Name      string    `json:"name" gorm:"size:64"`
	Source    string    `json:"source" gorm:"type:text"`
	ReadOnly  bool      `json:"readOnly"`
	Runnable  bool      `json:"runnable"`
	Filename  string    `json:"filename" gorm:"size:255"`
}

func (*ProgramRecord) TableName() string {
	return "program_records"
}

// StackSnapshot is the saved execution state of an object
type StackSnapshot struct {
	ObjectID  int       `json:"objectId" gorm:"primaryKey;autoIncrement:false"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*StackSnapshot) TableName() string {
	return "stack_snapshots"
}

// TraceRecording is a movement recording and the program generated from it
type TraceRecording struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	ObjectID   int            `json:"objectId" gorm:"index:idx_trace_object"`
	Program    string         `json:"program" gorm:"size:64"`
	Source     string         `json:"source" gorm:"type:text"`
	Records    datatypes.JSON `json:"records"`
	OriginX    float64        `json:"originX"`
	OriginY    float64        `json:"originY"`
	OriginZ    float64        `json:"originZ"`
	Heading    float64        `json:"heading"`
	Path       string         `json:"path" gorm:"type:text"` // WKT
	Length     float64        `json:"length"`
	RecordedAt time.Time      `json:"recordedAt" gorm:"index:idx_trace_recorded_at"`
}

func (*TraceRecording) TableName() string {
	return "trace_recordings"
}

// Geometry parses the stored ground path.
func (t *TraceRecording) Geometry() (geom.Geometry, error) {
	return geom.UnmarshalWKT(t.Path)
}
