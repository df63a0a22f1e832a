package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/gridbots/programmable/internal/model"
	"github.com/gridbots/programmable/pkg/core"
)

func TestProgramRoundTrip(t *testing.T) {
	src := core.ProgramSource{
		Index:    2,
		Name:     "Square",
		Source:   "extern void object::Square()\n{\n\tmove(1);\n}\n",
		ReadOnly: true,
		Runnable: true,
		Filename: "square.txt",
	}

	row := ProgramToGorm(5, src)
	assert.Equal(t, 5, row.ObjectID)
	assert.Equal(t, 2, row.Index)
	assert.Equal(t, src, ProgramToCore(row))
}

func TestTraceToGorm(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := core.TraceRecording{
		ObjectID: 3,
		Program:  "AutoDraw",
		Records: []core.TraceRecord{
			{Oper: core.TraceAdvance, Param: 8},
			{Oper: core.TraceTurn, Param: 1.5},
		},
		Origin:     core.Vector{X: 1, Y: 2, Z: 3},
		Heading:    0.5,
		Path:       "LINESTRING(1 3,9 3)",
		Length:     8,
		RecordedAt: at,
	}

	row, err := TraceToGorm(rec)
	require.NoError(t, err)
	assert.Equal(t, 1.0, row.OriginX)
	assert.Equal(t, 3.0, row.OriginZ)
	assert.JSONEq(t, `[{"oper":1,"param":8},{"oper":3,"param":1.5}]`, string(row.Records))

	back, err := TraceToCore(row)
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestTraceToGorm_EmptyRecords(t *testing.T) {
	row, err := TraceToGorm(core.TraceRecording{ObjectID: 1})
	require.NoError(t, err)
	assert.Equal(t, datatypes.JSON("[]"), row.Records)

	back, err := TraceToCore(row)
	require.NoError(t, err)
	assert.Empty(t, back.Records)
}

func TestTraceToCore_BadJSON(t *testing.T) {
	_, err := TraceToCore(model.TraceRecording{ID: 9, Records: datatypes.JSON("{")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace 9")
}
