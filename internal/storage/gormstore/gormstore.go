// Package gormstore archives programs, stacks and traces in a SQL database
// through gorm.
package gormstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gridbots/programmable/internal/database"
	"github.com/gridbots/programmable/internal/model"
	"github.com/gridbots/programmable/internal/model/convert"
	"github.com/gridbots/programmable/pkg/core"
)

// Backend implements the archive on a connected database manager.
type Backend struct {
	mgr *database.Manager
}

// New wraps a connected manager.
func New(mgr *database.Manager) *Backend {
	return &Backend{mgr: mgr}
}

func (b *Backend) db() *gorm.DB {
	return b.mgr.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	return b.mgr.Setup()
}

// Close releases the connection.
func (b *Backend) Close() error {
	return b.mgr.Close()
}

// SavePrograms replaces every program row of the object in one transaction.
func (b *Backend) SavePrograms(objectID int, progs []core.ProgramSource) error {
	return b.db().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("object_id = ?", objectID).Delete(&model.ProgramRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear programs: %w", err)
		}
		if len(progs) == 0 {
			return nil
		}
		rows := make([]model.ProgramRecord, len(progs))
		for i, p := range progs {
			rows[i] = convert.ProgramToGorm(objectID, p)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert programs: %w", err)
		}
		return nil
	})
}

// LoadPrograms returns the programs of an object ordered by index.
func (b *Backend) LoadPrograms(objectID int) ([]core.ProgramSource, error) {
	var rows []model.ProgramRecord
	err := b.db().Where("object_id = ?", objectID).Order("program_index").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, core.ErrNotFound
	}
	out := make([]core.ProgramSource, len(rows))
	for i, r := range rows {
		out[i] = convert.ProgramToCore(r)
	}
	return out, nil
}

// SaveStack upserts the stack snapshot of an object.
func (b *Backend) SaveStack(objectID int, data []byte) error {
	row := model.StackSnapshot{
		ObjectID:  objectID,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	return b.db().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

// LoadStack returns the stack snapshot of an object.
func (b *Backend) LoadStack(objectID int) ([]byte, error) {
	var row model.StackSnapshot
	err := b.db().Where("object_id = ?", objectID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if row.Data == nil {
		return []byte{}, nil
	}
	return row.Data, nil
}

// RecordTrace inserts a recording and sets its ID.
func (b *Backend) RecordTrace(t *core.TraceRecording) error {
	row, err := convert.TraceToGorm(*t)
	if err != nil {
		return err
	}
	row.ID = 0
	if err := b.db().Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert trace: %w", err)
	}
	t.ID = row.ID
	return nil
}

// Traces returns the recordings of an object in insertion order.
func (b *Backend) Traces(objectID int) ([]core.TraceRecording, error) {
	var rows []model.TraceRecording
	if err := b.db().Where("object_id = ?", objectID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]core.TraceRecording, 0, len(rows))
	for _, r := range rows {
		t, err := convert.TraceToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
