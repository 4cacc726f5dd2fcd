package storage

import (
	"context"
	"fmt"

	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyStreamEntry replays one change stream entry against the relational store. Replaying the
// same entry more than once leaves the same final row: inserts are skipped when the row exists and
// updates write the full row.
func ApplyStreamEntry(ctx context.Context, gdb *gorm.DB, entry StreamEntry) error {
	row, err := entry.DecodeRow()
	if err != nil {
		return err
	}

	var onConflict clause.OnConflict
	switch entry.Op {
	case OpInsert:
		onConflict = clause.OnConflict{DoNothing: true}
	case OpUpdate:
		cols := db.PrimaryKeyColumns(entry.Table)
		onConflict = clause.OnConflict{Columns: make([]clause.Column, 0, len(cols)), UpdateAll: true}
		for _, col := range cols {
			onConflict.Columns = append(onConflict.Columns, clause.Column{Name: col})
		}
	default:
		return fmt.Errorf("unsupported stream entry op %q", entry.Op)
	}

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(onConflict).Create(row).Error
	})
	if err != nil {
		return fmt.Errorf("apply %s %s %s: %w", entry.Op, entry.Table, entry.BusinessID, err)
	}

	return nil
}
